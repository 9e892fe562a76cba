package cmd

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/waypost/waypost/api/types/v1alpha1"
	"github.com/waypost/waypost/internal/waypostctl/util"
)

func newSendCmd() *cobra.Command {
	var (
		category string
		count    int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send synthetic telemetry events",
		Long: `Send synthetic events of one category through a fully wired
collector pipeline, including sampling, batching and delivery to the
configured ingestion endpoint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := util.BuildPipeline(cfg)
			if err != nil {
				return fmt.Errorf("error building pipeline: %w", err)
			}
			defer pipeline.Shutdown()

			for i := 0; i < count; i++ {
				if err := emit(pipeline, v1alpha1.Category(category), i); err != nil {
					return err
				}
				if interval > 0 {
					time.Sleep(interval)
				}
			}

			fmt.Printf("Sent %d %s events (session %s)\n", count, category, pipeline.Collector.SessionID())
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", string(v1alpha1.CategoryAPIPerformance), "event category to send")
	cmd.Flags().IntVar(&count, "count", 10, "number of events to send")
	cmd.Flags().DurationVar(&interval, "interval", 0, "delay between events")

	return cmd
}

func emit(pipeline *util.Pipeline, category v1alpha1.Category, seq int) error {
	c := pipeline.Collector
	switch category {
	case v1alpha1.CategoryAPIPerformance:
		c.CollectAPIPerformance(v1alpha1.APIPerformanceMetric{
			Endpoint:     fmt.Sprintf("/api/v1/items/%d", seq),
			Method:       "GET",
			StatusCode:   200,
			ResponseTime: time.Duration(50+rand.Intn(400)) * time.Millisecond,
		})
	case v1alpha1.CategoryWebVitals:
		c.CollectWebVitals(v1alpha1.WebVitals{
			Page: "/dashboard",
			LCP:  time.Duration(800+rand.Intn(2400)) * time.Millisecond,
			CLS:  rand.Float64() * 0.15,
			TTFB: time.Duration(40+rand.Intn(300)) * time.Millisecond,
		})
	case v1alpha1.CategoryBusinessMetric:
		c.CollectBusinessMetric(v1alpha1.BusinessMetric{
			Name:  "synthetic_metric",
			Value: float64(seq),
			Unit:  "count",
		})
	case v1alpha1.CategoryUsability:
		c.CollectUsability(v1alpha1.UsabilityEvent{
			Action: "click",
			Target: fmt.Sprintf("button-%d", seq%5),
			Page:   "/dashboard",
		})
	case v1alpha1.CategoryDataQuality:
		c.CollectDataQuality(v1alpha1.DataQualityMetric{
			Source:      "synthetic",
			Check:       "row_count",
			Passed:      seq%7 != 0,
			RecordCount: int64(1000 + seq),
		})
	default:
		return fmt.Errorf("unsupported category %q", category)
	}
	return nil
}
