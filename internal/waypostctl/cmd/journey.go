package cmd

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/waypost/waypost/internal/waypost/journey"
	"github.com/waypost/waypost/internal/waypostctl/util"
)

func newJourneyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journey",
		Short: "Simulate user journeys",
	}

	cmd.AddCommand(newJourneyListCmd())
	cmd.AddCommand(newJourneySimulateCmd())

	return cmd
}

func newJourneyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the built-in journey catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, def := range journey.DefaultCatalog() {
				fmt.Printf("%s (%s)\n", def.Type, def.Name)
				for _, step := range def.Steps {
					marker := "required"
					if step.Optional {
						marker = "optional"
					}
					fmt.Printf("  %-20s %-10s expected <= %s\n", step.ID, marker, step.ExpectedMaxDuration)
				}
			}
			return nil
		},
	}
}

func newJourneySimulateCmd() *cobra.Command {
	var (
		journeyType string
		runs        int
		abandonRate float64
		errorRate   float64
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run simulated journeys through the monitor",
		Long: `Simulate journey instances through a fully wired journey monitor,
emitting journey telemetry and alerts to the configured sinks, then print the
aggregated statistics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pipeline, err := util.BuildPipeline(cfg)
			if err != nil {
				return fmt.Errorf("error building pipeline: %w", err)
			}
			defer pipeline.Shutdown()

			catalog := journey.DefaultCatalog()
			var steps []string
			found := false
			for _, def := range catalog {
				if def.Type == journeyType {
					for _, step := range def.Steps {
						steps = append(steps, step.ID)
					}
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("unknown journey type %q", journeyType)
			}

			for i := 0; i < runs; i++ {
				id := pipeline.Monitor.StartJourney(journeyType, fmt.Sprintf("user-%d", i), nil)
				if rand.Float64() < abandonRate {
					// Abandon midway
					if len(steps) > 1 {
						pipeline.Monitor.ProgressStep(id, steps[0], true, "", nil)
					}
					pipeline.Monitor.AbandonJourney(id, "simulated_abandonment")
					continue
				}
				for _, stepID := range steps {
					if rand.Float64() < errorRate {
						pipeline.Monitor.ProgressStep(id, stepID, false, "simulated_error", nil)
					}
					pipeline.Monitor.ProgressStep(id, stepID, true, "", nil)
				}
			}

			// Give immediate flushes a moment to drain
			time.Sleep(200 * time.Millisecond)

			stats, ok := pipeline.Monitor.Stats(journeyType)
			if !ok {
				return fmt.Errorf("no stats recorded for %q", journeyType)
			}
			fmt.Printf("journey type:     %s\n", stats.Type)
			fmt.Printf("started:          %d\n", stats.TotalStarted)
			fmt.Printf("completed:        %d (%.1f%%)\n", stats.TotalCompleted, stats.CompletionRate*100)
			fmt.Printf("abandoned:        %d (%.1f%%)\n", stats.TotalAbandoned, stats.AbandonmentRate*100)
			fmt.Printf("avg duration:     %s\n", stats.AvgDuration)
			if len(stats.RecentDropOffs) > 0 {
				fmt.Printf("recent drop-offs: %v\n", stats.RecentDropOffs)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&journeyType, "type", "onboarding", "journey type to simulate")
	cmd.Flags().IntVar(&runs, "runs", 20, "number of journey instances")
	cmd.Flags().Float64Var(&abandonRate, "abandon-rate", 0.2, "fraction of journeys abandoned midway")
	cmd.Flags().Float64Var(&errorRate, "error-rate", 0.1, "probability of a step error before success")

	return cmd
}
