package collector

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waypost/waypost/api/types/v1alpha1"
	"github.com/waypost/waypost/internal/waypost/netwatch"
	"github.com/waypost/waypost/internal/waypost/queue"
)

type captureSender struct {
	mu   sync.Mutex
	sent []v1alpha1.EventBatch
}

func (s *captureSender) Send(_ context.Context, batch v1alpha1.EventBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, batch)
	return nil
}

func (s *captureSender) SendBeacon(batch v1alpha1.EventBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, batch)
}

func (s *captureSender) events() []v1alpha1.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []v1alpha1.Event
	for _, b := range s.sent {
		out = append(out, b.Events...)
	}
	return out
}

type captureSink struct {
	mu     sync.Mutex
	alerts []string
}

func (s *captureSink) Emit(name string, _ map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, name)
}

func (s *captureSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.alerts))
	copy(out, s.alerts)
	return out
}

type fixture struct {
	collector *Collector
	queues    *queue.Manager
	sender    *captureSender
	sink      *captureSink
}

func newFixture(t *testing.T, opts Options, batchSize int) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(discard{}, nil))
	sender := &captureSender{}
	sink := &captureSink{}
	queues := queue.NewManager(sender, netwatch.NewManual(true), "test-session", queue.Options{
		BatchSize:     batchSize,
		FlushInterval: time.Hour,
	}, logger)
	t.Cleanup(queues.Shutdown)
	return &fixture{
		collector: New(queues, sink, "test-session", opts, logger),
		queues:    queues,
		sender:    sender,
		sink:      sink,
	}
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// never is a sampling draw that rejects every sampled event.
func never() float64 { return 1.0 }

func TestSamplingConvergesOnConfiguredRate(t *testing.T) {
	const (
		n    = 10000
		rate = 0.25
	)
	f := newFixture(t, Options{SamplingRate: rate}, n+1)
	f.collector.randFn = rand.New(rand.NewSource(42)).Float64

	for i := 0; i < n; i++ {
		f.collector.CollectUsability(v1alpha1.UsabilityEvent{Action: "click"})
	}

	got := float64(f.queues.Depth(v1alpha1.CategoryUsability))
	// Allow roughly four standard deviations of binomial noise.
	sigma := math.Sqrt(n * rate * (1 - rate))
	assert.InDelta(t, n*rate, got, 4.5*sigma)
}

func TestSlowResponseAlertFiresWhenSampledOut(t *testing.T) {
	f := newFixture(t, Options{SamplingRate: 0}, 100)
	f.collector.randFn = never

	f.collector.CollectAPIPerformance(v1alpha1.APIPerformanceMetric{
		Endpoint:     "/api/v1/items",
		Method:       "GET",
		StatusCode:   200,
		ResponseTime: 3001 * time.Millisecond,
	})

	assert.Equal(t, []string{"slow_response"}, f.sink.names())
	assert.Equal(t, 0, f.queues.Depth(v1alpha1.CategoryAPIPerformance), "sampled-out metric is not recorded")
}

func TestSlowResponseThresholdIsStrict(t *testing.T) {
	f := newFixture(t, Options{SamplingRate: 1}, 100)

	f.collector.CollectAPIPerformance(v1alpha1.APIPerformanceMetric{
		Endpoint:     "/api/v1/items",
		Method:       "GET",
		StatusCode:   200,
		ResponseTime: 3000 * time.Millisecond,
	})

	assert.Empty(t, f.sink.names())
	assert.Equal(t, 1, f.queues.Depth(v1alpha1.CategoryAPIPerformance))
}

func TestErrorResponsesBypassSampling(t *testing.T) {
	f := newFixture(t, Options{SamplingRate: 0}, 100)
	f.collector.randFn = never

	f.collector.CollectAPIPerformance(v1alpha1.APIPerformanceMetric{
		Endpoint:     "/api/v1/items",
		Method:       "GET",
		StatusCode:   503,
		ResponseTime: 20 * time.Millisecond,
	})

	assert.Equal(t, 1, f.queues.Depth(v1alpha1.CategoryAPIPerformance))
}

func TestWebVitalsThresholdAlerts(t *testing.T) {
	f := newFixture(t, Options{SamplingRate: 0}, 100)
	f.collector.randFn = never

	f.collector.CollectWebVitals(v1alpha1.WebVitals{
		Page: "/dashboard",
		LCP:  2600 * time.Millisecond,
		CLS:  0.12,
	})

	assert.ElementsMatch(t, []string{"poor_lcp", "poor_cls"}, f.sink.names())
	assert.Equal(t, 0, f.queues.Depth(v1alpha1.CategoryWebVitals))
}

func TestJourneyErrorEventsFlushImmediately(t *testing.T) {
	f := newFixture(t, Options{SamplingRate: 0}, 100)
	f.collector.randFn = never

	f.collector.CollectUserJourney(v1alpha1.UserJourneyEvent{
		EventType: v1alpha1.JourneyEventError,
		Error:     "boom",
	})

	require.Eventually(t, func() bool {
		return len(f.sender.events()) == 1
	}, time.Second, 10*time.Millisecond)

	ev, ok := f.sender.events()[0].(v1alpha1.UserJourneyEvent)
	require.True(t, ok)
	assert.Equal(t, v1alpha1.JourneyEventError, ev.EventType)
}

func TestJourneyConversionEventsFlushImmediately(t *testing.T) {
	f := newFixture(t, Options{SamplingRate: 0}, 100)
	f.collector.randFn = never

	f.collector.CollectUserJourney(v1alpha1.UserJourneyEvent{
		EventType: v1alpha1.JourneyEventConversion,
	})

	require.Eventually(t, func() bool {
		return len(f.sender.events()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestJourneyStepEventsAreSampled(t *testing.T) {
	f := newFixture(t, Options{SamplingRate: 0}, 100)
	f.collector.randFn = never

	f.collector.CollectUserJourney(v1alpha1.UserJourneyEvent{
		EventType: v1alpha1.JourneyEventStep,
		StepID:    "signup",
	})

	assert.Equal(t, 0, f.queues.Depth(v1alpha1.CategoryUserJourney))
}

func TestDataQualityNeverSampled(t *testing.T) {
	f := newFixture(t, Options{SamplingRate: 0}, 100)
	f.collector.randFn = never

	f.collector.CollectDataQuality(v1alpha1.DataQualityMetric{
		Source: "warehouse",
		Check:  "row_count",
		Passed: true,
	})

	assert.Equal(t, 1, f.queues.Depth(v1alpha1.CategoryDataQuality))
}

func TestInvalidEventsDroppedSilently(t *testing.T) {
	f := newFixture(t, Options{SamplingRate: 1}, 100)

	f.collector.CollectAPIPerformance(v1alpha1.APIPerformanceMetric{Method: "GET", StatusCode: 200})
	f.collector.CollectWebVitals(v1alpha1.WebVitals{})
	f.collector.CollectBusinessMetric(v1alpha1.BusinessMetric{})
	f.collector.CollectUsability(v1alpha1.UsabilityEvent{})
	f.collector.CollectDataQuality(v1alpha1.DataQualityMetric{Source: "warehouse"})
	f.collector.CollectUserJourney(v1alpha1.UserJourneyEvent{EventType: "bogus"})

	for _, category := range v1alpha1.KnownCategories {
		assert.Equal(t, 0, f.queues.Depth(category), "category %s", category)
	}
	assert.Empty(t, f.sink.names())
}

func TestEnrichmentStampsMissingFields(t *testing.T) {
	f := newFixture(t, Options{SamplingRate: 1, DeviceClass: "desktop"}, 1)

	f.collector.CollectAPIPerformance(v1alpha1.APIPerformanceMetric{
		Endpoint:   "/api/v1/items",
		Method:     "GET",
		StatusCode: 200,
	})

	require.Eventually(t, func() bool {
		return len(f.sender.events()) == 1
	}, time.Second, 10*time.Millisecond)

	m, ok := f.sender.events()[0].(v1alpha1.APIPerformanceMetric)
	require.True(t, ok)
	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.False(t, m.Timestamp.IsZero())
	assert.Equal(t, "test-session", m.SessionID)
	assert.Equal(t, "desktop", m.DeviceClass)
}

func TestEnrichmentPreservesCallerFields(t *testing.T) {
	f := newFixture(t, Options{SamplingRate: 1, DeviceClass: "desktop"}, 1)

	id := uuid.New()
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.collector.CollectAPIPerformance(v1alpha1.APIPerformanceMetric{
		ID:          id,
		Endpoint:    "/api/v1/items",
		Method:      "GET",
		StatusCode:  200,
		Timestamp:   ts,
		SessionID:   "caller-session",
		DeviceClass: "tablet",
	})

	require.Eventually(t, func() bool {
		return len(f.sender.events()) == 1
	}, time.Second, 10*time.Millisecond)

	m := f.sender.events()[0].(v1alpha1.APIPerformanceMetric)
	assert.Equal(t, id, m.ID)
	assert.Equal(t, ts, m.Timestamp)
	assert.Equal(t, "caller-session", m.SessionID)
	assert.Equal(t, "tablet", m.DeviceClass)
}

func TestCaptureErrorRecordsJourneyError(t *testing.T) {
	f := newFixture(t, Options{SamplingRate: 0}, 100)
	f.collector.randFn = never

	f.collector.CaptureError("sync-worker", errors.New("disk full"))
	f.collector.CaptureError("sync-worker", nil)

	require.Eventually(t, func() bool {
		return len(f.sender.events()) == 1
	}, time.Second, 10*time.Millisecond)

	ev := f.sender.events()[0].(v1alpha1.UserJourneyEvent)
	assert.Equal(t, v1alpha1.JourneyEventError, ev.EventType)
	assert.Equal(t, "disk full", ev.Error)
	assert.Equal(t, "sync-worker", ev.Metadata["source"])
}

func TestRecoverSwallowsPanic(t *testing.T) {
	f := newFixture(t, Options{SamplingRate: 1}, 100)

	func() {
		defer f.collector.Recover("render-loop")
		panic("nil deref")
	}()

	require.Eventually(t, func() bool {
		return len(f.sender.events()) == 1
	}, time.Second, 10*time.Millisecond)

	ev := f.sender.events()[0].(v1alpha1.UserJourneyEvent)
	assert.Contains(t, ev.Error, "nil deref")
}
