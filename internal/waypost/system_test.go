package waypost

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waypost/waypost/api/types/v1alpha1"
	"github.com/waypost/waypost/internal/waypost/alert"
	"github.com/waypost/waypost/internal/waypost/config"
	"github.com/waypost/waypost/internal/waypost/netwatch"
)

type memorySender struct {
	mu      sync.Mutex
	sent    []v1alpha1.EventBatch
	beacons []v1alpha1.EventBatch
}

func (s *memorySender) Send(_ context.Context, batch v1alpha1.EventBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, batch)
	return nil
}

func (s *memorySender) SendBeacon(batch v1alpha1.EventBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beacons = append(s.beacons, batch)
}

func (s *memorySender) counts() (sent, beacons int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent), len(s.beacons)
}

func newTestSystem(t *testing.T, mutate func(*config.Config)) (*System, *memorySender) {
	t.Helper()

	cfg := config.Defaults()
	cfg.Transport.Endpoint = "http://localhost:8420"
	cfg.Collector.BatchSize = 100
	if mutate != nil {
		mutate(cfg)
	}

	sender := &memorySender{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	system, err := New(cfg, logger,
		WithSender(sender),
		WithNetwork(netwatch.NewManual(true)),
		WithAlertSink(alert.NoopSink{}),
	)
	require.NoError(t, err)
	return system, sender
}

func TestSystemWiresCollectorToTransport(t *testing.T) {
	system, sender := newTestSystem(t, func(cfg *config.Config) {
		cfg.Collector.BatchSize = 2
	})
	defer system.Shutdown(context.Background())

	system.Collector.CollectBusinessMetric(v1alpha1.BusinessMetric{Name: "a", Value: 1})
	system.Collector.CollectBusinessMetric(v1alpha1.BusinessMetric{Name: "b", Value: 1})

	require.Eventually(t, func() bool {
		sent, _ := sender.counts()
		return sent == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSystemJourneyFlowsThroughCollector(t *testing.T) {
	system, sender := newTestSystem(t, nil)
	defer system.Shutdown(context.Background())

	id := system.Monitor.StartJourney("onboarding", "user-1", nil)
	require.NotEmpty(t, id)
	system.Monitor.ProgressStep(id, "signup", true, "", nil)
	system.Monitor.ProgressStep(id, "first_dashboard", true, "", nil)

	// Completion emits a conversion event which flushes immediately.
	require.Eventually(t, func() bool {
		sent, _ := sender.counts()
		return sent >= 1
	}, time.Second, 10*time.Millisecond)

	stats, ok := system.Monitor.Stats("onboarding")
	require.True(t, ok)
	assert.EqualValues(t, 1, stats.TotalCompleted)
}

func TestSystemOnUnloadAbandonsAndFlushes(t *testing.T) {
	system, sender := newTestSystem(t, nil)
	defer system.Shutdown(context.Background())

	id := system.Monitor.StartJourney("checkout", "user-1", nil)
	require.NotEmpty(t, id)
	system.Collector.CollectUsability(v1alpha1.UsabilityEvent{Action: "click"})

	system.OnUnload()

	stats, ok := system.Monitor.Stats("checkout")
	require.True(t, ok)
	assert.EqualValues(t, 1, stats.TotalAbandoned)

	_, beacons := sender.counts()
	assert.Greater(t, beacons, 0, "unload uses the fire-and-forget path")
}

func TestSystemShutdownDrainsQueues(t *testing.T) {
	system, sender := newTestSystem(t, nil)

	system.Collector.CollectUsability(v1alpha1.UsabilityEvent{Action: "click"})
	system.Shutdown(context.Background())

	_, beacons := sender.counts()
	assert.Greater(t, beacons, 0)

	// A second shutdown is a no-op.
	system.Shutdown(context.Background())
}

func TestSystemRejectsBadCatalog(t *testing.T) {
	cfg := config.Defaults()
	cfg.Transport.Endpoint = "http://localhost:8420"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := New(cfg, logger,
		WithSender(&memorySender{}),
		WithNetwork(netwatch.NewManual(true)),
		WithJourneyDefinitions(v1alpha1.JourneyDefinition{Type: "broken"}),
	)
	assert.Error(t, err)
}
