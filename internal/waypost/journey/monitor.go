package journey

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/waypost/waypost/api/types/v1alpha1"
	"github.com/waypost/waypost/internal/waypost/alert"
)

// maxRecentDropOffs bounds the per-type drop-off history kept in stats.
const maxRecentDropOffs = 20

// maxSnapshots bounds the terminal snapshot history kept for analytics.
const maxSnapshots = 256

// Recorder is the slice of the event collector the monitor depends on. The
// dependency is explicit so the monitor can be tested with a mock.
type Recorder interface {
	CollectUserJourney(e v1alpha1.UserJourneyEvent)
	CollectBusinessMetric(m v1alpha1.BusinessMetric)
}

// Options configures a Monitor.
type Options struct {
	// CleanupInterval is the period of the terminal-journey sweep.
	CleanupInterval time.Duration
	// Retention is how long terminal journeys stay in the active map before
	// the sweep removes them. Non-terminal journeys are never removed.
	Retention time.Duration
}

// stepError records one failed step attempt.
type stepError struct {
	stepID  string
	message string
	at      time.Time
}

// activeJourney is one in-flight workflow instance.
type activeJourney struct {
	id            string
	journeyType   string
	userID        string
	sessionID     string
	state         v1alpha1.JourneyState
	startedAt     time.Time
	endedAt       time.Time
	currentStep   string
	lastStepAt    time.Time
	completed     map[string]struct{}
	completedSeq  []string
	stepTimes     map[string]time.Time
	stepDurations map[string]time.Duration
	errors        []stepError
	metadata      map[string]interface{}
	abandonReason string
}

// Monitor manages active journey instances. Misuse (unknown ids, repeated
// terminal transitions) is absorbed as a no-op: the monitor must never crash
// the host application.
type Monitor struct {
	registry  *Registry
	recorder  Recorder
	alerts    alert.Sink
	logger    *slog.Logger
	opts      Options
	sessionID string

	mu        sync.Mutex
	active    map[string]*activeJourney
	stats     map[string]*v1alpha1.JourneyStats
	snapshots []v1alpha1.JourneySnapshot
	closed    bool

	done chan struct{}
	wg   sync.WaitGroup

	// now is replaced in tests.
	now func() time.Time
}

// NewMonitor creates a journey monitor and starts its cleanup sweep.
func NewMonitor(registry *Registry, recorder Recorder, alerts alert.Sink, sessionID string, opts Options, logger *slog.Logger) *Monitor {
	m := &Monitor{
		registry:  registry,
		recorder:  recorder,
		alerts:    alerts,
		logger:    logger,
		opts:      opts,
		sessionID: sessionID,
		active:    make(map[string]*activeJourney),
		stats:     make(map[string]*v1alpha1.JourneyStats),
		done:      make(chan struct{}),
		now:       time.Now,
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

// StartJourney creates an in-flight instance of the given journey type and
// returns its id. Unknown journey types are ignored and return an empty id.
func (m *Monitor) StartJourney(journeyType, userID string, metadata map[string]interface{}) string {
	if _, ok := m.registry.Get(journeyType); !ok {
		m.logger.Debug("ignoring start for unknown journey type", "type", journeyType)
		return ""
	}

	now := m.now()
	id := uuid.New().String()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ""
	}
	m.active[id] = &activeJourney{
		id:            id,
		journeyType:   journeyType,
		userID:        userID,
		sessionID:     m.sessionID,
		state:         v1alpha1.JourneyInFlight,
		startedAt:     now,
		lastStepAt:    now,
		completed:     make(map[string]struct{}),
		stepTimes:     make(map[string]time.Time),
		stepDurations: make(map[string]time.Duration),
		metadata:      cloneMetadata(metadata),
	}
	stats := m.statsFor(journeyType)
	stats.TotalStarted++
	m.recomputeRates(stats)
	m.mu.Unlock()

	m.recorder.CollectBusinessMetric(v1alpha1.BusinessMetric{
		Name:       "user_journey_started",
		Value:      1,
		Unit:       "count",
		Dimensions: map[string]string{"journeyType": journeyType},
	})
	m.recorder.CollectUserJourney(v1alpha1.UserJourneyEvent{
		EventType:   v1alpha1.JourneyEventStarted,
		JourneyType: journeyType,
		JourneyID:   id,
		Metadata:    metadata,
	})

	return id
}

// ProgressStep records a step attempt. Failed attempts raise an alert and
// leave the journey in flight; abandonment is always an explicit caller
// decision. A successful attempt that completes every required step
// transitions the journey to Completed.
func (m *Monitor) ProgressStep(journeyID, stepID string, success bool, errMsg string, extra map[string]interface{}) {
	m.mu.Lock()

	aj, ok := m.active[journeyID]
	if !ok || aj.state.Terminal() {
		m.mu.Unlock()
		m.logger.Debug("ignoring step for absent or terminal journey", "journeyId", journeyID, "stepId", stepID)
		return
	}

	def, ok := m.registry.Get(aj.journeyType)
	if !ok {
		m.mu.Unlock()
		return
	}
	step, ok := def.Step(stepID)
	if !ok {
		m.mu.Unlock()
		m.logger.Debug("ignoring unknown step", "journeyId", journeyID, "stepId", stepID, "type", aj.journeyType)
		return
	}

	now := m.now()
	var effects []func()

	if !success {
		aj.errors = append(aj.errors, stepError{stepID: stepID, message: errMsg, at: now})
		journeyType := aj.journeyType
		effects = append(effects, func() {
			m.alerts.Emit(alert.AlertJourneyStepError, map[string]interface{}{
				"journeyType": journeyType,
				"journeyId":   journeyID,
				"stepId":      stepID,
				"error":       errMsg,
			})
			m.recorder.CollectUserJourney(v1alpha1.UserJourneyEvent{
				EventType:   v1alpha1.JourneyEventError,
				JourneyType: journeyType,
				JourneyID:   journeyID,
				StepID:      stepID,
				Error:       errMsg,
				Metadata:    extra,
			})
		})
		m.mu.Unlock()
		runEffects(effects)
		return
	}

	duration := now.Sub(aj.lastStepAt)
	aj.stepTimes[stepID] = now
	aj.stepDurations[stepID] = duration
	if _, done := aj.completed[stepID]; !done {
		aj.completed[stepID] = struct{}{}
		aj.completedSeq = append(aj.completedSeq, stepID)
	}
	aj.currentStep = stepID
	aj.lastStepAt = now
	for k, v := range extra {
		if aj.metadata == nil {
			aj.metadata = make(map[string]interface{})
		}
		aj.metadata[k] = v
	}

	journeyType := aj.journeyType
	if step.ExpectedMaxDuration > 0 && duration > step.ExpectedMaxDuration {
		expected := step.ExpectedMaxDuration
		effects = append(effects, func() {
			m.alerts.Emit(alert.AlertJourneyStepSlow, map[string]interface{}{
				"journeyType": journeyType,
				"journeyId":   journeyID,
				"stepId":      stepID,
				"durationMs":  duration.Milliseconds(),
				"expectedMs":  expected.Milliseconds(),
			})
		})
	}

	effects = append(effects, func() {
		m.recorder.CollectUserJourney(v1alpha1.UserJourneyEvent{
			EventType:   v1alpha1.JourneyEventStep,
			JourneyType: journeyType,
			JourneyID:   journeyID,
			StepID:      stepID,
			Duration:    duration,
			Metadata:    extra,
		})
	})

	if m.requiredStepsDone(aj, def) {
		effects = append(effects, m.completeLocked(aj, def, now))
	}

	m.mu.Unlock()
	runEffects(effects)
}

// AbandonJourney marks an in-flight journey as abandoned. Absent or terminal
// journeys are a no-op, so repeated calls count abandonment once.
func (m *Monitor) AbandonJourney(journeyID, reason string) {
	m.mu.Lock()

	aj, ok := m.active[journeyID]
	if !ok || aj.state.Terminal() {
		m.mu.Unlock()
		return
	}

	effects := []func(){m.abandonLocked(aj, reason, m.now())}
	m.mu.Unlock()
	runEffects(effects)
}

// Stats returns a copy of the cumulative stats for one journey type.
func (m *Monitor) Stats(journeyType string) (v1alpha1.JourneyStats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.stats[journeyType]
	if !ok {
		return v1alpha1.JourneyStats{}, false
	}
	out := *stats
	out.RecentDropOffs = append([]string(nil), stats.RecentDropOffs...)
	return out, true
}

// AllStats returns a copy of every journey type's stats.
func (m *Monitor) AllStats() []v1alpha1.JourneyStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]v1alpha1.JourneyStats, 0, len(m.stats))
	for _, stats := range m.stats {
		s := *stats
		s.RecentDropOffs = append([]string(nil), stats.RecentDropOffs...)
		out = append(out, s)
	}
	return out
}

// Snapshots returns the retained terminal snapshots, oldest first.
func (m *Monitor) Snapshots() []v1alpha1.JourneySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]v1alpha1.JourneySnapshot(nil), m.snapshots...)
}

// ActiveCount reports the number of journeys in the active map, including
// terminal ones not yet removed by the cleanup sweep.
func (m *Monitor) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// OnUnload abandons every in-flight journey because the host is going away.
func (m *Monitor) OnUnload() {
	m.sweepInFlight("page_unload")
}

// Shutdown stops the cleanup sweep and abandons every in-flight journey.
func (m *Monitor) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	close(m.done)
	m.sweepInFlight("monitor_shutdown")
	m.wg.Wait()
}

func (m *Monitor) sweepInFlight(reason string) {
	m.mu.Lock()
	now := m.now()
	var effects []func()
	for _, aj := range m.active {
		if !aj.state.Terminal() {
			effects = append(effects, m.abandonLocked(aj, reason, now))
		}
	}
	m.mu.Unlock()
	runEffects(effects)
}

// completeLocked transitions a journey to Completed and returns the deferred
// side effects. Caller holds m.mu.
func (m *Monitor) completeLocked(aj *activeJourney, def v1alpha1.JourneyDefinition, now time.Time) func() {
	aj.state = v1alpha1.JourneyCompleted
	aj.endedAt = now
	total := now.Sub(aj.startedAt)

	stats := m.statsFor(aj.journeyType)
	stats.TotalCompleted++
	// Incremental mean keeps the running average without storing durations.
	stats.AvgDuration += (total - stats.AvgDuration) / time.Duration(stats.TotalCompleted)
	m.recomputeRates(stats)

	m.pushSnapshot(aj)

	var conversionValue float64
	for _, stepID := range aj.completedSeq {
		if step, ok := def.Step(stepID); ok {
			conversionValue += step.BusinessValue
		}
	}

	journeyType := aj.journeyType
	journeyID := aj.id
	return func() {
		m.recorder.CollectUserJourney(v1alpha1.UserJourneyEvent{
			EventType:   v1alpha1.JourneyEventConversion,
			JourneyType: journeyType,
			JourneyID:   journeyID,
			Duration:    total,
		})
		if conversionValue > 0 {
			m.recorder.CollectBusinessMetric(v1alpha1.BusinessMetric{
				Name:       "journey_conversion_value",
				Value:      conversionValue,
				Unit:       "points",
				Dimensions: map[string]string{"journeyType": journeyType},
			})
		}
	}
}

// abandonLocked transitions a journey to Abandoned and returns the deferred
// side effects. Caller holds m.mu.
func (m *Monitor) abandonLocked(aj *activeJourney, reason string, now time.Time) func() {
	aj.state = v1alpha1.JourneyAbandoned
	aj.endedAt = now
	aj.abandonReason = reason

	stats := m.statsFor(aj.journeyType)
	stats.TotalAbandoned++
	m.recomputeRates(stats)

	dropOff := aj.currentStep
	if dropOff == "" {
		dropOff = "start"
	}
	stats.RecentDropOffs = append(stats.RecentDropOffs, dropOff)
	if len(stats.RecentDropOffs) > maxRecentDropOffs {
		stats.RecentDropOffs = stats.RecentDropOffs[len(stats.RecentDropOffs)-maxRecentDropOffs:]
	}

	m.pushSnapshot(aj)

	var breach bool
	var threshold float64
	if def, ok := m.registry.Get(aj.journeyType); ok {
		threshold = def.Thresholds.MaxAbandonmentRate
		breach = threshold > 0 && stats.AbandonmentRate > threshold
	}

	journeyType := aj.journeyType
	journeyID := aj.id
	rate := stats.AbandonmentRate
	return func() {
		if breach {
			m.alerts.Emit(alert.AlertHighAbandonmentRate, map[string]interface{}{
				"journeyType":     journeyType,
				"abandonmentRate": rate,
				"threshold":       threshold,
			})
		}
		m.recorder.CollectUserJourney(v1alpha1.UserJourneyEvent{
			EventType:   v1alpha1.JourneyEventAbandoned,
			JourneyType: journeyType,
			JourneyID:   journeyID,
			StepID:      dropOff,
			Error:       reason,
		})
	}
}

func (m *Monitor) requiredStepsDone(aj *activeJourney, def v1alpha1.JourneyDefinition) bool {
	for _, stepID := range def.RequiredSteps() {
		if _, done := aj.completed[stepID]; !done {
			return false
		}
	}
	return true
}

// statsFor returns the stats record for a type, creating it on first use.
// Caller holds m.mu.
func (m *Monitor) statsFor(journeyType string) *v1alpha1.JourneyStats {
	stats, ok := m.stats[journeyType]
	if !ok {
		stats = &v1alpha1.JourneyStats{Type: journeyType}
		m.stats[journeyType] = stats
	}
	return stats
}

func (m *Monitor) recomputeRates(stats *v1alpha1.JourneyStats) {
	if stats.TotalStarted == 0 {
		stats.CompletionRate = 0
		stats.AbandonmentRate = 0
		return
	}
	stats.CompletionRate = float64(stats.TotalCompleted) / float64(stats.TotalStarted)
	stats.AbandonmentRate = float64(stats.TotalAbandoned) / float64(stats.TotalStarted)
}

// pushSnapshot records the terminal state of a journey. Caller holds m.mu.
func (m *Monitor) pushSnapshot(aj *activeJourney) {
	snapshot := v1alpha1.JourneySnapshot{
		JourneyID:      aj.id,
		Type:           aj.journeyType,
		UserID:         aj.userID,
		SessionID:      aj.sessionID,
		State:          aj.state,
		StartedAt:      aj.startedAt,
		EndedAt:        aj.endedAt,
		Duration:       aj.endedAt.Sub(aj.startedAt),
		CompletedSteps: append([]string(nil), aj.completedSeq...),
		LastStep:       aj.currentStep,
		AbandonReason:  aj.abandonReason,
		ErrorCount:     len(aj.errors),
	}
	m.snapshots = append(m.snapshots, snapshot)
	if len(m.snapshots) > maxSnapshots {
		m.snapshots = m.snapshots[len(m.snapshots)-maxSnapshots:]
	}
}

func (m *Monitor) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}

// Cleanup removes terminal journeys older than the retention window from the
// active map. Non-terminal journeys are never removed regardless of age.
func (m *Monitor) Cleanup() {
	cutoff := m.now().Add(-m.opts.Retention)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, aj := range m.active {
		if aj.state.Terminal() && aj.endedAt.Before(cutoff) {
			delete(m.active, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Debug("cleaned up terminal journeys", "removed", removed, "remaining", len(m.active))
	}
}

func cloneMetadata(metadata map[string]interface{}) map[string]interface{} {
	if metadata == nil {
		return nil
	}
	out := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}

func runEffects(effects []func()) {
	for _, effect := range effects {
		effect()
	}
}
