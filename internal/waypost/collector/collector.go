// Package collector provides the typed public ingestion API of the telemetry
// pipeline. Each collect function samples, enriches and validates its event
// before handing it to the queue manager. Nothing here ever returns an error
// to the caller: telemetry must not be able to crash or block the host
// application.
package collector

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/waypost/waypost/api/types/v1alpha1"
	"github.com/waypost/waypost/internal/waypost/alert"
	"github.com/waypost/waypost/internal/waypost/queue"
)

// Alert thresholds checked on every validated metric, independent of the
// sampling outcome for the metric itself.
const (
	slowResponseThreshold = 3000 * time.Millisecond
	poorLCPThreshold      = 2500 * time.Millisecond
	poorCLSThreshold      = 0.1
)

// Options configures a Collector.
type Options struct {
	// SamplingRate is the probability in [0,1] that a sampled event is
	// recorded. Error-classified and data-quality events bypass sampling.
	SamplingRate float64
	// DeviceClass is stamped on device-scoped events.
	DeviceClass string
	// DebugMode enables verbose logging of dropped events.
	DebugMode bool
}

// Collector ingests typed telemetry events.
type Collector struct {
	queues    *queue.Manager
	alerts    alert.Sink
	logger    *slog.Logger
	opts      Options
	sessionID string

	// randFn is the sampling draw; replaced in tests.
	randFn func() float64
}

// New creates a collector bound to a queue manager and an alert sink. The
// session id identifies this process lifetime on all session-scoped events.
func New(queues *queue.Manager, alerts alert.Sink, sessionID string, opts Options, logger *slog.Logger) *Collector {
	return &Collector{
		queues:    queues,
		alerts:    alerts,
		logger:    logger,
		opts:      opts,
		sessionID: sessionID,
		randFn:    rand.Float64,
	}
}

// SessionID returns the session identifier stamped on session-scoped events.
func (c *Collector) SessionID() string {
	return c.sessionID
}

// CollectAPIPerformance records an upstream API call. Calls slower than the
// slow-response threshold raise an alert even when the metric itself is
// sampled out. Failed calls (status >= 400) bypass sampling.
func (c *Collector) CollectAPIPerformance(m v1alpha1.APIPerformanceMetric) {
	if err := validateAPIPerformance(m); err != nil {
		c.dropInvalid(v1alpha1.CategoryAPIPerformance, err)
		return
	}

	if m.ResponseTime > slowResponseThreshold {
		c.alerts.Emit(alert.AlertSlowResponse, map[string]interface{}{
			"endpoint":       m.Endpoint,
			"method":         m.Method,
			"responseTimeMs": m.ResponseTime.Milliseconds(),
			"thresholdMs":    slowResponseThreshold.Milliseconds(),
		})
	}

	errorClassified := m.StatusCode >= 400
	if !errorClassified && !c.sampled() {
		return
	}

	c.stampDevice(&m.ID, &m.Timestamp, &m.SessionID, &m.DeviceClass)
	c.queues.Enqueue(v1alpha1.CategoryAPIPerformance, m)
}

// CollectWebVitals records page rendering measurements. LCP and CLS threshold
// alerts run on every validated call regardless of sampling.
func (c *Collector) CollectWebVitals(v v1alpha1.WebVitals) {
	if err := validateWebVitals(v); err != nil {
		c.dropInvalid(v1alpha1.CategoryWebVitals, err)
		return
	}

	if v.LCP > poorLCPThreshold {
		c.alerts.Emit(alert.AlertPoorLCP, map[string]interface{}{
			"page":        v.Page,
			"lcpMs":       v.LCP.Milliseconds(),
			"thresholdMs": poorLCPThreshold.Milliseconds(),
		})
	}
	if v.CLS > poorCLSThreshold {
		c.alerts.Emit(alert.AlertPoorCLS, map[string]interface{}{
			"page":      v.Page,
			"cls":       v.CLS,
			"threshold": poorCLSThreshold,
		})
	}

	if !c.sampled() {
		return
	}

	c.stampDevice(&v.ID, &v.Timestamp, &v.SessionID, &v.DeviceClass)
	c.queues.Enqueue(v1alpha1.CategoryWebVitals, v)
}

// CollectUserJourney records a journey telemetry event. Error and conversion
// events bypass sampling and flush their category immediately.
func (c *Collector) CollectUserJourney(e v1alpha1.UserJourneyEvent) {
	if err := validateUserJourney(e); err != nil {
		c.dropInvalid(v1alpha1.CategoryUserJourney, err)
		return
	}

	highPriority := e.EventType == v1alpha1.JourneyEventError ||
		e.EventType == v1alpha1.JourneyEventConversion
	if !highPriority && !c.sampled() {
		return
	}

	c.stampDevice(&e.ID, &e.Timestamp, &e.SessionID, &e.DeviceClass)
	c.queues.Enqueue(v1alpha1.CategoryUserJourney, e)

	if highPriority {
		c.queues.FlushAsync(v1alpha1.CategoryUserJourney)
	}
}

// CollectBusinessMetric records a named business measurement.
func (c *Collector) CollectBusinessMetric(m v1alpha1.BusinessMetric) {
	if err := validateBusinessMetric(m); err != nil {
		c.dropInvalid(v1alpha1.CategoryBusinessMetric, err)
		return
	}

	if !c.sampled() {
		return
	}

	c.stamp(&m.ID, &m.Timestamp, &m.SessionID)
	c.queues.Enqueue(v1alpha1.CategoryBusinessMetric, m)
}

// CollectUsability records a discrete user interaction.
func (c *Collector) CollectUsability(e v1alpha1.UsabilityEvent) {
	if err := validateUsability(e); err != nil {
		c.dropInvalid(v1alpha1.CategoryUsability, err)
		return
	}

	if !c.sampled() {
		return
	}

	c.stamp(&e.ID, &e.Timestamp, &e.SessionID)
	c.queues.Enqueue(v1alpha1.CategoryUsability, e)
}

// CollectDataQuality records a data validation result. Data quality events
// are never sampled out.
func (c *Collector) CollectDataQuality(m v1alpha1.DataQualityMetric) {
	if err := validateDataQuality(m); err != nil {
		c.dropInvalid(v1alpha1.CategoryDataQuality, err)
		return
	}

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	c.queues.Enqueue(v1alpha1.CategoryDataQuality, m)
}

// CaptureError converts a host application failure into a high-priority
// user_journey error event. Captured errors are never sampled out and flush
// immediately.
func (c *Collector) CaptureError(source string, err error) {
	if err == nil {
		return
	}
	c.CollectUserJourney(v1alpha1.UserJourneyEvent{
		EventType: v1alpha1.JourneyEventError,
		Error:     err.Error(),
		Metadata:  map[string]interface{}{"source": source},
	})
}

// Recover converts a panic in the calling goroutine into an error event and
// swallows it. Intended for use in host callbacks the application cannot
// afford to crash:
//
//	defer collector.Recover("render-loop")
func (c *Collector) Recover(source string) {
	r := recover()
	if r == nil {
		return
	}
	c.CaptureError(source, fmt.Errorf("panic: %v", r))
	c.logger.Error("recovered panic", "source", source, "panic", r)
}

// sampled reports whether a sampled event survives the uniform draw.
func (c *Collector) sampled() bool {
	return c.randFn() < c.opts.SamplingRate
}

func (c *Collector) stamp(id *uuid.UUID, ts *time.Time, sessionID *string) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	if ts.IsZero() {
		*ts = time.Now().UTC()
	}
	if *sessionID == "" {
		*sessionID = c.sessionID
	}
}

func (c *Collector) stampDevice(id *uuid.UUID, ts *time.Time, sessionID, deviceClass *string) {
	c.stamp(id, ts, sessionID)
	if *deviceClass == "" {
		*deviceClass = c.opts.DeviceClass
	}
}

func (c *Collector) dropInvalid(category v1alpha1.Category, err error) {
	if c.opts.DebugMode {
		c.logger.Warn("dropping invalid event", "category", category, "error", err)
		return
	}
	c.logger.Debug("dropping invalid event", "category", category, "error", err)
}
