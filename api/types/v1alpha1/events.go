package v1alpha1

import (
	"time"

	"github.com/google/uuid"
)

// Category identifies a telemetry event stream. Each category is buffered,
// batched and delivered independently.
type Category string

const (
	CategoryBusinessMetric Category = "business_metric"
	CategoryUserJourney    Category = "user_journey"
	CategoryAPIPerformance Category = "api_performance"
	CategoryWebVitals      Category = "web_vitals"
	CategoryUsability      Category = "usability"
	CategoryDataQuality    Category = "data_quality"
)

// KnownCategories lists every category the collector creates a queue for at
// initialization. Unknown categories are still accepted and created lazily.
var KnownCategories = []Category{
	CategoryBusinessMetric,
	CategoryUserJourney,
	CategoryAPIPerformance,
	CategoryWebVitals,
	CategoryUsability,
	CategoryDataQuality,
}

// JourneyEventType classifies user_journey events. Error and conversion
// events are high priority: they bypass sampling and flush immediately.
type JourneyEventType string

const (
	JourneyEventStarted    JourneyEventType = "started"
	JourneyEventStep       JourneyEventType = "step"
	JourneyEventError      JourneyEventType = "error"
	JourneyEventConversion JourneyEventType = "conversion"
	JourneyEventAbandoned  JourneyEventType = "abandoned"
)

// Event is implemented by every telemetry payload shape. Events are immutable
// once enqueued; ownership passes to the transport on send and back to the
// retry queue on failure.
type Event interface {
	Kind() Category
}

// BusinessMetric records a named business measurement.
type BusinessMetric struct {
	ID         uuid.UUID         `json:"id"`
	Name       string            `json:"name"`
	Value      float64           `json:"value"`
	Unit       string            `json:"unit,omitempty"`
	Dimensions map[string]string `json:"dimensions,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	SessionID  string            `json:"sessionId,omitempty"`
}

func (BusinessMetric) Kind() Category { return CategoryBusinessMetric }

// UserJourneyEvent records progress, errors and conversions inside a tracked
// multi-step workflow.
type UserJourneyEvent struct {
	ID          uuid.UUID              `json:"id"`
	EventType   JourneyEventType       `json:"eventType"`
	JourneyType string                 `json:"journeyType,omitempty"`
	JourneyID   string                 `json:"journeyId,omitempty"`
	StepID      string                 `json:"stepId,omitempty"`
	Duration    time.Duration          `json:"durationMs,omitempty"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	SessionID   string                 `json:"sessionId,omitempty"`
	DeviceClass string                 `json:"deviceClass,omitempty"`
}

func (UserJourneyEvent) Kind() Category { return CategoryUserJourney }

// APIPerformanceMetric records the outcome of a single upstream API call.
type APIPerformanceMetric struct {
	ID           uuid.UUID     `json:"id"`
	Endpoint     string        `json:"endpoint"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"statusCode"`
	ResponseTime time.Duration `json:"responseTimeMs"`
	PayloadBytes int64         `json:"payloadBytes,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
	SessionID    string        `json:"sessionId,omitempty"`
	DeviceClass  string        `json:"deviceClass,omitempty"`
}

func (APIPerformanceMetric) Kind() Category { return CategoryAPIPerformance }

// WebVitals records core rendering-performance measurements for a page view.
type WebVitals struct {
	ID          uuid.UUID     `json:"id"`
	Page        string        `json:"page"`
	LCP         time.Duration `json:"lcpMs,omitempty"`
	CLS         float64       `json:"cls,omitempty"`
	FID         time.Duration `json:"fidMs,omitempty"`
	TTFB        time.Duration `json:"ttfbMs,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	SessionID   string        `json:"sessionId,omitempty"`
	DeviceClass string        `json:"deviceClass,omitempty"`
}

func (WebVitals) Kind() Category { return CategoryWebVitals }

// UsabilityEvent records a discrete user interaction.
type UsabilityEvent struct {
	ID        uuid.UUID              `json:"id"`
	Action    string                 `json:"action"`
	Target    string                 `json:"target,omitempty"`
	Page      string                 `json:"page,omitempty"`
	Duration  time.Duration          `json:"durationMs,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	SessionID string                 `json:"sessionId,omitempty"`
}

func (UsabilityEvent) Kind() Category { return CategoryUsability }

// DataQualityMetric records the result of a data validation check. Data
// quality events are never sampled out.
type DataQualityMetric struct {
	ID          uuid.UUID              `json:"id"`
	Source      string                 `json:"source"`
	Check       string                 `json:"check"`
	Passed      bool                   `json:"passed"`
	RecordCount int64                  `json:"recordCount,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

func (DataQualityMetric) Kind() Category { return CategoryDataQuality }
