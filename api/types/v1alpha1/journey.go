package v1alpha1

import "time"

// JourneyStep is one step inside a journey definition.
type JourneyStep struct {
	ID                  string        `json:"id" yaml:"id"`
	Name                string        `json:"name" yaml:"name"`
	ExpectedMaxDuration time.Duration `json:"expectedMaxDuration" yaml:"expectedMaxDuration"`
	Optional            bool          `json:"optional,omitempty" yaml:"optional"`
	BusinessValue       float64       `json:"businessValue,omitempty" yaml:"businessValue"`
}

// AlertThresholds holds the per-journey limits that trigger alerts when
// exceeded.
type AlertThresholds struct {
	MaxAbandonmentRate float64       `json:"maxAbandonmentRate" yaml:"maxAbandonmentRate"`
	MaxAvgDuration     time.Duration `json:"maxAvgDuration" yaml:"maxAvgDuration"`
	MaxErrorRate       float64       `json:"maxErrorRate" yaml:"maxErrorRate"`
}

// JourneyDefinition is an immutable catalog entry describing a tracked
// multi-step workflow. Definitions are registered once at monitor
// initialization and never mutated.
type JourneyDefinition struct {
	Type             string          `json:"type" yaml:"type"`
	Name             string          `json:"name" yaml:"name"`
	Steps            []JourneyStep   `json:"steps" yaml:"steps"`
	MaxTotalDuration time.Duration   `json:"maxTotalDuration" yaml:"maxTotalDuration"`
	Thresholds       AlertThresholds `json:"thresholds" yaml:"thresholds"`
}

// RequiredSteps returns the ids of every non-optional step.
func (d JourneyDefinition) RequiredSteps() []string {
	var ids []string
	for _, s := range d.Steps {
		if !s.Optional {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// Step returns the step with the given id, if present.
func (d JourneyDefinition) Step(id string) (JourneyStep, bool) {
	for _, s := range d.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return JourneyStep{}, false
}

// JourneyState tracks the lifecycle of one journey instance.
type JourneyState string

const (
	JourneyInFlight  JourneyState = "in_flight"
	JourneyCompleted JourneyState = "completed"
	JourneyAbandoned JourneyState = "abandoned"
)

// Terminal reports whether the state admits no further transitions.
func (s JourneyState) Terminal() bool {
	return s == JourneyCompleted || s == JourneyAbandoned
}

// JourneyStats accumulates per-type outcomes. Rates are recomputed whenever
// an instance reaches a terminal state.
type JourneyStats struct {
	Type            string        `json:"type"`
	TotalStarted    int64         `json:"totalStarted"`
	TotalCompleted  int64         `json:"totalCompleted"`
	TotalAbandoned  int64         `json:"totalAbandoned"`
	CompletionRate  float64       `json:"completionRate"`
	AbandonmentRate float64       `json:"abandonmentRate"`
	AvgDuration     time.Duration `json:"avgDuration"`
	RecentDropOffs  []string      `json:"recentDropOffs,omitempty"`
}

// JourneySnapshot is the terminal record of one journey instance, kept for
// analytics after the instance leaves the active set.
type JourneySnapshot struct {
	JourneyID      string        `json:"journeyId"`
	Type           string        `json:"type"`
	UserID         string        `json:"userId,omitempty"`
	SessionID      string        `json:"sessionId,omitempty"`
	State          JourneyState  `json:"state"`
	StartedAt      time.Time     `json:"startedAt"`
	EndedAt        time.Time     `json:"endedAt"`
	Duration       time.Duration `json:"duration"`
	CompletedSteps []string      `json:"completedSteps,omitempty"`
	LastStep       string        `json:"lastStep,omitempty"`
	AbandonReason  string        `json:"abandonReason,omitempty"`
	ErrorCount     int           `json:"errorCount"`
}
