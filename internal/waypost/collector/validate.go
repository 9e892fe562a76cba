package collector

import (
	"fmt"

	"github.com/waypost/waypost/api/types/v1alpha1"
	werrors "github.com/waypost/waypost/internal/waypost/errors"
)

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", werrors.ErrValidation, reason)
}

func validateAPIPerformance(m v1alpha1.APIPerformanceMetric) error {
	if m.Endpoint == "" {
		return invalid("endpoint is required")
	}
	if m.Method == "" {
		return invalid("method is required")
	}
	if m.StatusCode < 100 || m.StatusCode > 599 {
		return invalid(fmt.Sprintf("status code out of range: %d", m.StatusCode))
	}
	if m.ResponseTime < 0 {
		return invalid("negative response time")
	}
	return nil
}

func validateWebVitals(v v1alpha1.WebVitals) error {
	if v.Page == "" {
		return invalid("page is required")
	}
	if v.LCP < 0 || v.FID < 0 || v.TTFB < 0 {
		return invalid("negative timing value")
	}
	if v.CLS < 0 {
		return invalid("negative layout shift")
	}
	return nil
}

func validateUserJourney(e v1alpha1.UserJourneyEvent) error {
	switch e.EventType {
	case v1alpha1.JourneyEventStarted,
		v1alpha1.JourneyEventStep,
		v1alpha1.JourneyEventError,
		v1alpha1.JourneyEventConversion,
		v1alpha1.JourneyEventAbandoned:
	default:
		return invalid(fmt.Sprintf("unknown journey event type: %q", e.EventType))
	}
	if e.EventType == v1alpha1.JourneyEventStep && e.StepID == "" {
		return invalid("step events require a step id")
	}
	return nil
}

func validateBusinessMetric(m v1alpha1.BusinessMetric) error {
	if m.Name == "" {
		return invalid("metric name is required")
	}
	return nil
}

func validateUsability(e v1alpha1.UsabilityEvent) error {
	if e.Action == "" {
		return invalid("action is required")
	}
	return nil
}

func validateDataQuality(m v1alpha1.DataQualityMetric) error {
	if m.Source == "" {
		return invalid("source is required")
	}
	if m.Check == "" {
		return invalid("check is required")
	}
	return nil
}
