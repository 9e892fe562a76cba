// Package journey tracks multi-step user workflows as explicit state
// machines and aggregates completion and abandonment analytics.
package journey

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/waypost/waypost/api/types/v1alpha1"
)

// Registry is the immutable catalog of journey definitions. It is built once
// at monitor initialization and never mutated afterwards.
type Registry struct {
	defs map[string]v1alpha1.JourneyDefinition
}

// NewRegistry builds a registry from the given definitions.
func NewRegistry(defs ...v1alpha1.JourneyDefinition) (*Registry, error) {
	r := &Registry{defs: make(map[string]v1alpha1.JourneyDefinition, len(defs))}
	for _, def := range defs {
		if err := validateDefinition(def); err != nil {
			return nil, err
		}
		if _, exists := r.defs[def.Type]; exists {
			return nil, fmt.Errorf("duplicate journey type %q", def.Type)
		}
		r.defs[def.Type] = def
	}
	return r, nil
}

// Get returns the definition for a journey type.
func (r *Registry) Get(journeyType string) (v1alpha1.JourneyDefinition, bool) {
	def, ok := r.defs[journeyType]
	return def, ok
}

// Types returns every registered journey type.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.defs))
	for t := range r.defs {
		types = append(types, t)
	}
	return types
}

func validateDefinition(def v1alpha1.JourneyDefinition) error {
	if def.Type == "" {
		return fmt.Errorf("journey definition missing type")
	}
	if len(def.Steps) == 0 {
		return fmt.Errorf("journey %q has no steps", def.Type)
	}
	seen := make(map[string]struct{}, len(def.Steps))
	required := 0
	for _, step := range def.Steps {
		if step.ID == "" {
			return fmt.Errorf("journey %q has a step without an id", def.Type)
		}
		if _, dup := seen[step.ID]; dup {
			return fmt.Errorf("journey %q has duplicate step %q", def.Type, step.ID)
		}
		seen[step.ID] = struct{}{}
		if !step.Optional {
			required++
		}
	}
	if required == 0 {
		return fmt.Errorf("journey %q has no required steps", def.Type)
	}
	return nil
}

// catalogFile is the YAML shape of an on-disk journey catalog.
type catalogFile struct {
	Journeys []v1alpha1.JourneyDefinition `yaml:"journeys"`
}

// LoadCatalog reads journey definitions from a YAML file.
func LoadCatalog(path string) ([]v1alpha1.JourneyDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading journey catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing journey catalog: %w", err)
	}
	return file.Journeys, nil
}

// DefaultCatalog returns the built-in journey definitions used when no
// catalog file is configured.
func DefaultCatalog() []v1alpha1.JourneyDefinition {
	return []v1alpha1.JourneyDefinition{
		{
			Type: "onboarding",
			Name: "New user onboarding",
			Steps: []v1alpha1.JourneyStep{
				{ID: "landing", Name: "Landing page", ExpectedMaxDuration: 30 * time.Second, Optional: true},
				{ID: "signup", Name: "Account signup", ExpectedMaxDuration: 2 * time.Minute, BusinessValue: 10},
				{ID: "first_dashboard", Name: "First dashboard view", ExpectedMaxDuration: time.Minute, BusinessValue: 5},
			},
			MaxTotalDuration: 10 * time.Minute,
			Thresholds: v1alpha1.AlertThresholds{
				MaxAbandonmentRate: 0.4,
				MaxAvgDuration:     5 * time.Minute,
				MaxErrorRate:       0.1,
			},
		},
		{
			Type: "checkout",
			Name: "Checkout",
			Steps: []v1alpha1.JourneyStep{
				{ID: "cart", Name: "Cart review", ExpectedMaxDuration: time.Minute},
				{ID: "shipping", Name: "Shipping details", ExpectedMaxDuration: 2 * time.Minute},
				{ID: "payment", Name: "Payment", ExpectedMaxDuration: 2 * time.Minute, BusinessValue: 50},
				{ID: "confirmation", Name: "Order confirmation", ExpectedMaxDuration: 30 * time.Second, Optional: true},
			},
			MaxTotalDuration: 15 * time.Minute,
			Thresholds: v1alpha1.AlertThresholds{
				MaxAbandonmentRate: 0.25,
				MaxAvgDuration:     8 * time.Minute,
				MaxErrorRate:       0.05,
			},
		},
	}
}
