package journey

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waypost/waypost/api/types/v1alpha1"
)

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name    string
		defs    []v1alpha1.JourneyDefinition
		wantErr string
	}{
		{
			name: "valid catalog",
			defs: DefaultCatalog(),
		},
		{
			name: "missing type",
			defs: []v1alpha1.JourneyDefinition{
				{Steps: []v1alpha1.JourneyStep{{ID: "a"}}},
			},
			wantErr: "missing type",
		},
		{
			name: "no steps",
			defs: []v1alpha1.JourneyDefinition{
				{Type: "empty"},
			},
			wantErr: "has no steps",
		},
		{
			name: "duplicate step id",
			defs: []v1alpha1.JourneyDefinition{
				{Type: "dup", Steps: []v1alpha1.JourneyStep{{ID: "a"}, {ID: "a"}}},
			},
			wantErr: "duplicate step",
		},
		{
			name: "all steps optional",
			defs: []v1alpha1.JourneyDefinition{
				{Type: "opt", Steps: []v1alpha1.JourneyStep{{ID: "a", Optional: true}}},
			},
			wantErr: "no required steps",
		},
		{
			name: "duplicate journey type",
			defs: []v1alpha1.JourneyDefinition{
				{Type: "dup", Steps: []v1alpha1.JourneyStep{{ID: "a"}}},
				{Type: "dup", Steps: []v1alpha1.JourneyStep{{ID: "b"}}},
			},
			wantErr: "duplicate journey type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRegistry(tt.defs...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, r.Types(), len(tt.defs))
		})
	}
}

func TestRegistryGet(t *testing.T) {
	r, err := NewRegistry(DefaultCatalog()...)
	require.NoError(t, err)

	def, ok := r.Get("onboarding")
	require.True(t, ok)
	assert.Equal(t, []string{"signup", "first_dashboard"}, def.RequiredSteps())

	step, ok := def.Step("signup")
	require.True(t, ok)
	assert.Equal(t, 2*time.Minute, step.ExpectedMaxDuration)

	_, ok = r.Get("unknown")
	assert.False(t, ok)
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journeys.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
journeys:
  - type: upgrade
    name: Plan upgrade
    steps:
      - id: compare
        name: Compare plans
        expectedMaxDuration: 1m
      - id: pay
        name: Pay
        expectedMaxDuration: 2m
        businessValue: 25
    thresholds:
      maxAbandonmentRate: 0.3
`), 0o600))

	defs, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "upgrade", defs[0].Type)
	require.Len(t, defs[0].Steps, 2)
	assert.Equal(t, time.Minute, defs[0].Steps[0].ExpectedMaxDuration)
	assert.Equal(t, 25.0, defs[0].Steps[1].BusinessValue)
	assert.Equal(t, 0.3, defs[0].Thresholds.MaxAbandonmentRate)
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
