package trial_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkmeet/trialkit/pkg/trial"
)

func TestYAMLPlans(t *testing.T) {
	t.Parallel()

	t.Run("loads catalog", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "plans.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
plans:
  - id: trial-monthly
    name: Trial Monthly
    processor_plan_id: P-TRIAL-M
    trial_days: 7
  - id: trial-annual
    name: Trial Annual
    processor_plan_id: P-TRIAL-A
    trial_days: 14
`), 0o600))

		plans, err := trial.YAMLPlans{Path: path}.Load(context.Background())
		require.NoError(t, err)
		require.Len(t, plans, 2)
		assert.Equal(t, "P-TRIAL-M", plans["trial-monthly"].ProcessorPlanID)
		assert.Equal(t, 14, plans["trial-annual"].TrialDays)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := trial.YAMLPlans{Path: "/does/not/exist.yaml"}.Load(context.Background())
		assert.ErrorIs(t, err, trial.ErrFailedToLoadPlans)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "plans.yaml")
		require.NoError(t, os.WriteFile(path, []byte("plans: [whoops"), 0o600))

		_, err := trial.YAMLPlans{Path: path}.Load(context.Background())
		assert.ErrorIs(t, err, trial.ErrFailedToLoadPlans)
	})
}
