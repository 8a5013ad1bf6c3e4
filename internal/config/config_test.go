package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/queryscope/queryscope/internal/config"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.DefaultOpenMinInterval, cfg.Triggers.OpenMinInterval)
	assert.Equal(t, config.DefaultSaveMinInterval, cfg.Triggers.SaveMinInterval)
	assert.Equal(t, config.DefaultChangeDebounce, cfg.Triggers.ChangeDebounce)
	assert.Equal(t, config.DefaultSelectionDelay, cfg.Selection.Delay)
	assert.Equal(t, config.DefaultSelectionCap, cfg.Selection.Cap)
	assert.Equal(t, config.DefaultWillSaveGrace, cfg.SaveClose.WillSaveGrace)
	assert.Equal(t, int64(config.DefaultScanWarnBytes), cfg.Analysis.ScanWarnBytes)
	assert.Equal(t, config.DefaultEstimateTimeout, cfg.Analysis.EstimateTimeout)
	assert.True(t, cfg.Analysis.TrackDryRuns)
	assert.True(t, cfg.Presentation.Status)
	assert.True(t, cfg.Presentation.Diagnostics)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.Empty(t, cfg.BigQuery.Project)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queryscope.yaml")

	content := `
triggers:
  open_min_interval: 5s
  change_debounce: 750ms
selection:
  cap: 9
analysis:
  scan_warn_bytes: 1048576
  track_dry_runs: false
presentation:
  diagnostics: false
bigquery:
  project: acme-analytics
  location: EU
observability:
  log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Triggers.OpenMinInterval)
	assert.Equal(t, 750*time.Millisecond, cfg.Triggers.ChangeDebounce)
	assert.Equal(t, 9, cfg.Selection.Cap)
	assert.Equal(t, int64(1048576), cfg.Analysis.ScanWarnBytes)
	assert.False(t, cfg.Analysis.TrackDryRuns)
	assert.False(t, cfg.Presentation.Diagnostics)
	assert.True(t, cfg.Presentation.Status)
	assert.Equal(t, "acme-analytics", cfg.BigQuery.Project)
	assert.Equal(t, "EU", cfg.BigQuery.Location)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)

	// File values override only what they name.
	assert.Equal(t, config.DefaultSaveMinInterval, cfg.Triggers.SaveMinInterval)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("QUERYSCOPE_BIGQUERY_PROJECT", "env-project")
	t.Setenv("QUERYSCOPE_OBSERVABILITY_LOG_LEVEL", "warn")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-project", cfg.BigQuery.Project)
	assert.Equal(t, "warn", cfg.Observability.LogLevel)
}

func TestLoad_InvalidFileRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queryscope.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  estimate_timeout: -3s\n"), 0o600))

	_, err := config.Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrNonPositive)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *config.Config {
		cfg, err := config.Load("")
		require.NoError(t, err)

		return cfg
	}

	t.Run("defaults pass", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, valid().Validate())
	})

	t.Run("negative interval", func(t *testing.T) {
		t.Parallel()

		cfg := valid()
		cfg.Triggers.SelectionMinInterval = -time.Second
		assert.ErrorIs(t, cfg.Validate(), config.ErrNegativeInterval)
	})

	t.Run("zero debounce", func(t *testing.T) {
		t.Parallel()

		cfg := valid()
		cfg.Triggers.ChangeDebounce = 0
		assert.ErrorIs(t, cfg.Validate(), config.ErrNonPositive)
	})

	t.Run("zero storm cap", func(t *testing.T) {
		t.Parallel()

		cfg := valid()
		cfg.Selection.Cap = 0
		assert.ErrorIs(t, cfg.Validate(), config.ErrNonPositive)
	})

	t.Run("zero warn threshold", func(t *testing.T) {
		t.Parallel()

		cfg := valid()
		cfg.Analysis.ScanWarnBytes = 0
		assert.ErrorIs(t, cfg.Validate(), config.ErrNonPositive)
	})

	t.Run("bad log level", func(t *testing.T) {
		t.Parallel()

		cfg := valid()
		cfg.Observability.LogLevel = "verbose"
		assert.ErrorIs(t, cfg.Validate(), config.ErrBadLogLevel)
	})

	t.Run("both channels off still loads", func(t *testing.T) {
		t.Parallel()

		cfg := valid()
		cfg.Presentation.Status = false
		cfg.Presentation.Diagnostics = false
		assert.NoError(t, cfg.Validate())
	})
}
