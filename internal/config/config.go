// Package config defines the queryscope configuration model and its
// loader. Settings come from defaults, an optional YAML file, and
// QUERYSCOPE_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Default trigger cool-downs. Each trigger class carries its own
// minimum interval between runs; a changed document overrides the
// cool-down unconditionally.
const (
	DefaultManualMinInterval    = 0 * time.Second
	DefaultOpenMinInterval      = 30 * time.Second
	DefaultSaveMinInterval      = 10 * time.Second
	DefaultChangeMinInterval    = 30 * time.Second
	DefaultSelectionMinInterval = 15 * time.Second
)

// Default debounce and stabilization windows.
const (
	DefaultChangeDebounce    = 2 * time.Second
	DefaultSelectionDelay    = 500 * time.Millisecond
	DefaultSelectionCap      = 5
	DefaultSelectionWindow   = 2 * time.Second
	DefaultWillSaveGrace     = 300 * time.Millisecond
	DefaultCloseHold         = time.Second
	DefaultEstimateTimeout   = 30 * time.Second
	DefaultShortErrorRunes   = 140
	DefaultScanWarnBytes     = 100 * 1024 * 1024 * 1024 // 100 GiB
	DefaultTrackDryRuns      = true
	DefaultStatusEnabled     = true
	DefaultDiagnosticsOn     = true
	DefaultObservabilityJSON = false
)

// Config is the root configuration.
type Config struct {
	Triggers      TriggersConfig      `mapstructure:"triggers"`
	Selection     SelectionConfig     `mapstructure:"selection"`
	SaveClose     SaveCloseConfig     `mapstructure:"save_close"`
	Analysis      AnalysisConfig      `mapstructure:"analysis"`
	Presentation  PresentationConfig  `mapstructure:"presentation"`
	BigQuery      BigQueryConfig      `mapstructure:"bigquery"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// TriggersConfig holds the per-trigger-class rate-gate cool-downs and
// the edit debounce window.
type TriggersConfig struct {
	ManualMinInterval    time.Duration `mapstructure:"manual_min_interval"`
	OpenMinInterval      time.Duration `mapstructure:"open_min_interval"`
	SaveMinInterval      time.Duration `mapstructure:"save_min_interval"`
	ChangeMinInterval    time.Duration `mapstructure:"change_min_interval"`
	SelectionMinInterval time.Duration `mapstructure:"selection_min_interval"`
	ChangeDebounce       time.Duration `mapstructure:"change_debounce"`
}

// SelectionConfig holds selection stabilization settings.
type SelectionConfig struct {
	Delay  time.Duration `mapstructure:"delay"`
	Cap    int           `mapstructure:"cap"`
	Window time.Duration `mapstructure:"window"`
}

// SaveCloseConfig holds the save-on-close heuristic windows.
type SaveCloseConfig struct {
	WillSaveGrace time.Duration `mapstructure:"will_save_grace"`
	CloseHold     time.Duration `mapstructure:"close_hold"`
}

// AnalysisConfig holds estimate behavior settings.
type AnalysisConfig struct {
	ScanWarnBytes   int64         `mapstructure:"scan_warn_bytes"`
	EstimateTimeout time.Duration `mapstructure:"estimate_timeout"`
	TrackDryRuns    bool          `mapstructure:"track_dry_runs"`
	ShortErrorRunes int           `mapstructure:"short_error_runes"`
}

// PresentationConfig toggles the two result channels. Disabling both
// is a user-actionable misconfiguration reported at run time: with no
// channel there is no way to deliver a result, so runs abort before
// the remote call.
type PresentationConfig struct {
	Status      bool `mapstructure:"status"`
	Diagnostics bool `mapstructure:"diagnostics"`
}

// BigQueryConfig identifies the project the dry runs bill their quota
// against. An empty project resolves from the environment.
type BigQueryConfig struct {
	Project         string `mapstructure:"project"`
	Location        string `mapstructure:"location"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// ObservabilityConfig holds logging and telemetry settings.
type ObservabilityConfig struct {
	LogLevel     string            `mapstructure:"log_level"`
	LogJSON      bool              `mapstructure:"log_json"`
	OTLPEndpoint string            `mapstructure:"otlp_endpoint"`
	OTLPHeaders  map[string]string `mapstructure:"otlp_headers"`
	OTLPInsecure bool              `mapstructure:"otlp_insecure"`
	MetricsAddr  string            `mapstructure:"metrics_addr"`
	Environment  string            `mapstructure:"environment"`
}

// Validation errors.
var (
	ErrNegativeInterval = errors.New("trigger intervals must not be negative")
	ErrNonPositive      = errors.New("value must be positive")
	ErrBadLogLevel      = errors.New("log_level must be one of debug, info, warn, error")
)

// logLevels are the accepted log_level values.
var logLevels = map[string]struct{}{
	"": {}, "debug": {}, "info": {}, "warn": {}, "error": {},
}

// Validate rejects contradictory or out-of-range settings. Disabling
// both presentation channels is deliberately allowed here; it is
// reported per attempted run instead, so a user toggling channels at
// runtime is not locked out of loading the config at all.
func (c *Config) Validate() error {
	intervals := []time.Duration{
		c.Triggers.ManualMinInterval,
		c.Triggers.OpenMinInterval,
		c.Triggers.SaveMinInterval,
		c.Triggers.ChangeMinInterval,
		c.Triggers.SelectionMinInterval,
	}

	for _, iv := range intervals {
		if iv < 0 {
			return ErrNegativeInterval
		}
	}

	positives := map[string]int64{
		"triggers.change_debounce":   int64(c.Triggers.ChangeDebounce),
		"selection.delay":            int64(c.Selection.Delay),
		"selection.cap":              int64(c.Selection.Cap),
		"selection.window":           int64(c.Selection.Window),
		"save_close.will_save_grace": int64(c.SaveClose.WillSaveGrace),
		"save_close.close_hold":      int64(c.SaveClose.CloseHold),
		"analysis.scan_warn_bytes":   c.Analysis.ScanWarnBytes,
		"analysis.estimate_timeout":  int64(c.Analysis.EstimateTimeout),
		"analysis.short_error_runes": int64(c.Analysis.ShortErrorRunes),
	}

	for name, v := range positives {
		if v <= 0 {
			return fmt.Errorf("%s: %w", name, ErrNonPositive)
		}
	}

	if _, ok := logLevels[c.Observability.LogLevel]; !ok {
		return fmt.Errorf("%q: %w", c.Observability.LogLevel, ErrBadLogLevel)
	}

	return nil
}
