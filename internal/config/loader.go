package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".queryscope"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for queryscope settings.
const envPrefix = "QUERYSCOPE"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Load loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file
// path. Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func Load(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("triggers.manual_min_interval", DefaultManualMinInterval)
	viperCfg.SetDefault("triggers.open_min_interval", DefaultOpenMinInterval)
	viperCfg.SetDefault("triggers.save_min_interval", DefaultSaveMinInterval)
	viperCfg.SetDefault("triggers.change_min_interval", DefaultChangeMinInterval)
	viperCfg.SetDefault("triggers.selection_min_interval", DefaultSelectionMinInterval)
	viperCfg.SetDefault("triggers.change_debounce", DefaultChangeDebounce)

	viperCfg.SetDefault("selection.delay", DefaultSelectionDelay)
	viperCfg.SetDefault("selection.cap", DefaultSelectionCap)
	viperCfg.SetDefault("selection.window", DefaultSelectionWindow)

	viperCfg.SetDefault("save_close.will_save_grace", DefaultWillSaveGrace)
	viperCfg.SetDefault("save_close.close_hold", DefaultCloseHold)

	viperCfg.SetDefault("analysis.scan_warn_bytes", DefaultScanWarnBytes)
	viperCfg.SetDefault("analysis.estimate_timeout", DefaultEstimateTimeout)
	viperCfg.SetDefault("analysis.track_dry_runs", DefaultTrackDryRuns)
	viperCfg.SetDefault("analysis.short_error_runes", DefaultShortErrorRunes)

	viperCfg.SetDefault("presentation.status", DefaultStatusEnabled)
	viperCfg.SetDefault("presentation.diagnostics", DefaultDiagnosticsOn)

	// Keys without a meaningful default still need registering or
	// AutomaticEnv values are invisible to Unmarshal.
	viperCfg.SetDefault("bigquery.project", "")
	viperCfg.SetDefault("bigquery.location", "")
	viperCfg.SetDefault("bigquery.credentials_file", "")

	viperCfg.SetDefault("observability.log_level", "info")
	viperCfg.SetDefault("observability.log_json", DefaultObservabilityJSON)
	viperCfg.SetDefault("observability.otlp_endpoint", "")
	viperCfg.SetDefault("observability.otlp_insecure", false)
	viperCfg.SetDefault("observability.metrics_addr", "")
	viperCfg.SetDefault("observability.environment", "")
}
