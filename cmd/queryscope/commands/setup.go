// Package commands implements the queryscope subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/queryscope/queryscope/internal/config"
	"github.com/queryscope/queryscope/internal/estimate"
	"github.com/queryscope/queryscope/internal/observability"
	"github.com/queryscope/queryscope/pkg/version"
)

// loadConfig resolves the --config flag and loads the configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path = ""
	}

	return config.Load(path)
}

// initObservability builds providers from the loaded configuration for
// the given execution mode. Stdio modes force JSON logs off stdout's
// sibling stderr either way; the log format follows config.
func initObservability(cfg *config.Config, mode observability.AppMode, debug bool) (observability.Providers, error) {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.Environment = cfg.Observability.Environment
	obsCfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	obsCfg.OTLPHeaders = cfg.Observability.OTLPHeaders
	obsCfg.OTLPInsecure = cfg.Observability.OTLPInsecure
	obsCfg.MetricsAddr = cfg.Observability.MetricsAddr
	obsCfg.LogJSON = cfg.Observability.LogJSON
	obsCfg.LogLevel = parseLogLevel(cfg.Observability.LogLevel)

	if debug {
		obsCfg.LogLevel = slog.LevelDebug
	}

	return observability.Init(obsCfg)
}

// parseLogLevel maps the config string onto an slog level, info when
// unset.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newEstimator builds the BigQuery-backed estimator from config.
func newEstimator(ctx context.Context, cfg *config.Config) (*estimate.BigQuery, error) {
	var opts []option.ClientOption
	if cfg.BigQuery.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.BigQuery.CredentialsFile))
	}

	est, err := estimate.NewBigQuery(ctx, cfg.BigQuery.Project, cfg.BigQuery.Location, opts...)
	if err != nil {
		return nil, fmt.Errorf("create estimator: %w", err)
	}

	return est, nil
}
