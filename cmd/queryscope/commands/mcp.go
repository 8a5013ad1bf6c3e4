package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/queryscope/queryscope/internal/mcp"
	"github.com/queryscope/queryscope/internal/observability"
	"github.com/queryscope/queryscope/pkg/version"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The MCP server exposes the query cost estimator as tools that AI agents
can discover and invoke:
  - queryscope_estimate: Dry-run a SQL query and report the bytes it would scan
  - queryscope_stats: Report the session's dry-run statistics`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cobraCmd)
			if err != nil {
				return err
			}

			providers, err := initObservability(cfg, observability.ModeMCP, debug)
			if err != nil {
				return err
			}

			defer func() {
				shutdownErr := providers.Shutdown(context.Background())
				if shutdownErr != nil {
					providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			metrics, err := observability.NewTriggerMetrics(providers.Meter)
			if err != nil {
				return err
			}

			est, err := newEstimator(cobraCmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer est.Close()

			srv := mcp.NewServer(mcp.ServerDeps{
				Estimator: est,
				Logger:    providers.Logger,
				Metrics:   metrics,
				Tracer:    providers.Tracer,
				Version:   version.Version,
			})

			return srv.Run(cobraCmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}
