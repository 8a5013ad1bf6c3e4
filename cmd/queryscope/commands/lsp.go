package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/queryscope/queryscope/internal/lsp"
	"github.com/queryscope/queryscope/internal/observability"
	"github.com/queryscope/queryscope/pkg/version"
)

// NewLSPCommand creates the language-server command.
func NewLSPCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the language server (stdio mode)",
		Long: `Start a language server on stdio. The host editor streams document and
selection events; the server answers with cost estimates as diagnostics
and queryscope/status notifications, issuing at most one BigQuery dry
run at a time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cobraCmd)
			if err != nil {
				return err
			}

			providers, err := initObservability(cfg, observability.ModeLSP, debug)
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

			srv := lsp.NewServer(lsp.Deps{
				Config:    cfg,
				Estimator: est,
				Logger:    providers.Logger,
				Metrics:   metrics,
				Version:   version.Version,
			})

			return srv.Run()
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}
