package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/queryscope/queryscope/internal/estimate"
	"github.com/queryscope/queryscope/internal/observability"
)

// stdinArg selects reading the query from standard input.
const stdinArg = "-"

// NewEstimateCommand creates the one-shot estimate command.
func NewEstimateCommand() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "estimate [file|-]",
		Short: "Estimate what a SQL query would scan, without executing it",
		Long: `Run a BigQuery dry run for the query in the given file (or stdin with "-")
and report the bytes it would process. The query is never executed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			if noColor {
				color.NoColor = true //nolint:reassign // intentional override of library global
			}

			query, err := readQuery(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cobraCmd)
			if err != nil {
				return err
			}

			providers, err := initObservability(cfg, observability.ModeCLI, false)
			if err != nil {
				return err
			}

			defer func() {
				shutdownErr := providers.Shutdown(context.Background())
				if shutdownErr != nil {
					providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			ctx, cancel := context.WithTimeout(cobraCmd.Context(), cfg.Analysis.EstimateTimeout)
			defer cancel()

			est, err := newEstimator(ctx, cfg)
			if err != nil {
				return err
			}
			defer est.Close()

			res, err := est.Estimate(ctx, query)
			if err != nil {
				return fmt.Errorf("estimate: %w", err)
			}

			renderResult(os.Stdout, args[0], res, cfg.Analysis.ScanWarnBytes)

			if res.Failed() {
				return fmt.Errorf("query rejected with %d error(s)", len(res.Errors))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}

// readQuery loads the query text from a file or stdin.
func readQuery(arg string) (string, error) {
	if arg == stdinArg {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}

		return string(data), nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("read query file: %w", err)
	}

	return string(data), nil
}

// renderResult prints the estimate as a table with a colored verdict.
func renderResult(out io.Writer, source string, res estimate.Result, warnBytes int64) {
	if res.Failed() {
		color.New(color.FgRed).Fprintf(out, "Query rejected (%s)\n", source)

		for _, msg := range res.Errors {
			color.New(color.FgRed).Fprintf(out, "  - %s\n", msg)
		}

		return
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(out)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Source", "Bytes Scanned", "Estimate"})
	tbl.AppendRow(table.Row{source, res.ScannedBytes, humanize.IBytes(uint64(res.ScannedBytes))})
	tbl.Render()

	if res.ScannedBytes > warnBytes {
		color.New(color.FgYellow).Fprintf(out, "Over the %s warning threshold\n", humanize.IBytes(uint64(warnBytes)))

		return
	}

	color.New(color.FgGreen).Fprintf(out, "Within the %s warning threshold\n", humanize.IBytes(uint64(warnBytes)))
}
