// Package main provides the entry point for the queryscope CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/queryscope/queryscope/cmd/queryscope/commands"
	"github.com/queryscope/queryscope/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "queryscope",
		Short: "Queryscope - cost-aware feedback for SQL queries",
		Long: `Queryscope estimates what a SQL query would scan, without executing it.

Commands:
  estimate  One-shot dry-run estimate of a query file or stdin
  lsp       Language server delivering estimates while you edit
  mcp       MCP server exposing the estimator to agents`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "path to config file (default: .queryscope.yaml in CWD or $HOME)")

	rootCmd.AddCommand(commands.NewEstimateCommand())
	rootCmd.AddCommand(commands.NewLSPCommand())
	rootCmd.AddCommand(commands.NewMCPCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "queryscope %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
