// Package cmd provides the CLI commands for retrievalctl.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/codegraph/retrieval/pkg/version"
)

var (
	rootDir   string
	debugMode bool
)

// NewRootCmd creates the root command for the retrievalctl CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "retrievalctl",
		Short:   "Code-aware hybrid retrieval engine driver",
		Version: version.Version,
		Long: `retrievalctl drives the retrieval engine: it ingests a codebase into
a chunk catalog, graph store, and hybrid search index, and exposes that
engine through ingest/search/query/watch subcommands.

It is a thin driver over the engine library, not the engine itself.`,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate("retrievalctl version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&rootDir, "root", ".", "repository root to operate on")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug-level logging")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if debugMode {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	}

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newWatchCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
