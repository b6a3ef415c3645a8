package cmd

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/codegraph/retrieval/internal/metrics"
	"github.com/codegraph/retrieval/internal/output"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <pattern-query>",
		Short: "Run a graph pattern query against the ingested catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, strings.Join(args, " "))
		},
	}
	return cmd
}

func runQuery(cmd *cobra.Command, query string) error {
	out := output.NewAuto(cmd.OutOrStdout())
	m := metrics.New()

	c, _, err := buildCoordinator(rootDir)
	if err != nil {
		out.Errorf("load config: %v", err)
		return err
	}
	if err := c.Ingest(cmd.Context()); err != nil {
		out.Errorf("ingest failed: %v", err)
		return err
	}

	start := time.Now()
	rows, _, err := c.SearchGraph(query)
	m.ObserveGraphQuery(time.Since(start), err)
	if err != nil {
		out.Errorf("query failed: %v", err)
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}
