package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/codegraph/retrieval/internal/metrics"
	"github.com/codegraph/retrieval/internal/output"
)

func newIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Walk the repository and build the chunk catalog, search index, and graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd)
		},
	}
	return cmd
}

func runIngest(cmd *cobra.Command) error {
	out := output.NewAuto(cmd.OutOrStdout())
	m := metrics.New()

	c, _, err := buildCoordinator(rootDir)
	if err != nil {
		out.Errorf("load config: %v", err)
		return err
	}

	start := time.Now()
	err = c.Ingest(cmd.Context())
	elapsed := time.Since(start)
	snap := c.Snapshot()
	m.ObserveIngest(elapsed, len(snap.Nodes), err)
	if err != nil {
		out.Errorf("ingest failed: %v", err)
		return err
	}

	out.Successf("ingested %d nodes, %d relationships in %s", len(snap.Nodes), len(snap.Relationships), elapsed.Round(time.Millisecond))
	out.Status("", "merkle root: "+c.MerkleRoot())
	return nil
}
