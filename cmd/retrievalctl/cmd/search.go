package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/codegraph/retrieval/internal/metrics"
	"github.com/codegraph/retrieval/internal/output"
	"github.com/codegraph/retrieval/internal/searchdb"
)

type searchOptions struct {
	bm25K  int
	knnK   int
	format string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Hybrid BM25 + vector search over the ingested catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVar(&opts.bm25K, "bm25-k", searchdb.DefaultBM25K, "number of BM25 candidates")
	cmd.Flags().IntVar(&opts.knnK, "knn-k", searchdb.DefaultKNNK, "number of vector candidates")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text, json")
	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	out := output.NewAuto(cmd.OutOrStdout())
	m := metrics.New()

	c, cfg, err := buildCoordinator(rootDir)
	if err != nil {
		out.Errorf("load config: %v", err)
		return err
	}
	if !cmd.Flags().Changed("bm25-k") {
		opts.bm25K = cfg.Search.BM25K
	}
	if !cmd.Flags().Changed("knn-k") {
		opts.knnK = cfg.Search.KNNK
	}
	if err := c.Ingest(cmd.Context()); err != nil {
		out.Errorf("ingest failed: %v", err)
		return err
	}

	start := time.Now()
	results, err := c.SearchText(cmd.Context(), query, searchdb.SearchOptions{BM25K: &opts.bm25K, KNNK: &opts.knnK})
	m.ObserveSearch(time.Since(start), len(results), err)
	if err != nil {
		out.Errorf("search failed: %v", err)
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for _, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%-50s %s\n", r.Chunk.ID, r.Description)
	}
	return nil
}
