package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/codegraph/retrieval/internal/config"
	"github.com/codegraph/retrieval/internal/output"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Ingest once, then poll for changes until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd)
		},
	}
	return cmd
}

func runWatch(cmd *cobra.Command) error {
	out := output.NewAuto(cmd.OutOrStdout())

	c, cfg, err := buildCoordinator(rootDir)
	if err != nil {
		out.Errorf("load config: %v", err)
		return err
	}
	if err := c.Ingest(cmd.Context()); err != nil {
		out.Errorf("ingest failed: %v", err)
		return err
	}
	out.Successf("watching %s (poll every %dms); merkle root %s", rootDir, cfg.Watcher.PollIntervalMS, c.MerkleRoot())

	interval := time.Duration(cfg.Watcher.PollIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = config.DefaultPollIntervalMS * time.Millisecond
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c.StartWatcher(ctx, interval)
	<-ctx.Done()
	c.StopWatcher()

	out.Status("", "merkle root: "+c.MerkleRoot())
	return nil
}
