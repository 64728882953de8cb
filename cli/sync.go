package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	var (
		full  bool
		every time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull issues changed since the last sync",
		Long: `Fetch every issue of the project updated since the last complete sync
and record the ones not stored yet. With --full the checkpoint is ignored and
the whole project is scanned.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := setup(true)
			if err != nil {
				return err
			}
			defer e.Close()

			if every > 0 {
				return e.syncer.Watch(ctx, every, full)
			}

			run, err := e.syncer.Sync(ctx, full)
			if err != nil {
				return fmt.Errorf("sync failed after %d of %d issues: %w", run.TotalProcessed, run.TotalAvailable, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %s: %d issues processed (%d new, %d rejected) in %d requests\n",
				run.Project, run.TotalProcessed, run.Written, len(run.Rejected), run.Fetches)
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "ignore the checkpoint and scan all issues")
	cmd.Flags().DurationVar(&every, "every", 0, "keep running and sync once per interval (e.g. 1h)")

	return cmd
}
