package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/askdrive/internal/core/domain"
)

var syncWatch bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Index new and changed documents",
	Long: `Reconciles the index with the configured folder. Unchanged documents
are skipped; new and changed documents are chunked, embedded and
indexed. With --watch, keeps running and re-syncs on changes.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVarP(&syncWatch, "watch", "w", false, "keep watching for changes")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(); err != nil {
		return err
	}
	if corpusSyncer == nil {
		return errors.New("sync service not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := syncOnce(ctx, cmd); err != nil {
		return err
	}

	if !syncWatch {
		return nil
	}
	if watcher == nil {
		return errors.New("the configured provider does not support watching")
	}

	events, err := watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	cmd.Println("Watching for changes (ctrl-c to stop)...")
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-events:
			if !ok {
				return nil
			}
			if err := syncOnce(ctx, cmd); err != nil {
				// Keep watching; a transient failure should not end
				// the session.
				cmd.PrintErrf("sync failed: %v\n", err)
			}
		}
	}
}

func syncOnce(ctx context.Context, cmd *cobra.Command) error {
	cmd.Println("Synchronising documents...")

	report, err := corpusSyncer.Sync(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	printReport(cmd, report)

	if saveSnapshot != nil {
		if err := saveSnapshot(ctx); err != nil {
			return fmt.Errorf("persist index: %w", err)
		}
	}
	return nil
}

func printReport(cmd *cobra.Command, report *domain.IngestionReport) {
	cmd.Printf("Done: %d added, %d updated, %d skipped, %d failed.\n",
		report.Added, report.Updated, report.Skipped, report.Failed)

	for _, f := range report.Failures {
		cmd.Printf("  failed: %s (%s)\n", f.Name, f.Reason)
	}
}
