package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

var ingestWatch bool

// timePrecision rounds reported durations for display.
const timePrecision = time.Millisecond

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths...]",
	Short: "Ingest documents into the index",
	Long: `Chunks, embeds and indexes the given files and directories.
Unchanged sources are skipped; sources that vanished since the last run
are removed. With --watch, ingestion re-runs on every filesystem change
until interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestWatch, "watch", false,
		"keep watching the paths and re-ingest on changes")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	if ingestWatch {
		return runIngestWatch(cmd, args)
	}

	report, err := ingestService.Ingest(context.Background(), args)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	printReport(cmd, report)
	if len(report.Failed()) > 0 {
		return fmt.Errorf("%d sources failed", len(report.Failed()))
	}
	return nil
}

func runIngestWatch(cmd *cobra.Command, paths []string) error {
	if watchService == nil {
		return errors.New("watch service not configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Println("Watching for changes. Press Ctrl-C to stop.")
	err := watchService.Watch(ctx, paths, func(report *domain.IngestReport) {
		printReport(cmd, report)
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// printReport writes the per-state summary and any failures.
func printReport(cmd *cobra.Command, report *domain.IngestReport) {
	counts := report.Counts()
	cmd.Printf("Ingested in %s: %d stored, %d unchanged, %d removed, %d failed (%d embed calls)\n",
		report.FinishedAt.Sub(report.StartedAt).Round(timePrecision),
		counts[domain.SourceStored],
		counts[domain.SourceUnchanged],
		counts[domain.SourceRemoved],
		counts[domain.SourceFailed],
		report.EmbedCalls,
	)

	for _, failed := range report.Failed() {
		cmd.Printf("  failed: %s: %v\n", failed.SourceID, failed.Err)
	}
}
