package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List ingested sources",
	Long: `Lists every ingested source with its chunk count, content hash
and last ingestion time.`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	manifests, err := ingestService.Sources(context.Background())
	if err != nil {
		return fmt.Errorf("listing sources failed: %w", err)
	}

	if len(manifests) == 0 {
		cmd.Println("No sources ingested yet.")
		return nil
	}

	cmd.Printf("%d sources:\n", len(manifests))
	for _, m := range manifests {
		cmd.Printf("  %s  %d chunks  %s  %s\n",
			m.SourceID,
			m.ChunkCount,
			shortHash(m.ContentHash),
			m.LastIngestedAt.Format("2006-01-02 15:04:05"),
		)
	}
	return nil
}

// shortHash abbreviates a hex digest for display.
func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
