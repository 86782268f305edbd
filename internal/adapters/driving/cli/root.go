// Package cli implements the command-line driving adapter.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
	"github.com/custodia-labs/recall-cli/internal/core/ports/driving"
	"github.com/custodia-labs/recall-cli/internal/logger"
)

// version is set by the composition root at startup.
var version = "dev"

// Services are injected by the composition root before Execute.
var (
	ingestService driving.Ingestor
	queryService  driving.QueryService
	watchService  ingestWatcher
)

// ingestWatcher re-runs ingestion on filesystem changes until the
// context is cancelled.
type ingestWatcher interface {
	Watch(ctx context.Context, paths []string, onReport func(*domain.IngestReport)) error
}

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Local semantic search over your documents",
	Long: `Recall ingests local documents into an embedding index and answers
free-text queries with the most semantically similar chunks.
All data stays on your machine; only the embedding provider is remote.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"print pipeline details to stderr")
}

// SetVersion sets the version string printed by the version command.
func SetVersion(v string) {
	version = v
}

// SetServices injects the application services. watcher may be nil when
// watch mode is unavailable.
func SetServices(ingestor driving.Ingestor, querier driving.QueryService, watcher ingestWatcher) {
	ingestService = ingestor
	queryService = querier
	watchService = watcher
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
