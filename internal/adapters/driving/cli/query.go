package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall-cli/internal/core/domain"
)

var (
	queryLimit   int
	queryJSON    bool
	queryFilters []string
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Retrieve the chunks most similar to a query",
	Long: `Embeds the query text and returns the most semantically similar
indexed chunks, ranked by decreasing similarity, with source attribution.
Metadata filters restrict eligible chunks before ranking.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "k", 0,
		"maximum number of results (0 uses the configured default)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	queryCmd.Flags().StringArrayVar(&queryFilters, "filter", nil,
		"metadata filter as key=value, repeatable (all must match)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	filter, err := parseFilters(queryFilters)
	if err != nil {
		return err
	}

	results, err := queryService.Query(context.Background(), args[0], domain.QueryOptions{
		K:      queryLimit,
		Filter: filter,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputQueryJSON(cmd, results)
	}
	return outputQueryTable(cmd, results)
}

// parseFilters turns key=value flags into a conjunctive predicate.
func parseFilters(filters []string) (domain.Predicate, error) {
	if len(filters) == 0 {
		return nil, nil
	}

	preds := make([]domain.Predicate, 0, len(filters))
	for _, f := range filters {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: filter %q is not key=value", domain.ErrInvalidInput, f)
		}
		preds = append(preds, domain.MatchEquals(key, value))
	}
	return domain.MatchAll(preds...), nil
}

func outputQueryJSON(cmd *cobra.Command, results []domain.RetrievedChunk) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryTable(cmd *cobra.Command, results []domain.RetrievedChunk) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		cmd.Printf("  [%d] %s#%d (%.3f)\n", i+1, r.SourceID, r.ChunkIndex, r.Score)
		cmd.Printf("      %s\n", snippet(r.Text))
		cmd.Println()
	}
	return nil
}

// snippet flattens a chunk to one display line.
func snippet(text string) string {
	const maxLen = 160
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}
	return text
}
