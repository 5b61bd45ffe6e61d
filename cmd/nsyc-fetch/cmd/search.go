package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/nsyc/nsyc-fetch/internal/elasticsearch"
	"github.com/spf13/cobra"
)

var (
	searchLimit  int
	searchFormat string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Full-text search over the event index",
	Long: `Search the Elasticsearch event index by title, artist, venue and
ticket details. Requires elasticsearch.enabled and a prior fetch run
with indexing.

Examples:
  # Basic search
  nsyc-fetch search "zepp haneda"

  # Limit results
  nsyc-fetch search "先行" --limit 5

  # JSON output for scripting
  nsyc-fetch search "lottery" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "Maximum number of results")
	searchCmd.Flags().StringVar(&searchFormat, "format", "text", "Output format: text or json")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	query := args[0]
	cfg := GetConfig()

	esClient, err := elasticsearch.New(elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Index:     cfg.Elasticsearch.Index,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}

	events, err := esClient.Search(ctx, query, searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(events) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if searchFormat == "json" {
		output, err := json.MarshalIndent(events, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(events))
	for i, ev := range events {
		fmt.Printf("--- Result %d ---\n", i+1)
		fmt.Printf("Title:   %s\n", ev.Title)
		fmt.Printf("Artist:  %s\n", ev.Artist)
		fmt.Printf("Type:    %s\n", ev.EventType)
		fmt.Printf("Date:    %s\n", ev.Date.Format("2006-01-02"))
		if ev.Venue != "" {
			fmt.Printf("Venue:   %s\n", ev.Venue)
		}
		fmt.Printf("ID:      %s\n\n", ev.EventID)
	}

	return nil
}
