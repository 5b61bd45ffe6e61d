package cmd

import (
	"fmt"

	"github.com/nsyc/nsyc-fetch/internal/catalog"
	"github.com/nsyc/nsyc-fetch/internal/elasticsearch"
	"github.com/nsyc/nsyc-fetch/internal/mcp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the MCP server for event queries.

The server communicates via stdio and provides three tools:
  - upcoming_events: List upcoming events and ticket phases
  - ticket_phases: List a concert's ticket phases and next action
  - search_events: Full-text search (requires Elasticsearch)

Example:
  nsyc-fetch serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	store := catalog.Load(cfg.Paths.Catalog)

	var esClient *elasticsearch.Client
	if cfg.Elasticsearch.Enabled {
		var err error
		esClient, err = elasticsearch.New(elasticsearch.Config{
			Addresses: cfg.Elasticsearch.Addresses,
			Index:     cfg.Elasticsearch.Index,
			Username:  cfg.Elasticsearch.Username,
			Password:  cfg.Elasticsearch.Password,
		})
		if err != nil {
			return fmt.Errorf("failed to create Elasticsearch client: %w", err)
		}
	}

	server := mcp.NewServer(mcp.Config{
		Name:    cfg.MCP.Name,
		Version: cfg.MCP.Version,
	}, store, esClient)

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return server.ServeStdio()
}
