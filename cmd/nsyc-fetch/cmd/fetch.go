package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/nsyc/nsyc-fetch/internal/catalog"
	"github.com/nsyc/nsyc-fetch/internal/elasticsearch"
	"github.com/nsyc/nsyc-fetch/internal/extractor"
	"github.com/nsyc/nsyc-fetch/internal/fetcher"
	"github.com/nsyc/nsyc-fetch/internal/pipeline"
	"github.com/nsyc/nsyc-fetch/internal/runlog"
	"github.com/nsyc/nsyc-fetch/internal/state"
	"github.com/spf13/cobra"
)

var (
	fetchForce  bool
	fetchArtist string
	noRunLog    bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Check sources and update the event catalog",
	Long: `Check the configured artist sources for new or changed pages, extract
events from changed content, and merge them into the event catalog.

Unchanged pages are skipped via content hashing; pages with past event
dates age out of the monitoring set automatically.

Examples:
  # Check all configured artists
  nsyc-fetch fetch

  # Check a single artist
  nsyc-fetch fetch --artist "MyGO!!!!!"

  # Re-extract everything, ignoring stored page state
  nsyc-fetch fetch --force`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().BoolVar(&fetchForce, "force", false, "Clear page state and re-extract all pages")
	fetchCmd.Flags().StringVar(&fetchArtist, "artist", "", "Only check this artist")
	fetchCmd.Flags().BoolVar(&noRunLog, "no-run-log", false, "Skip writing per-run log artifacts")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	artists := cfg.Artists
	if fetchArtist != "" {
		artists = nil
		for _, a := range cfg.Artists {
			if a.Name == fetchArtist {
				artists = append(artists, a)
			}
		}
		if len(artists) == 0 {
			return fmt.Errorf("artist %q not found in config", fetchArtist)
		}
	}
	if len(artists) == 0 {
		return fmt.Errorf("no artists configured")
	}

	if cfg.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is not set (NSYC_LLM_API_KEY)")
	}

	tracker := state.Load(cfg.Paths.State)
	store := catalog.Load(cfg.Paths.Catalog)

	if fetchForce {
		slog.Info("force mode: clearing page state")
		tracker.Clear()
	}

	pageFetcher := fetcher.New(fetcher.Config{
		Timeout:   cfg.Fetcher.Timeout,
		Delay:     cfg.Fetcher.Delay,
		UserAgent: cfg.Fetcher.UserAgent,
	})

	llmClient, err := extractor.NewClient(extractor.ClientConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	var log *runlog.RunLog
	if !noRunLog {
		log, err = runlog.New(cfg.Paths.Logs)
		if err != nil {
			slog.Warn("run logging disabled", "error", err)
		} else {
			defer log.Close()
		}
	}

	opts := []pipeline.Option{
		pipeline.WithForce(fetchForce),
		pipeline.WithRunLog(log),
	}
	if cfg.Elasticsearch.Enabled {
		esClient, err := elasticsearch.New(elasticsearch.Config{
			Addresses: cfg.Elasticsearch.Addresses,
			Index:     cfg.Elasticsearch.Index,
			Username:  cfg.Elasticsearch.Username,
			Password:  cfg.Elasticsearch.Password,
		})
		if err != nil {
			slog.Warn("elasticsearch indexing disabled", "error", err)
		} else {
			opts = append(opts, pipeline.WithIndexer(esClient))
		}
	}

	runner := pipeline.New(pageFetcher, extractor.New(llmClient, log), tracker, store, artists, opts...)

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Pages: %d checked, %d extracted, %d unchanged, %d failed\n",
		result.PagesChecked, result.PagesExtracted, result.PagesSkipped, result.PagesFailed)
	fmt.Printf("Events: %d found, %d added, %d updated, %d ended\n",
		result.EventsFound, result.Added, result.Updated, result.Ended)
	fmt.Printf("Catalog: %d events in %v\n", store.Len(), result.Duration.Round(time.Millisecond))

	if len(result.Errors) > 0 {
		fmt.Printf("\n%d sources had errors:\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  %s\n", e)
		}
	}
	if log != nil {
		fmt.Printf("Run log: %s\n", log.Dir())
	}

	return nil
}
