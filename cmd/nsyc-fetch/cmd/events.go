package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/nsyc/nsyc-fetch/internal/catalog"
	"github.com/nsyc/nsyc-fetch/pkg/models"
	"github.com/spf13/cobra"
)

var (
	eventsAll    bool
	eventsArtist string
	eventsFormat string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List tracked events",
	Long: `List events from the catalog, soonest first. Ended events are hidden
unless --all is given.

Examples:
  # Upcoming events
  nsyc-fetch events

  # Everything, including ended events
  nsyc-fetch events --all

  # One artist, as JSON
  nsyc-fetch events --artist "MyGO!!!!!" --format json`,
	RunE: runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)

	eventsCmd.Flags().BoolVar(&eventsAll, "all", false, "Include ended events")
	eventsCmd.Flags().StringVar(&eventsArtist, "artist", "", "Only show this artist")
	eventsCmd.Flags().StringVar(&eventsFormat, "format", "text", "Output format: text or json")
}

func runEvents(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	store := catalog.Load(cfg.Paths.Catalog)

	var events []models.Event
	if eventsAll {
		events = store.Events()
	} else {
		events = store.Upcoming()
	}
	if eventsArtist != "" {
		filtered := events[:0]
		for _, ev := range events {
			if ev.Artist == eventsArtist {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}

	if len(events) == 0 {
		fmt.Println("No events found.")
		return nil
	}

	if eventsFormat == "json" {
		output, err := json.MarshalIndent(events, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("%d events:\n\n", len(events))
	for _, ev := range events {
		marker := " "
		if ev.ActionRequired {
			marker = "!"
		}
		if ev.Ended {
			marker = "x"
		}
		fmt.Printf("%s %s  [%s] %s: %s\n", marker, ev.Date.Format("2006-01-02"), ev.EventType, ev.Artist, ev.Title)
		if ev.Venue != "" {
			fmt.Printf("             %s\n", ev.Venue)
		}
		if ev.ActionRequired && ev.ActionDeadline != nil {
			fmt.Printf("             act by %s: %s\n", ev.ActionDeadline.Format("2006-01-02"), ev.ActionDescription)
		}
	}

	return nil
}
