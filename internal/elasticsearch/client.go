// Package elasticsearch provides an optional searchable index over
// the event catalog. The JSON catalog file stays the source of truth;
// the index is rebuilt from it after each run.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/nsyc/nsyc-fetch/pkg/models"
)

// Config holds Elasticsearch client configuration.
type Config struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
}

// Client wraps the Elasticsearch client with event-catalog operations.
type Client struct {
	es    *elasticsearch.Client
	index string
}

// New creates a new Elasticsearch client.
func New(config Config) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}

	return &Client{
		es:    es,
		index: config.Index,
	}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) bool {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

// indexMapping defines the ES index mapping for catalog events.
var indexMapping = `{
	"mappings": {
		"properties": {
			"event_id": { "type": "keyword" },
			"parent_event_id": { "type": "keyword" },
			"artist": { "type": "text" },
			"event_type": { "type": "keyword" },
			"title": { "type": "text" },
			"date": { "type": "date" },
			"end_date": { "type": "date" },
			"venue": { "type": "text" },
			"location": { "type": "text" },
			"action_required": { "type": "boolean" },
			"action_deadline": { "type": "date" },
			"action_description": { "type": "text" },
			"ticket_requirement": { "type": "keyword" },
			"ticket_priority": { "type": "keyword" },
			"ticket_requirement_detail": { "type": "text" },
			"source_url": { "type": "keyword" },
			"extracted_at": { "type": "date" },
			"ended": { "type": "boolean" }
		}
	}
}`

// CreateIndex creates the event index with proper mapping.
func (c *Client) CreateIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader([]byte(indexMapping))),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating index: %s", res.String())
	}
	return nil
}

// DeleteIndex removes the index (for testing/cleanup).
func (c *Client) DeleteIndex(ctx context.Context) error {
	res, err := c.es.Indices.Delete([]string{c.index}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// IndexEvent indexes a single event under its stable identity, so
// re-indexing after a run upserts rather than duplicates.
func (c *Client) IndexEvent(ctx context.Context, ev models.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	res, err := c.es.Index(
		c.index,
		bytes.NewReader(data),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(ev.EventID),
	)
	if err != nil {
		return fmt.Errorf("failed to index event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing event (status %d): %s", res.StatusCode, res.String())
	}
	return nil
}

// IndexEvents indexes a batch of events, stopping on the first error.
func (c *Client) IndexEvents(ctx context.Context, events []models.Event) error {
	for _, ev := range events {
		if err := c.IndexEvent(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

// Refresh forces an index refresh (useful for testing).
func (c *Client) Refresh(ctx context.Context) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(c.index),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// searchResponse represents ES search response structure.
type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source models.Event `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search performs a text search over title, artist, venue, and action
// description.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.Event, error) {
	searchQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^2", "artist", "venue", "action_description", "ticket_requirement_detail"},
			},
		},
		"size": limit,
		"sort": []map[string]interface{}{
			{"_score": map[string]interface{}{"order": "desc"}},
			{"date": map[string]interface{}{"order": "asc"}},
		},
	}

	data, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	events := make([]models.Event, len(sr.Hits.Hits))
	for i, hit := range sr.Hits.Hits {
		events[i] = hit.Source
	}
	return events, nil
}
