// Package mcp exposes the event catalog over the Model Context
// Protocol, so assistants can answer "what's coming up" and "when do I
// need to act" questions directly from the tracked data.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/nsyc/nsyc-fetch/internal/catalog"
	"github.com/nsyc/nsyc-fetch/internal/elasticsearch"
	"github.com/nsyc/nsyc-fetch/pkg/models"
)

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
}

// Server wraps the MCP server over the event catalog, with optional
// Elasticsearch full-text search.
type Server struct {
	mcpServer *server.MCPServer
	store     *catalog.Store
	esClient  *elasticsearch.Client // nil when search is disabled
	now       func() time.Time
}

// NewServer creates an MCP server with event query tools. esClient may
// be nil, in which case search_events reports search as unavailable.
func NewServer(config Config, store *catalog.Store, esClient *elasticsearch.Client) *Server {
	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		store:     store,
		esClient:  esClient,
		now:       time.Now,
	}

	upcomingTool := mcp.NewTool("upcoming_events",
		mcp.WithDescription("List upcoming (not yet ended) events and ticket phases, soonest first. Optionally filtered by artist."),
		mcp.WithString("artist",
			mcp.Description("Only return events for this artist"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (default: 20)"),
		),
	)
	mcpServer.AddTool(upcomingTool, s.upcomingHandler)

	phasesTool := mcp.NewTool("ticket_phases",
		mcp.WithDescription("List the ticket sale phases of a concert by its event ID, including the next phase that requires action."),
		mcp.WithString("event_id",
			mcp.Required(),
			mcp.Description("Event ID of the concert"),
		),
	)
	mcpServer.AddTool(phasesTool, s.phasesHandler)

	searchTool := mcp.NewTool("search_events",
		mcp.WithDescription("Full-text search over tracked events: titles, artists, venues and ticket details."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query string"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (default: 10)"),
		),
	)
	mcpServer.AddTool(searchTool, s.searchHandler)

	return s
}

// upcomingHandler handles the upcoming_events tool call.
func (s *Server) upcomingHandler(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	artist := req.GetString("artist", "")
	limit := req.GetInt("limit", 20)

	events := s.handleUpcoming(artist, limit)
	result, err := json.Marshal(events)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

// phasesHandler handles the ticket_phases tool call.
func (s *Server) phasesHandler(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	eventID, err := req.RequireString("event_id")
	if err != nil {
		return mcp.NewToolResultError("event_id parameter is required"), nil
	}

	summary := s.handlePhases(eventID)
	if summary == nil {
		return mcp.NewToolResultError(fmt.Sprintf("event not found: %s", eventID)), nil
	}

	result, err := json.Marshal(summary)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

// searchHandler handles the search_events tool call.
func (s *Server) searchHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}
	limit := req.GetInt("limit", 10)

	events, err := s.handleSearch(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	result, err := json.Marshal(events)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(result)), nil
}

// phaseSummary is the ticket_phases tool payload.
type phaseSummary struct {
	Event      models.Event   `json:"event"`
	Phases     []models.Event `json:"phases"`
	NextAction *models.Event  `json:"next_action,omitempty"`
}

// handleUpcoming lists upcoming events, optionally for one artist.
func (s *Server) handleUpcoming(artist string, limit int) []models.Event {
	upcoming := s.store.Upcoming()
	out := make([]models.Event, 0, len(upcoming))
	for _, ev := range upcoming {
		if artist != "" && ev.Artist != artist {
			continue
		}
		out = append(out, ev)
		if len(out) == limit {
			break
		}
	}
	return out
}

// handlePhases returns a concert with its ticket phases, or nil if the
// event ID is unknown.
func (s *Server) handlePhases(eventID string) *phaseSummary {
	ev, ok := s.store.Get(eventID)
	if !ok {
		return nil
	}
	summary := &phaseSummary{
		Event:  ev,
		Phases: s.store.TicketPhases(eventID),
	}
	if next, ok := s.store.NextAction(eventID, s.now()); ok {
		summary.NextAction = &next
	}
	return summary
}

// handleSearch runs a full-text search over the event index.
func (s *Server) handleSearch(ctx context.Context, query string, limit int) ([]models.Event, error) {
	if s.esClient == nil {
		return nil, fmt.Errorf("search is not available: elasticsearch is disabled")
	}
	return s.esClient.Search(ctx, query, limit)
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
