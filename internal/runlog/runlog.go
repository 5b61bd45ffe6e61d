// Package runlog captures per-run fetch and extraction artifacts for
// debugging: LLM requests and responses, extracted events, and a run
// summary, written as JSON files under a timestamped directory.
//
// A *RunLog is passed explicitly to whoever needs it; a nil receiver
// disables logging.
package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nsyc/nsyc-fetch/pkg/models"
)

// RunLog writes artifacts for one run.
type RunLog struct {
	dir       string
	startTime time.Time

	sourcesProcessed int
	eventsExtracted  int
	errors           []string
}

// New creates a run directory under baseDir and returns the logger.
func New(baseDir string) (*RunLog, error) {
	start := time.Now()
	dir := filepath.Join(baseDir, start.Format("2006-01-02T15-04-05"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run dir: %w", err)
	}
	return &RunLog{dir: dir, startTime: start}, nil
}

// Dir returns the run's log directory.
func (l *RunLog) Dir() string {
	if l == nil {
		return ""
	}
	return l.dir
}

// LLMRequest records the prompt sent for one page.
func (l *RunLog) LLMRequest(sourceID, artist, model, prompt string, pageIndex int) {
	if l == nil {
		return
	}
	l.writeJSON(sourceID, fmt.Sprintf("llm_request_%d.json", pageIndex), map[string]any{
		"source_id":     sourceID,
		"artist_name":   artist,
		"model":         model,
		"page_index":    pageIndex,
		"timestamp":     time.Now().Format(time.RFC3339),
		"prompt_length": len(prompt),
		"prompt":        prompt,
	})
}

// LLMResponse records the raw model output for one page.
func (l *RunLog) LLMResponse(sourceID, response string, pageIndex int, err error) {
	if l == nil {
		return
	}
	entry := map[string]any{
		"source_id":       sourceID,
		"page_index":      pageIndex,
		"timestamp":       time.Now().Format(time.RFC3339),
		"success":         err == nil,
		"response_length": len(response),
		"response":        response,
	}
	if err != nil {
		entry["error"] = err.Error()
		l.errors = append(l.errors, fmt.Sprintf("%s: %v", sourceID, err))
	}
	l.writeJSON(sourceID, fmt.Sprintf("llm_response_%d.json", pageIndex), entry)
}

// Events records the events extracted from one page.
func (l *RunLog) Events(sourceID string, events []models.Event, pageIndex int) {
	if l == nil {
		return
	}
	l.writeJSON(sourceID, fmt.Sprintf("extracted_events_%d.json", pageIndex), map[string]any{
		"source_id":  sourceID,
		"page_index": pageIndex,
		"timestamp":  time.Now().Format(time.RFC3339),
		"num_events": len(events),
		"events":     events,
	})
	l.eventsExtracted += len(events)
}

// Skip records that a source produced nothing to process.
func (l *RunLog) Skip(sourceID, reason string) {
	if l == nil {
		return
	}
	l.writeJSON(sourceID, "skipped.json", map[string]any{
		"source_id": sourceID,
		"timestamp": time.Now().Format(time.RFC3339),
		"reason":    reason,
	})
}

// Error records a source- or page-level failure.
func (l *RunLog) Error(sourceID string, err error, context string) {
	if l == nil {
		return
	}
	l.writeJSON(sourceID, "error.json", map[string]any{
		"source_id": sourceID,
		"timestamp": time.Now().Format(time.RFC3339),
		"error":     err.Error(),
		"context":   context,
	})
	l.errors = append(l.errors, fmt.Sprintf("%s: %v", sourceID, err))
}

// SourceDone bumps the processed-source counter.
func (l *RunLog) SourceDone() {
	if l == nil {
		return
	}
	l.sourcesProcessed++
}

// Close writes the run summary.
func (l *RunLog) Close() {
	if l == nil {
		return
	}
	end := time.Now()
	summary := map[string]any{
		"start_time":        l.startTime.Format(time.RFC3339),
		"end_time":          end.Format(time.RFC3339),
		"duration_seconds":  end.Sub(l.startTime).Seconds(),
		"sources_processed": l.sourcesProcessed,
		"events_extracted":  l.eventsExtracted,
		"errors":            l.errors,
		"log_directory":     l.dir,
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return
	}
	os.WriteFile(filepath.Join(l.dir, "run_summary.json"), data, 0o644)
}

func (l *RunLog) writeJSON(sourceID, filename string, v any) {
	dir := filepath.Join(l.dir, sourceID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}
	os.WriteFile(filepath.Join(dir, filename), data, 0o644)
}
