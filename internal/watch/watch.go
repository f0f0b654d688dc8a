// Package watch streams the live state of a board to a writer.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/swimlane/internal/reconcile"
	"github.com/dyluth/swimlane/pkg/board"
)

// OutputFormat selects how updates are written.
type OutputFormat string

const (
	// OutputFormatDefault writes one human-readable line per update
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON writes one JSON object per update
	OutputFormatJSON OutputFormat = "json"
)

// Event kinds written in JSON output.
const (
	EventColumns       = "columns"
	EventTasks         = "tasks"
	EventColumnRemoved = "column_removed"
)

var now = time.Now

// Event is the JSON form of one streamed update.
type Event struct {
	Type        string         `json:"type"`
	TimestampMs int64          `json:"timestamp_ms"`
	ColumnID    string         `json:"column_id,omitempty"`
	ColumnTitle string         `json:"column_title,omitempty"`
	Tasks       []board.Task   `json:"tasks,omitempty"`
	Columns     []board.Column `json:"columns,omitempty"`
	Optimistic  bool           `json:"optimistic,omitempty"`
}

// ParseFormat validates a user-supplied format name. Empty selects the default.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputFormatDefault:
		return OutputFormatDefault, nil
	case OutputFormatJSON:
		return OutputFormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s (must be 'default' or 'json')", s)
	}
}

// StreamBoard writes snap followed by every update until ctx is cancelled or
// updates is closed. Column titles are tracked across column-set changes so task
// lines can name their column.
func StreamBoard(ctx context.Context, snap reconcile.Snapshot, updates <-chan reconcile.Update, format OutputFormat, w io.Writer) error {
	s := &streamer{format: format, w: w, titles: make(map[string]string)}
	if format != OutputFormatDefault && format != OutputFormatJSON {
		return fmt.Errorf("unknown output format: %s", format)
	}

	if err := s.write(reconcile.Update{Columns: snap.Columns}); err != nil {
		return err
	}
	for _, col := range snap.Columns {
		if err := s.write(reconcile.Update{ColumnID: col.ID, Tasks: snap.Tasks[col.ID]}); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if err := s.write(u); err != nil {
				return err
			}
		}
	}
}

type streamer struct {
	format OutputFormat
	w      io.Writer
	titles map[string]string
}

func (s *streamer) write(u reconcile.Update) error {
	ev := s.event(u)
	if s.format == OutputFormatJSON {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		if _, err := fmt.Fprintf(s.w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
		return nil
	}
	if _, err := fmt.Fprintln(s.w, formatLine(ev)); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// event converts u and keeps the title table current.
func (s *streamer) event(u reconcile.Update) Event {
	ev := Event{TimestampMs: now().UnixMilli(), Optimistic: u.Optimistic}
	switch {
	case u.ColumnID == "":
		ev.Type = EventColumns
		ev.Columns = u.Columns
		for _, col := range u.Columns {
			s.titles[col.ID] = col.Title
		}
	case u.Removed:
		ev.Type = EventColumnRemoved
		ev.ColumnID = u.ColumnID
		ev.ColumnTitle = s.titles[u.ColumnID]
		delete(s.titles, u.ColumnID)
	default:
		ev.Type = EventTasks
		ev.ColumnID = u.ColumnID
		ev.ColumnTitle = s.titles[u.ColumnID]
		ev.Tasks = u.Tasks
	}
	return ev
}

func formatLine(ev Event) string {
	ts := time.UnixMilli(ev.TimestampMs).Format("15:04:05")
	switch ev.Type {
	case EventColumns:
		titles := make([]string, len(ev.Columns))
		for i, col := range ev.Columns {
			titles[i] = col.Title
		}
		return fmt.Sprintf("[%s] 🗂️  columns: %s", ts, strings.Join(titles, " | "))
	case EventColumnRemoved:
		return fmt.Sprintf("[%s] 🗑️  column removed: %s", ts, columnLabel(ev))
	default:
		titles := make([]string, len(ev.Tasks))
		for i, t := range ev.Tasks {
			titles[i] = t.Title
		}
		line := fmt.Sprintf("[%s] 📋 %s (%d): %s", ts, columnLabel(ev), len(ev.Tasks), strings.Join(titles, ", "))
		if ev.Optimistic {
			line += " (pending)"
		}
		return line
	}
}

func columnLabel(ev Event) string {
	if ev.ColumnTitle != "" {
		return ev.ColumnTitle
	}
	if len(ev.ColumnID) > 8 {
		return ev.ColumnID[:8]
	}
	return ev.ColumnID
}
