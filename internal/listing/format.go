package listing

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dyluth/swimlane/pkg/board"
)

// now is swapped out by tests that check relative timestamps.
var now = time.Now

// Row is one task together with the title of the column that owns it.
type Row struct {
	board.Task
	ColumnTitle string `json:"column_title"`
}

// FormatTable writes rows as a formatted table to the provided writer.
// The table includes columns: ID, COLUMN, PRIO, ASSIGNEE, DUE, UPDATED and TITLE (truncated).
// Returns the number of rows formatted.
func FormatTable(w io.Writer, rows []Row, boardName string) int {
	if len(rows) == 0 {
		fmt.Fprintf(w, "No tasks found on board '%s'\n", boardName)
		return 0
	}

	fmt.Fprintf(w, "Tasks on board '%s':\n\n", boardName)

	fmt.Fprintf(w, "%-10s %-14s %-6s %-12s %-10s %-8s %s\n",
		"ID", "COLUMN", "PRIO", "ASSIGNEE", "DUE", "UPDATED", "TITLE")
	fmt.Fprintf(w, "%-10s %-14s %-6s %-12s %-10s %-8s %s\n",
		"----------", "--------------", "------", "------------", "----------", "--------", "----------------------------------------")

	for _, r := range rows {
		fmt.Fprintf(w, "%-10s %-14s %-6s %-12s %-10s %-8s %s\n",
			formatID(r.ID),
			formatColumn(r.ColumnTitle),
			string(r.Priority),
			formatAssignee(r.Assignee),
			formatDeadline(r.DeadlineMs),
			formatTimestamp(r.UpdatedAtMs),
			formatTitle(r.Title),
		)
	}

	countMsg := "task"
	if len(rows) != 1 {
		countMsg = "tasks"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(rows), countMsg)

	return len(rows)
}

// FormatJSONL writes rows as line-delimited JSON, one task object per line.
func FormatJSONL(w io.Writer, rows []Row) error {
	for _, r := range rows {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to marshal task to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes v as pretty-printed JSON followed by a newline.
func FormatSingleJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

func formatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatColumn(title string) string {
	if len(title) > 14 {
		return title[:11] + "..."
	}
	return title
}

// formatTitle keeps the first non-empty line, truncated to 40 characters.
func formatTitle(title string) string {
	var firstLine string
	for _, line := range strings.Split(title, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			firstLine = trimmed
			break
		}
	}
	if firstLine == "" {
		return "-"
	}
	if len(firstLine) > 40 {
		return firstLine[:37] + "..."
	}
	return firstLine
}

func formatAssignee(assignee string) string {
	if assignee == "" {
		return "-"
	}
	if len(assignee) > 12 {
		return assignee[:11] + "…"
	}
	return assignee
}

// formatTimestamp renders a millisecond timestamp relative to now, e.g. "2m ago".
func formatTimestamp(timestampMs int64) string {
	if timestampMs == 0 {
		return "-"
	}

	diff := now().Sub(time.UnixMilli(timestampMs))

	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}

// formatDeadline renders a deadline as a UTC date, marked with "!" once passed.
func formatDeadline(deadlineMs int64) string {
	if deadlineMs == 0 {
		return "-"
	}
	d := time.UnixMilli(deadlineMs).UTC()
	if d.Before(now()) {
		return d.Format("2006-01-02") + "!"
	}
	return d.Format("2006-01-02")
}
