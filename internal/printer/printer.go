package printer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dyluth/swimlane/pkg/board"
	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	bold   = color.New(color.Bold)
	faint  = color.New(color.Faint)
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Printf("✓ %s", msg)
	} else {
		green.Print(msg)
	}
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Printf(format, a...)
}

// Warning prints a warning message in yellow with a warning emoji prefix
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		yellow.Printf("⚠️  %s", msg)
	} else {
		yellow.Print(msg)
	}
}

// Step prints a step message with emphasis (used in multi-step operations)
func Step(format string, a ...any) {
	cyan.Printf("→ %s", fmt.Sprintf(format, a...))
}

// Error creates a formatted error message with title, explanation, and suggestions
// Prints the formatted error to stderr with colors and returns a simple error for Cobra
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext creates a formatted error with context details, printed in
// key order. Returns a simple error for Cobra (won't be printed due to
// SilenceErrors).
func ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(os.Stderr, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(os.Stderr, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(os.Stderr, "\n")
		for _, k := range keys {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", k, context[k])
		}
	}

	if len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(os.Stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(os.Stderr, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	return fmt.Errorf("%s", title)
}

// RenderBoard writes a board as a vertical list of columns, each followed by its
// visible tasks in order. tasks maps column IDs to already sorted task lists.
func RenderBoard(w io.Writer, b *board.Board, columns []board.Column, tasks map[string][]board.Task) {
	bold.Fprintf(w, "%s", b.Name)
	faint.Fprintf(w, "  (%s)\n", ShortID(b.ID))

	for _, col := range columns {
		list := tasks[col.ID]
		fmt.Fprintln(w)
		cyan.Fprintf(w, "%s", col.Title)
		faint.Fprintf(w, "  %s · %d\n", ShortID(col.ID), len(list))
		if len(list) == 0 {
			faint.Fprintln(w, "  (empty)")
			continue
		}
		for _, t := range list {
			RenderTask(w, t)
		}
	}
}

// RenderTask writes one task line: short ID, priority marker, title and assignee.
func RenderTask(w io.Writer, t board.Task) {
	fmt.Fprintf(w, "  %s ", ShortID(t.ID))
	priorityColor(t.Priority).Fprintf(w, "%-6s", t.Priority)
	fmt.Fprintf(w, " %s", t.Title)
	if t.Assignee != "" {
		faint.Fprintf(w, "  @%s", t.Assignee)
	}
	fmt.Fprintln(w)
}

// ShortID truncates an ID to its first 8 characters for display.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func priorityColor(p board.Priority) *color.Color {
	switch p {
	case board.PriorityHigh:
		return red
	case board.PriorityLow:
		return faint
	default:
		return yellow
	}
}
