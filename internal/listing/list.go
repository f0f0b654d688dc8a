// Package listing renders the tasks of a board for the CLI.
package listing

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/swimlane/internal/filter"
	"github.com/dyluth/swimlane/pkg/board"
)

// OutputFormat specifies how to format the task list output.
type OutputFormat string

const (
	// OutputFormatDefault uses a table format with truncated titles
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL outputs complete tasks as line-delimited JSON
	OutputFormatJSONL OutputFormat = "jsonl"
)

// Store is the read side of the board client used for listing.
type Store interface {
	GetBoard(ctx context.Context, boardID string) (*board.Board, error)
	ListColumns(ctx context.Context, boardID string) ([]board.Column, error)
	ColumnTasks(ctx context.Context, columnID string) ([]board.Task, error)
}

// CollectRows returns the board's live tasks, column by column in board order and
// by rank within each column, keeping only those that match filters.
func CollectRows(ctx context.Context, store Store, boardID string, filters *filter.Criteria) ([]Row, error) {
	columns, err := store.ListColumns(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}

	var rows []Row
	for _, col := range columns {
		tasks, err := store.ColumnTasks(ctx, col.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read tasks of column %s: %w", col.ID, err)
		}
		for _, t := range filters.Apply(tasks) {
			rows = append(rows, Row{Task: t, ColumnTitle: col.Title})
		}
	}
	return rows, nil
}

// ListTasks writes every matching task of a board in the requested format.
func ListTasks(ctx context.Context, store Store, boardID string, format OutputFormat, filters *filter.Criteria, w io.Writer) error {
	b, err := store.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}

	rows, err := CollectRows(ctx, store, boardID, filters)
	if err != nil {
		return err
	}

	switch format {
	case OutputFormatDefault:
		FormatTable(w, rows, b.Name)
	case OutputFormatJSONL:
		if err := FormatJSONL(w, rows); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
	return nil
}

// TaskGetter fetches one task by ID.
type TaskGetter interface {
	GetTask(ctx context.Context, taskID string) (*board.Task, error)
}

// GetTask writes a single task as pretty-printed JSON. Soft-deleted tasks are
// reported as not found.
func GetTask(ctx context.Context, store TaskGetter, taskID string, w io.Writer) error {
	t, err := store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if t.Deleted {
		return &board.NotFoundError{Kind: "task", ID: taskID}
	}
	return FormatSingleJSON(w, t)
}
