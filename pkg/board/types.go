package board

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Priority is the urgency of a task.
type Priority string

const (
	// PriorityLow marks a task that can wait
	PriorityLow Priority = "low"

	// PriorityMedium is the default priority for new tasks
	PriorityMedium Priority = "medium"

	// PriorityHigh marks a task that should be picked up first
	PriorityHigh Priority = "high"
)

// Task is a single card on a board. A task belongs to exactly one column at a
// time; ColumnID is the sole owner pointer and moving a task rewrites it.
type Task struct {
	ID          string   `json:"id"`                    // UUID
	Title       string   `json:"title"`                 // Non-empty display title
	Description string   `json:"description,omitempty"` // Optional free text
	Assignee    string   `json:"assignee,omitempty"`    // Optional user reference
	Priority    Priority `json:"priority"`              // low, medium or high
	ColumnID    string   `json:"column_id"`             // Owning column
	BoardID     string   `json:"board_id"`              // Owning board (denormalized)
	Order       float64  `json:"order"`                 // Rank within the column, not necessarily contiguous
	Deleted     bool     `json:"deleted,omitempty"`     // Soft-delete flag, filtered from every read path
	CreatedBy   string   `json:"created_by,omitempty"`  // User that created the task
	DeadlineMs  int64    `json:"deadline_ms,omitempty"` // Optional deadline, Unix milliseconds
	CreatedAtMs int64    `json:"created_at_ms"`
	UpdatedAtMs int64    `json:"updated_at_ms"`
}

// Column is an ordered lane of tasks on a board.
type Column struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Order       float64 `json:"order"` // Rank among the board's columns
	BoardID     string  `json:"board_id"`
	CreatedAtMs int64   `json:"created_at_ms"`
}

// Board groups the columns of one team workspace.
type Board struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	TeamID      string `json:"team_id"`
	CreatedBy   string `json:"created_by"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

// Reassignment is one entry of a reassignment batch: the new order of a task and,
// when ColumnID is non-empty, its new owning column.
type Reassignment struct {
	TaskID   string  `json:"task_id"`
	ColumnID string  `json:"column_id,omitempty"`
	Order    float64 `json:"order"`
}

// MovesColumn reports whether the reassignment rewrites the owning column.
func (r Reassignment) MovesColumn() bool {
	return r.ColumnID != ""
}

// DefaultColumns are created with every new board.
var DefaultColumns = []string{"To Do", "In Progress", "Done"}

// Validate checks if the Priority is a valid enum value.
func (p Priority) Validate() error {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return nil
	default:
		return fmt.Errorf("unknown priority: %q", p)
	}
}

// Validate checks if the Task has valid field values.
func (t *Task) Validate() error {
	if !isValidUUID(t.ID) {
		return fmt.Errorf("invalid task ID: not a valid UUID")
	}

	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task title cannot be empty")
	}

	if err := t.Priority.Validate(); err != nil {
		return fmt.Errorf("invalid priority: %w", err)
	}

	if !isValidUUID(t.ColumnID) {
		return fmt.Errorf("invalid column ID: not a valid UUID")
	}

	if !isValidUUID(t.BoardID) {
		return fmt.Errorf("invalid board ID: not a valid UUID")
	}

	return nil
}

// Validate checks if the Column has valid field values.
func (c *Column) Validate() error {
	if !isValidUUID(c.ID) {
		return fmt.Errorf("invalid column ID: not a valid UUID")
	}

	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("column title cannot be empty")
	}

	if !isValidUUID(c.BoardID) {
		return fmt.Errorf("invalid board ID: not a valid UUID")
	}

	return nil
}

// Validate checks if the Board has valid field values.
func (b *Board) Validate() error {
	if !isValidUUID(b.ID) {
		return fmt.Errorf("invalid board ID: not a valid UUID")
	}

	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("board name cannot be empty")
	}

	if b.TeamID == "" {
		return fmt.Errorf("team ID cannot be empty")
	}

	if b.CreatedBy == "" {
		return fmt.Errorf("created_by cannot be empty")
	}

	return nil
}

// Validate checks that a reassignment references a task and, if present, a column.
func (r Reassignment) Validate() error {
	if !isValidUUID(r.TaskID) {
		return fmt.Errorf("invalid task ID: not a valid UUID")
	}
	if r.ColumnID != "" && !isValidUUID(r.ColumnID) {
		return fmt.Errorf("invalid column ID: not a valid UUID")
	}
	return nil
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
