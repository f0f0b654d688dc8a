package board

import (
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores records as string-to-string maps. Numeric fields are written with
// strconv so that a hash round-trips exactly; optional fields are always written
// (as empty strings) so a full HSET replaces stale values.

// TaskToHash converts a Task struct to a Redis hash format.
func TaskToHash(t *Task) map[string]interface{} {
	return map[string]interface{}{
		"id":            t.ID,
		"title":         t.Title,
		"description":   t.Description,
		"assignee":      t.Assignee,
		"priority":      string(t.Priority),
		"column_id":     t.ColumnID,
		"board_id":      t.BoardID,
		"order":         FormatOrder(t.Order),
		"deleted":       strconv.FormatBool(t.Deleted),
		"created_by":    t.CreatedBy,
		"deadline_ms":   t.DeadlineMs,
		"created_at_ms": t.CreatedAtMs,
		"updated_at_ms": t.UpdatedAtMs,
	}
}

// HashToTask converts a Redis hash to a Task struct.
func HashToTask(hash map[string]string) (*Task, error) {
	order, err := ParseOrder(hash["order"])
	if err != nil {
		return nil, fmt.Errorf("invalid order field: %w", err)
	}

	// Missing booleans and timestamps decode to their zero values
	deleted, _ := strconv.ParseBool(hash["deleted"])
	deadlineMs, _ := strconv.ParseInt(hash["deadline_ms"], 10, 64)
	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)

	priority := Priority(hash["priority"])
	if priority == "" {
		priority = PriorityMedium
	}

	return &Task{
		ID:          hash["id"],
		Title:       hash["title"],
		Description: hash["description"],
		Assignee:    hash["assignee"],
		Priority:    priority,
		ColumnID:    hash["column_id"],
		BoardID:     hash["board_id"],
		Order:       order,
		Deleted:     deleted,
		CreatedBy:   hash["created_by"],
		DeadlineMs:  deadlineMs,
		CreatedAtMs: createdAtMs,
		UpdatedAtMs: updatedAtMs,
	}, nil
}

// ColumnToHash converts a Column struct to a Redis hash format.
func ColumnToHash(c *Column) map[string]interface{} {
	return map[string]interface{}{
		"id":            c.ID,
		"title":         c.Title,
		"order":         FormatOrder(c.Order),
		"board_id":      c.BoardID,
		"created_at_ms": c.CreatedAtMs,
	}
}

// HashToColumn converts a Redis hash to a Column struct.
func HashToColumn(hash map[string]string) (*Column, error) {
	order, err := ParseOrder(hash["order"])
	if err != nil {
		return nil, fmt.Errorf("invalid order field: %w", err)
	}
	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)

	return &Column{
		ID:          hash["id"],
		Title:       hash["title"],
		Order:       order,
		BoardID:     hash["board_id"],
		CreatedAtMs: createdAtMs,
	}, nil
}

// BoardToHash converts a Board struct to a Redis hash format.
func BoardToHash(b *Board) map[string]interface{} {
	return map[string]interface{}{
		"id":            b.ID,
		"name":          b.Name,
		"team_id":       b.TeamID,
		"created_by":    b.CreatedBy,
		"created_at_ms": b.CreatedAtMs,
	}
}

// HashToBoard converts a Redis hash to a Board struct.
func HashToBoard(hash map[string]string) *Board {
	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	return &Board{
		ID:          hash["id"],
		Name:        hash["name"],
		TeamID:      hash["team_id"],
		CreatedBy:   hash["created_by"],
		CreatedAtMs: createdAtMs,
	}
}

// FormatOrder renders an order value in its shortest exact form.
func FormatOrder(order float64) string {
	return strconv.FormatFloat(order, 'f', -1, 64)
}

// ParseOrder parses an order value; an empty string is order 0.
func ParseOrder(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
