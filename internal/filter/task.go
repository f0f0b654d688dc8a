package filter

import (
	"path/filepath"
	"strings"

	"github.com/dyluth/swimlane/pkg/board"
)

// Criteria defines filtering criteria for tasks.
// All filters are ANDed together - a task must match ALL criteria to pass.
type Criteria struct {
	SinceTimestampMs int64          // Last update at or after, 0 = no filter
	UntilTimestampMs int64          // Last update at or before, 0 = no filter
	TitleGlob        string         // Case-insensitive glob on the title, empty = no filter
	Assignee         string         // Exact assignee, empty = no filter
	Priority         board.Priority // Exact priority, empty = no filter
	Overdue          int64          // Deadline strictly before this time in ms, 0 = no filter
}

// Matches returns true if the task matches all filter criteria.
// Soft-deleted tasks never match.
func (c *Criteria) Matches(t *board.Task) bool {
	if t.Deleted {
		return false
	}

	if c.SinceTimestampMs > 0 && t.UpdatedAtMs < c.SinceTimestampMs {
		return false
	}
	if c.UntilTimestampMs > 0 && t.UpdatedAtMs > c.UntilTimestampMs {
		return false
	}

	if c.TitleGlob != "" {
		matched, err := filepath.Match(strings.ToLower(c.TitleGlob), strings.ToLower(t.Title))
		if err != nil || !matched {
			return false
		}
	}

	if c.Assignee != "" && t.Assignee != c.Assignee {
		return false
	}

	if c.Priority != "" && t.Priority != c.Priority {
		return false
	}

	if c.Overdue > 0 && (t.DeadlineMs == 0 || t.DeadlineMs >= c.Overdue) {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.SinceTimestampMs > 0 ||
		c.UntilTimestampMs > 0 ||
		c.TitleGlob != "" ||
		c.Assignee != "" ||
		c.Priority != "" ||
		c.Overdue > 0
}

// Apply returns the tasks that match, in their original order. A nil Criteria
// only drops soft-deleted tasks.
func (c *Criteria) Apply(tasks []board.Task) []board.Task {
	if c == nil {
		c = &Criteria{}
	}
	out := make([]board.Task, 0, len(tasks))
	for i := range tasks {
		if c.Matches(&tasks[i]) {
			out = append(out, tasks[i])
		}
	}
	return out
}
