package listing

import (
	"bytes"
	"testing"
	"time"

	"github.com/dyluth/swimlane/pkg/board"
	"github.com/stretchr/testify/assert"
)

func freezeNow(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func TestFormatTitle(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		expected string
	}{
		{name: "empty", title: "", expected: "-"},
		{name: "short", title: "Fix login", expected: "Fix login"},
		{name: "multi-line keeps first non-empty line", title: "\n  Ship it  \nsecond", expected: "Ship it"},
		{name: "long title truncated", title: "This title is definitely longer than forty characters", expected: "This title is definitely longer than ..."},
		{name: "whitespace only", title: "   \n  ", expected: "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatTitle(tt.title))
		})
	}
}

func TestFormatAssignee(t *testing.T) {
	assert.Equal(t, "-", formatAssignee(""))
	assert.Equal(t, "sam", formatAssignee("sam"))
	assert.Equal(t, "averyveryve…", formatAssignee("averyveryverylongname"))
}

func TestFormatTimestamp(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	freezeNow(t, base)

	assert.Equal(t, "-", formatTimestamp(0))
	assert.Equal(t, "30s ago", formatTimestamp(base.Add(-30*time.Second).UnixMilli()))
	assert.Equal(t, "5m ago", formatTimestamp(base.Add(-5*time.Minute).UnixMilli()))
	assert.Equal(t, "3h ago", formatTimestamp(base.Add(-3*time.Hour).UnixMilli()))
	assert.Equal(t, "2d ago", formatTimestamp(base.Add(-49*time.Hour).UnixMilli()))
}

func TestFormatDeadline(t *testing.T) {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	freezeNow(t, base)

	assert.Equal(t, "-", formatDeadline(0))
	assert.Equal(t, "2026-03-12", formatDeadline(base.Add(48*time.Hour).UnixMilli()))
	assert.Equal(t, "2026-03-09!", formatDeadline(base.Add(-24*time.Hour).UnixMilli()))
}

func TestFormatTable(t *testing.T) {
	t.Run("empty rows", func(t *testing.T) {
		var buf bytes.Buffer
		count := FormatTable(&buf, nil, "Sprint")

		assert.Contains(t, buf.String(), "No tasks found on board 'Sprint'")
		assert.Equal(t, 0, count)
	})

	t.Run("multiple rows", func(t *testing.T) {
		rows := []Row{
			{Task: board.Task{ID: "abc12345-0000", Title: "Write docs", Priority: board.PriorityHigh, Assignee: "sam"}, ColumnTitle: "To Do"},
			{Task: board.Task{ID: "def67890-0000", Title: "Fix build", Priority: board.PriorityLow}, ColumnTitle: "A very long column title"},
		}

		var buf bytes.Buffer
		count := FormatTable(&buf, rows, "Sprint")

		output := buf.String()
		assert.Contains(t, output, "Tasks on board 'Sprint'")
		assert.Contains(t, output, "abc12345")
		assert.NotContains(t, output, "abc12345-0000")
		assert.Contains(t, output, "Write docs")
		assert.Contains(t, output, "sam")
		assert.Contains(t, output, "A very long...")
		assert.Contains(t, output, "2 tasks found")
		assert.Equal(t, 2, count)
	})

	t.Run("singular count", func(t *testing.T) {
		var buf bytes.Buffer
		FormatTable(&buf, []Row{{Task: board.Task{ID: "a", Title: "x", Priority: board.PriorityMedium}}}, "Sprint")
		assert.Contains(t, buf.String(), "1 task found")
	})
}

func TestFormatJSONL(t *testing.T) {
	rows := []Row{
		{Task: board.Task{ID: "t1", Title: "One", Priority: board.PriorityMedium}, ColumnTitle: "To Do"},
		{Task: board.Task{ID: "t2", Title: "Two", Priority: board.PriorityLow}, ColumnTitle: "Done"},
	}

	var buf bytes.Buffer
	assert.NoError(t, FormatJSONL(&buf, rows))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"id":"t1"`)
	assert.Contains(t, string(lines[0]), `"column_title":"To Do"`)
	assert.Contains(t, string(lines[1]), `"id":"t2"`)
}
