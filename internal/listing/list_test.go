package listing

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dyluth/swimlane/internal/filter"
	"github.com/dyluth/swimlane/internal/testutil"
	"github.com/dyluth/swimlane/pkg/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTasks(t *testing.T) {
	t.Run("empty board - default format", func(t *testing.T) {
		env := testutil.SetupBoardEnvironment(t)

		var buf bytes.Buffer
		err := ListTasks(env.Ctx, env.Client, env.Board.ID, OutputFormatDefault, nil, &buf)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "No tasks found on board 'Sprint'")
	})

	t.Run("board order then rank - JSONL format", func(t *testing.T) {
		env := testutil.SetupBoardEnvironment(t)
		todo, done := env.Columns[0], env.Columns[2]
		env.AddTask(done, "Shipped", 0)
		env.AddTask(todo, "Second", 2000)
		env.AddTask(todo, "First", 1000)
		gone := env.AddTask(todo, "Removed", 500)
		require.NoError(t, env.Client.SoftDeleteTask(env.Ctx, gone.ID))

		var buf bytes.Buffer
		err := ListTasks(env.Ctx, env.Client, env.Board.ID, OutputFormatJSONL, nil, &buf)
		require.NoError(t, err)

		var titles, columns []string
		for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
			var row Row
			require.NoError(t, json.Unmarshal([]byte(line), &row))
			titles = append(titles, row.Title)
			columns = append(columns, row.ColumnTitle)
		}
		assert.Equal(t, []string{"First", "Second", "Shipped"}, titles)
		assert.Equal(t, []string{"To Do", "To Do", "Done"}, columns)
	})

	t.Run("filters are applied", func(t *testing.T) {
		env := testutil.SetupBoardEnvironment(t)
		todo := env.Columns[0]
		env.AddTask(todo, "Fix login", 0)
		urgent := env.AddTask(todo, "Fix payments", 1)
		env.AddTask(todo, "Write docs", 2)
		high := board.PriorityHigh
		require.NoError(t, env.Client.UpdateTask(env.Ctx, urgent.ID, board.TaskUpdate{Priority: &high}))

		rows, err := CollectRows(env.Ctx, env.Client, env.Board.ID, &filter.Criteria{TitleGlob: "fix*"})
		require.NoError(t, err)
		assert.Len(t, rows, 2)

		rows, err = CollectRows(env.Ctx, env.Client, env.Board.ID, &filter.Criteria{TitleGlob: "fix*", Priority: board.PriorityHigh})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Fix payments", rows[0].Title)
	})

	t.Run("unknown board", func(t *testing.T) {
		env := testutil.SetupBoardEnvironment(t)

		var buf bytes.Buffer
		err := ListTasks(env.Ctx, env.Client, testutil.NewID(), OutputFormatDefault, nil, &buf)
		assert.True(t, board.IsNotFound(err))
	})

	t.Run("unknown format", func(t *testing.T) {
		env := testutil.SetupBoardEnvironment(t)

		var buf bytes.Buffer
		err := ListTasks(env.Ctx, env.Client, env.Board.ID, OutputFormat("xml"), nil, &buf)
		assert.ErrorContains(t, err, "unknown output format: xml")
	})
}

func TestGetTask(t *testing.T) {
	env := testutil.SetupBoardEnvironment(t)
	task := env.AddTask(env.Columns[1], "Review PR", 0)

	var buf bytes.Buffer
	require.NoError(t, GetTask(env.Ctx, env.Client, task.ID, &buf))

	var got board.Task
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "Review PR", got.Title)
	assert.Equal(t, env.Columns[1].ID, got.ColumnID)

	require.NoError(t, env.Client.SoftDeleteTask(env.Ctx, task.ID))
	err := GetTask(env.Ctx, env.Client, task.ID, &buf)
	assert.True(t, board.IsNotFound(err))
}
