package commands

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dyluth/swimlane/internal/config"
	"github.com/dyluth/swimlane/internal/drag"
	"github.com/dyluth/swimlane/internal/listing"
	"github.com/dyluth/swimlane/internal/testutil"
	"github.com/dyluth/swimlane/pkg/board"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupCLI points the CLI at a fresh miniredis board in an empty directory.
func setupCLI(t *testing.T) *testutil.BoardEnvironment {
	t.Helper()
	env := testutil.SetupBoardEnvironment(t)
	chdir(t, t.TempDir())
	t.Setenv(config.EnvRedisURL, "redis://"+env.Redis.Addr()+"/0")
	t.Setenv(config.EnvLogLevel, "error")

	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
	return env
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--namespace", "test-ns"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestBoardCommands(t *testing.T) {
	env := setupCLI(t)

	_, err := run(t, "board", "create", "--name", "Roadmap", "--team", "platform", "--by", "alice")
	require.NoError(t, err)

	boards, err := env.Client.ListTeamBoards(env.Ctx, "platform")
	require.NoError(t, err)
	require.Len(t, boards, 1)
	created := boards[0]
	assert.Equal(t, "Roadmap", created.Name)
	assert.Equal(t, "alice", created.CreatedBy)

	out, err := run(t, "board", "list", "--team", "platform")
	require.NoError(t, err)
	assert.Contains(t, out, "Roadmap")
	assert.Contains(t, out, created.ID[:8])

	env.AddTask(env.Columns[0], "Write docs", 0)
	out, err = run(t, "board", "show", env.Board.ID[:8])
	require.NoError(t, err, "short IDs resolve")
	assert.Contains(t, out, "Sprint")
	assert.Contains(t, out, "To Do")
	assert.Contains(t, out, "Write docs")

	_, err = run(t, "board", "delete", created.ID)
	require.NoError(t, err)
	_, err = env.Client.GetBoard(env.Ctx, created.ID)
	assert.True(t, board.IsNotFound(err))
}

func TestColumnCommands(t *testing.T) {
	env := setupCLI(t)

	_, err := run(t, "column", "add", "--board", env.Board.ID, "--title", "Review")
	require.NoError(t, err)

	cols, err := env.Client.ListColumns(env.Ctx, env.Board.ID)
	require.NoError(t, err)
	require.Len(t, cols, 4)
	review := cols[3]
	assert.Equal(t, "Review", review.Title, "appended after the last column")

	_, err = run(t, "column", "move", review.ID, "--order", "-1")
	require.NoError(t, err)
	cols, err = env.Client.ListColumns(env.Ctx, env.Board.ID)
	require.NoError(t, err)
	assert.Equal(t, "Review", cols[0].Title)

	env.AddTask(env.Columns[2], "Shipped", 0)
	_, err = run(t, "column", "delete", env.Columns[2].ID)
	require.NoError(t, err)
	cols, err = env.Client.ListColumns(env.Ctx, env.Board.ID)
	require.NoError(t, err)
	assert.Len(t, cols, 3)
}

func TestTaskAddEditDelete(t *testing.T) {
	env := setupCLI(t)
	todo := env.Columns[0]
	env.AddTask(todo, "Existing", 0)

	_, err := run(t, "task", "add", "--column", todo.ID, "--title", "Fix login",
		"--priority", "high", "--assignee", "sam", "--deadline", "2026-11-30")
	require.NoError(t, err)
	assert.Equal(t, []string{"Existing", "Fix login"}, env.ColumnTitles(todo), "new tasks go to the end")

	tasks, err := env.Client.ColumnTasks(env.Ctx, todo.ID)
	require.NoError(t, err)
	added := tasks[1]
	assert.Equal(t, board.PriorityHigh, added.Priority)
	assert.Equal(t, "sam", added.Assignee)
	assert.NotZero(t, added.DeadlineMs)

	_, err = run(t, "task", "edit", added.ID, "--priority", "low", "--deadline", "none", "--assignee", "")
	require.NoError(t, err)
	got, err := env.Client.GetTask(env.Ctx, added.ID)
	require.NoError(t, err)
	assert.Equal(t, board.PriorityLow, got.Priority)
	assert.Zero(t, got.DeadlineMs)
	assert.Empty(t, got.Assignee)
	assert.Equal(t, "Fix login", got.Title, "untouched fields keep their value")

	_, err = run(t, "task", "edit", added.ID)
	assert.EqualError(t, err, "nothing to change")

	_, err = run(t, "task", "add", "--column", todo.ID, "--title", "x", "--priority", "urgent")
	assert.EqualError(t, err, "invalid priority")

	_, err = run(t, "task", "delete", added.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Existing"}, env.ColumnTitles(todo))

	_, err = run(t, "task", "show", added.ID)
	assert.Error(t, err)
}

func TestTaskAddRanksAfterRenumberedColumn(t *testing.T) {
	env := setupCLI(t)
	todo := env.Columns[0]
	env.AddTask(todo, "A", 0)
	env.AddTask(todo, "B", 1000)
	env.AddTask(todo, "C", 2000)

	_, err := run(t, "task", "add", "--column", todo.ID, "--title", "D")
	require.NoError(t, err)

	tasks, err := env.Client.ColumnTasks(env.Ctx, todo.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 4)
	assert.Equal(t, "D", tasks[3].Title)
	assert.Equal(t, float64(2001), tasks[3].Order)

	out, err := run(t, "task", "add", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "rather than\nat order 0")
}

func TestTaskMoveAndReorder(t *testing.T) {
	env := setupCLI(t)
	todo, doing := env.Columns[0], env.Columns[1]
	a := env.AddTask(todo, "A", 0)
	env.AddTask(todo, "B", 1000)
	c := env.AddTask(todo, "C", 2000)
	env.AddTask(doing, "X", 0)

	_, err := run(t, "task", "reorder", c.ID, "--index", "0")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, env.ColumnTitles(todo))

	_, err = run(t, "task", "move", a.ID, "--to", doing.ID, "--index", "0")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B"}, env.ColumnTitles(todo))
	assert.Equal(t, []string{"A", "X"}, env.ColumnTitles(doing))

	_, err = run(t, "task", "move", c.ID, "--to", doing.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "X", "C"}, env.ColumnTitles(doing), "no index appends")

	_, err = run(t, "task", "move", c.ID, "--to", doing.ID)
	assert.EqualError(t, err, "task is already in that column")

	_, err = run(t, "task", "reorder", c.ID, "--index", "7")
	assert.Error(t, err, "index out of range")
}

func TestTaskListAndShow(t *testing.T) {
	env := setupCLI(t)
	env.AddTask(env.Columns[0], "Fix login", 0)
	env.AddTask(env.Columns[1], "Write docs", 0)

	out, err := run(t, "task", "list", "--board", env.Board.ID, "--output", "jsonl", "--title", "fix*")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	var row listing.Row
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &row))
	assert.Equal(t, "Fix login", row.Title)
	assert.Equal(t, "To Do", row.ColumnTitle)

	out, err = run(t, "task", "list", "--board", env.Board.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "2 tasks found")

	_, err = run(t, "task", "list", "--board", env.Board.ID, "--output", "xml")
	assert.EqualError(t, err, "invalid output format")

	out, err = run(t, "task", "show", row.ID)
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "Fix login"`)
}

func TestDragCommand(t *testing.T) {
	env := setupCLI(t)
	todo, done := env.Columns[0], env.Columns[2]
	a := env.AddTask(todo, "A", 0)
	env.AddTask(todo, "B", 1000)
	c := env.AddTask(todo, "C", 2000)

	_, err := run(t, "drag", "--board", env.Board.ID, "--task", c.ID, "--before", a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, env.ColumnTitles(todo))

	_, err = run(t, "drag", "--board", env.Board.ID, "--task", a.ID, "--column", done.ID, "--slot", "top")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B"}, env.ColumnTitles(todo))
	assert.Equal(t, []string{"A"}, env.ColumnTitles(done))

	_, err = run(t, "drag", "--board", env.Board.ID, "--task", a.ID)
	assert.EqualError(t, err, "exactly one drop target required")
}

func TestParseSlot(t *testing.T) {
	tests := []struct {
		slot    string
		want    drag.Target
		wantErr bool
	}{
		{slot: "", want: drag.Target{Kind: drag.TargetColumn, ColumnID: "c"}},
		{slot: "top", want: drag.Target{Kind: drag.TargetSlot, ColumnID: "c", Slot: drag.SlotTop}},
		{slot: "bottom", want: drag.Target{Kind: drag.TargetSlot, ColumnID: "c", Slot: drag.SlotBottom}},
		{slot: "after:2", want: drag.Target{Kind: drag.TargetSlot, ColumnID: "c", Slot: drag.SlotAfter, Index: 2}},
		{slot: "after:-1", wantErr: true},
		{slot: "middle", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.slot, func(t *testing.T) {
			got, err := parseSlot("c", tt.slot)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	_, err := run(t, "init")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, config.DefaultPath))

	_, err = run(t, "init")
	assert.EqualError(t, err, "initialization failed")

	_, err = run(t, "init", "--force")
	assert.NoError(t, err)
}

func TestConnectFailure(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(config.EnvRedisURL, "redis://127.0.0.1:1/0")

	_, err := run(t, "board", "list", "--team", "x")
	assert.EqualError(t, err, "Redis connection failed")
}

func TestUnknownIDs(t *testing.T) {
	setupCLI(t)

	_, err := run(t, "board", "show", testutil.NewID())
	assert.ErrorContains(t, err, "not found")

	_, err = run(t, "task", "delete", "abc")
	assert.EqualError(t, err, "invalid task ID")

	_, err = run(t, "column", "delete", "zzzzzzzz")
	assert.ErrorContains(t, err, "column with ID 'zzzzzzzz' not found")
}
