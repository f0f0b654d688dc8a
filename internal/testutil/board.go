// Package testutil provides a seeded, isolated board for package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/swimlane/pkg/board"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// BoardEnvironment is a board with its default columns, stored in a private
// miniredis instance that is torn down with the test.
type BoardEnvironment struct {
	T       *testing.T
	Ctx     context.Context
	Redis   *miniredis.Miniredis
	Client  *board.Client
	Board   *board.Board
	Columns []*board.Column // To Do, In Progress, Done
}

// SetupBoardEnvironment starts miniredis and creates a board named "Sprint".
func SetupBoardEnvironment(t *testing.T) *BoardEnvironment {
	t.Helper()
	ctx := context.Background()

	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start(), "Failed to start miniredis")
	t.Cleanup(mr.Close)

	client, err := board.NewClient(&redis.Options{Addr: mr.Addr()}, "test-ns")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	b := &board.Board{ID: NewID(), Name: "Sprint", TeamID: "team-1", CreatedBy: "user-1"}
	cols, err := client.CreateBoard(ctx, b, NewID)
	require.NoError(t, err, "Failed to create board")

	return &BoardEnvironment{
		T:       t,
		Ctx:     ctx,
		Redis:   mr,
		Client:  client,
		Board:   b,
		Columns: cols,
	}
}

// NewID returns a fresh UUID string.
func NewID() string { return uuid.New().String() }

// AddTask creates a task titled title at order in col.
func (env *BoardEnvironment) AddTask(col *board.Column, title string, order float64) *board.Task {
	env.T.Helper()
	task := &board.Task{
		ID:        NewID(),
		Title:     title,
		ColumnID:  col.ID,
		BoardID:   col.BoardID,
		Order:     order,
		CreatedBy: "user-1",
	}
	require.NoError(env.T, env.Client.CreateTask(env.Ctx, task), "Failed to create task %q", title)
	return task
}

// ColumnTitles reads col from the store and returns the titles of its visible
// tasks in order.
func (env *BoardEnvironment) ColumnTitles(col *board.Column) []string {
	env.T.Helper()
	tasks, err := env.Client.ColumnTasks(env.Ctx, col.ID)
	require.NoError(env.T, err)
	var out []string
	for _, task := range tasks {
		if !task.Deleted {
			out = append(out, task.Title)
		}
	}
	return out
}

// Titles returns the titles of tasks in order.
func Titles(tasks []board.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Title
	}
	return out
}

// Eventually polls cond every 10ms until it holds or two seconds pass.
func (env *BoardEnvironment) Eventually(cond func() bool, msg string) {
	env.T.Helper()
	require.Eventually(env.T, cond, 2*time.Second, 10*time.Millisecond, msg)
}
