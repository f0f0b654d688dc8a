package board

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient creates a test client connected to a miniredis instance
func setupTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	err := mr.Start()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewClient(&redis.Options{Addr: mr.Addr()}, "test-ns")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func newID() string { return uuid.New().String() }

// seedBoard creates a board with its default columns and returns them.
func seedBoard(t *testing.T, client *Client) (*Board, []*Column) {
	t.Helper()
	b := &Board{ID: newID(), Name: "Sprint", TeamID: "team-1", CreatedBy: "user-1"}
	cols, err := client.CreateBoard(context.Background(), b, newID)
	require.NoError(t, err)
	return b, cols
}

// seedTask creates a task in col with the given title and order.
func seedTask(t *testing.T, client *Client, col *Column, title string, order float64) *Task {
	t.Helper()
	task := &Task{
		ID:       newID(),
		Title:    title,
		ColumnID: col.ID,
		BoardID:  col.BoardID,
		Order:    order,
	}
	require.NoError(t, client.CreateTask(context.Background(), task))
	return task
}

func titles(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func TestNewClient(t *testing.T) {
	t.Run("creates client successfully", func(t *testing.T) {
		client, _ := setupTestClient(t)
		assert.NotNil(t, client)
		assert.Equal(t, "test-ns", client.Namespace())
	})

	t.Run("rejects empty namespace", func(t *testing.T) {
		_, err := NewClient(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "namespace cannot be empty")
	})
}

func TestPing(t *testing.T) {
	client, _ := setupTestClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestCreateBoard(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()

	t.Run("creates default columns", func(t *testing.T) {
		b, cols := seedBoard(t, client)
		require.Len(t, cols, 3)

		listed, err := client.ListColumns(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, listed, 3)
		assert.Equal(t, "To Do", listed[0].Title)
		assert.Equal(t, "In Progress", listed[1].Title)
		assert.Equal(t, "Done", listed[2].Title)
	})

	t.Run("lists team boards", func(t *testing.T) {
		boards, err := client.ListTeamBoards(ctx, "team-1")
		require.NoError(t, err)
		assert.NotEmpty(t, boards)
	})

	t.Run("rejects invalid board", func(t *testing.T) {
		_, err := client.CreateBoard(ctx, &Board{ID: "nope", Name: "x", TeamID: "t", CreatedBy: "u"}, newID)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid board")
	})

	t.Run("returns not found for missing board", func(t *testing.T) {
		_, err := client.GetBoard(ctx, newID())
		assert.True(t, IsNotFound(err))
	})
}

func TestCreateTask(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	_, cols := seedBoard(t, client)

	t.Run("defaults priority and trims fields", func(t *testing.T) {
		task := &Task{ID: newID(), Title: "  Write docs ", Description: " ", ColumnID: cols[0].ID, BoardID: cols[0].BoardID}
		require.NoError(t, client.CreateTask(ctx, task))

		got, err := client.GetTask(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "Write docs", got.Title)
		assert.Equal(t, "", got.Description)
		assert.Equal(t, PriorityMedium, got.Priority)
		assert.Equal(t, float64(0), got.Order)
		assert.NotZero(t, got.CreatedAtMs)
	})

	t.Run("rejects missing column", func(t *testing.T) {
		task := &Task{ID: newID(), Title: "Orphan", ColumnID: newID(), BoardID: cols[0].BoardID}
		err := client.CreateTask(ctx, task)
		assert.True(t, IsNotFound(err))
	})

	t.Run("rejects column from another board", func(t *testing.T) {
		task := &Task{ID: newID(), Title: "Wrong board", ColumnID: cols[0].ID, BoardID: newID()}
		err := client.CreateTask(ctx, task)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "belongs to board")
	})
}

func TestUpdateAndSoftDeleteTask(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	_, cols := seedBoard(t, client)
	task := seedTask(t, client, cols[0], "Original", 0)

	title := "Renamed"
	high := PriorityHigh
	require.NoError(t, client.UpdateTask(ctx, task.ID, TaskUpdate{Title: &title, Priority: &high}))

	got, err := client.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, PriorityHigh, got.Priority)

	bad := Priority("urgent")
	assert.Error(t, client.UpdateTask(ctx, task.ID, TaskUpdate{Priority: &bad}))

	require.NoError(t, client.SoftDeleteTask(ctx, task.ID))
	got, err = client.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, got.Deleted)

	// Soft-deleted tasks stay in the column index and do not count for NextTaskOrder
	tasks, err := client.ColumnTasks(ctx, cols[0].ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	next, err := client.NextTaskOrder(ctx, cols[0].ID)
	require.NoError(t, err)
	assert.Equal(t, float64(0), next)

	assert.True(t, IsNotFound(client.SoftDeleteTask(ctx, newID())))
}

func TestUpdateTaskOrder(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	_, cols := seedBoard(t, client)
	task := seedTask(t, client, cols[0], "Point", 0)

	require.NoError(t, client.UpdateTaskOrder(ctx, task.ID, 3000))
	got, err := client.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(3000), got.Order)

	err = client.UpdateTaskOrder(ctx, newID(), 1)
	assert.True(t, IsNotFound(err))
}

func TestApplyReassignments(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	_, cols := seedBoard(t, client)
	todo, done := cols[0], cols[2]

	t1 := seedTask(t, client, todo, "T1", 0)
	t2 := seedTask(t, client, todo, "T2", 1000)
	t3 := seedTask(t, client, todo, "T3", 2000)
	d1 := seedTask(t, client, done, "D1", 0)

	t.Run("moves a task across columns and renumbers both", func(t *testing.T) {
		skipped, err := client.ApplyReassignments(ctx, []Reassignment{
			{TaskID: t2.ID, ColumnID: done.ID, Order: 0},
			{TaskID: d1.ID, Order: 1000},
			{TaskID: t1.ID, Order: 0},
			{TaskID: t3.ID, Order: 1000},
		})
		require.NoError(t, err)
		assert.Empty(t, skipped)

		todoTasks, err := client.ColumnTasks(ctx, todo.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"T1", "T3"}, titles(todoTasks))

		doneTasks, err := client.ColumnTasks(ctx, done.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"T2", "D1"}, titles(doneTasks))
		assert.Equal(t, done.ID, doneTasks[0].ColumnID)
	})

	t.Run("skips missing records and applies the rest", func(t *testing.T) {
		missing := newID()
		skipped, err := client.ApplyReassignments(ctx, []Reassignment{
			{TaskID: missing, Order: 0},
			{TaskID: t3.ID, Order: 0},
			{TaskID: t1.ID, ColumnID: newID(), Order: 5},
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{missing, t1.ID}, skipped)

		got, err := client.GetTask(ctx, t3.ID)
		require.NoError(t, err)
		assert.Equal(t, float64(0), got.Order)

		got, err = client.GetTask(ctx, t1.ID)
		require.NoError(t, err)
		assert.Equal(t, todo.ID, got.ColumnID)
	})

	t.Run("rejects malformed entries", func(t *testing.T) {
		_, err := client.ApplyReassignments(ctx, []Reassignment{{TaskID: "bad"}})
		assert.Error(t, err)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		skipped, err := client.ApplyReassignments(ctx, nil)
		assert.NoError(t, err)
		assert.Nil(t, skipped)
	})

	t.Run("applying the same batch twice is idempotent", func(t *testing.T) {
		batch := []Reassignment{{TaskID: t1.ID, Order: 7000}, {TaskID: t3.ID, Order: 8000}}
		_, err := client.ApplyReassignments(ctx, batch)
		require.NoError(t, err)
		first, err := client.ColumnTasks(ctx, todo.ID)
		require.NoError(t, err)

		_, err = client.ApplyReassignments(ctx, batch)
		require.NoError(t, err)
		second, err := client.ColumnTasks(ctx, todo.ID)
		require.NoError(t, err)

		require.Len(t, second, len(first))
		for i := range first {
			assert.Equal(t, first[i].ID, second[i].ID)
			assert.Equal(t, first[i].Order, second[i].Order)
		}
	})
}

func TestDeleteColumnCascades(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()
	b, cols := seedBoard(t, client)
	inProgress := cols[1]

	var taskIDs []string
	for _, title := range []string{"A", "B", "C"} {
		taskIDs = append(taskIDs, seedTask(t, client, inProgress, title, 0).ID)
	}

	require.NoError(t, client.DeleteColumn(ctx, inProgress.ID))

	for _, id := range taskIDs {
		assert.False(t, mr.Exists(TaskKey("test-ns", id)), "task %s should be removed", id)
	}
	assert.False(t, mr.Exists(ColumnKey("test-ns", inProgress.ID)))
	assert.False(t, mr.Exists(ColumnTasksKey("test-ns", inProgress.ID)))

	listed, err := client.ListColumns(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	assert.True(t, IsNotFound(client.DeleteColumn(ctx, inProgress.ID)))
}

func TestDeleteBoardCascades(t *testing.T) {
	client, mr := setupTestClient(t)
	ctx := context.Background()
	b, cols := seedBoard(t, client)
	task := seedTask(t, client, cols[0], "A", 0)

	require.NoError(t, client.DeleteBoard(ctx, b.ID))

	assert.False(t, mr.Exists(BoardKey("test-ns", b.ID)))
	assert.False(t, mr.Exists(TaskKey("test-ns", task.ID)))
	for _, col := range cols {
		assert.False(t, mr.Exists(ColumnKey("test-ns", col.ID)))
	}
	boards, err := client.ListTeamBoards(ctx, b.TeamID)
	require.NoError(t, err)
	assert.Empty(t, boards)
}

func TestUpdateColumnOrder(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	b, cols := seedBoard(t, client)

	require.NoError(t, client.UpdateColumnOrder(ctx, cols[0].ID, 10))
	listed, err := client.ListColumns(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, cols[0].ID, listed[2].ID)

	assert.True(t, IsNotFound(client.UpdateColumnOrder(ctx, newID(), 1)))
}

func TestScan(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	b, cols := seedBoard(t, client)
	task := seedTask(t, client, cols[0], "Scan me", 0)

	ids, err := client.ScanTasks(ctx, task.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID}, ids)

	ids, err = client.ScanColumns(ctx, cols[1].ID[:8])
	require.NoError(t, err)
	assert.Equal(t, []string{cols[1].ID}, ids)

	ids, err = client.ScanBoards(ctx, b.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids, "board index keys are not returned")
}

func TestSubscribeColumnTasks(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	_, cols := seedBoard(t, client)
	seedTask(t, client, cols[0], "Existing", 0)

	sub, err := client.SubscribeColumnTasks(ctx, cols[0].ID)
	require.NoError(t, err)
	defer sub.Close()

	t.Run("delivers initial snapshot", func(t *testing.T) {
		select {
		case tasks := <-sub.Events():
			assert.Equal(t, []string{"Existing"}, titles(tasks))
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for initial snapshot")
		}
	})

	t.Run("delivers full snapshot after a write", func(t *testing.T) {
		seedTask(t, client, cols[0], "New", 1000)

		select {
		case tasks := <-sub.Events():
			assert.Equal(t, []string{"Existing", "New"}, titles(tasks))
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for snapshot")
		}
	})

	t.Run("close is idempotent and closes events", func(t *testing.T) {
		assert.NoError(t, sub.Close())
		assert.NoError(t, sub.Close())
		for range sub.Events() {
		}
	})
}

func TestDeleteColumnIsObservedAtomically(t *testing.T) {
	client, _ := setupTestClient(t)
	ctx := context.Background()
	b, cols := seedBoard(t, client)
	inProgress := cols[1]
	for _, title := range []string{"A", "B", "C"} {
		seedTask(t, client, inProgress, title, 0)
	}

	colSub, err := client.SubscribeBoardColumns(ctx, b.ID)
	require.NoError(t, err)
	defer colSub.Close()
	taskSub, err := client.SubscribeColumnTasks(ctx, inProgress.ID)
	require.NoError(t, err)
	defer taskSub.Close()

	initialCols := <-colSub.Events()
	require.Len(t, initialCols, 3)
	initialTasks := <-taskSub.Events()
	require.Len(t, initialTasks, 3)

	require.NoError(t, client.DeleteColumn(ctx, inProgress.ID))

	// The first snapshot after the delete already reflects both halves
	select {
	case tasks := <-taskSub.Events():
		assert.Empty(t, tasks)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for task snapshot")
	}
	select {
	case columns := <-colSub.Events():
		assert.Len(t, columns, 2)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for column snapshot")
	}
}
