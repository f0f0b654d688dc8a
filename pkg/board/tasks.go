package board

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

// TaskUpdate holds the user-editable fields of a task. Nil fields are left unchanged.
type TaskUpdate struct {
	Title       *string
	Description *string
	Assignee    *string
	Priority    *Priority
	DeadlineMs  *int64
}

// CreateTask writes a task into an existing column and notifies the column's
// subscribers. New tasks carry whatever order the caller chose; the placeholder
// is 0 and the task is renumbered on its first move.
func (c *Client) CreateTask(ctx context.Context, t *Task) error {
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	now := c.nowMs()
	if t.CreatedAtMs == 0 {
		t.CreatedAtMs = now
	}
	t.UpdatedAtMs = now
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)

	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	boardID, err := c.rdb.HGet(ctx, ColumnKey(c.namespace, t.ColumnID), "board_id").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &NotFoundError{Kind: "column", ID: t.ColumnID}
		}
		return fmt.Errorf("failed to read column: %w", err)
	}
	if boardID != t.BoardID {
		return fmt.Errorf("invalid task: column %s belongs to board %s, not %s", t.ColumnID, boardID, t.BoardID)
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, TaskKey(c.namespace, t.ID), TaskToHash(t))
		pipe.SAdd(ctx, ColumnTasksKey(c.namespace, t.ColumnID), t.ID)
		pipe.SAdd(ctx, BoardTasksKey(c.namespace, t.BoardID), t.ID)
		return publish(ctx, pipe, ColumnTaskEventsChannel(c.namespace, t.ColumnID), EventTaskCreated, t.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to write task to Redis: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID, including soft-deleted tasks.
// Returns a *NotFoundError if the task doesn't exist.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	hashData, err := c.rdb.HGetAll(ctx, TaskKey(c.namespace, taskID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read task from Redis: %w", err)
	}
	if len(hashData) == 0 {
		return nil, &NotFoundError{Kind: "task", ID: taskID}
	}
	task, err := HashToTask(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize task: %w", err)
	}
	return task, nil
}

// UpdateTask applies the non-nil fields of upd to a task.
func (c *Client) UpdateTask(ctx context.Context, taskID string, upd TaskUpdate) error {
	fields := map[string]interface{}{}
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return fmt.Errorf("invalid task update: title cannot be empty")
		}
		fields["title"] = title
	}
	if upd.Description != nil {
		fields["description"] = strings.TrimSpace(*upd.Description)
	}
	if upd.Assignee != nil {
		fields["assignee"] = *upd.Assignee
	}
	if upd.Priority != nil {
		if err := upd.Priority.Validate(); err != nil {
			return fmt.Errorf("invalid task update: %w", err)
		}
		fields["priority"] = string(*upd.Priority)
	}
	if upd.DeadlineMs != nil {
		fields["deadline_ms"] = *upd.DeadlineMs
	}
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at_ms"] = c.nowMs()

	return c.writeTaskFields(ctx, taskID, fields, EventTaskUpdated)
}

// SoftDeleteTask marks a task deleted. The record is kept so in-flight reorder
// writes that still reference it do not fail.
func (c *Client) SoftDeleteTask(ctx context.Context, taskID string) error {
	return c.writeTaskFields(ctx, taskID, map[string]interface{}{
		"deleted":       "true",
		"updated_at_ms": c.nowMs(),
	}, EventTaskDeleted)
}

// UpdateTaskOrder is the point write for a reorder that touches a single task
// without changing its column.
func (c *Client) UpdateTaskOrder(ctx context.Context, taskID string, order float64) error {
	return c.writeTaskFields(ctx, taskID, map[string]interface{}{
		"order":         FormatOrder(order),
		"updated_at_ms": c.nowMs(),
	}, EventTasksReordered)
}

func (c *Client) writeTaskFields(ctx context.Context, taskID string, fields map[string]interface{}, kind string) error {
	key := TaskKey(c.namespace, taskID)
	columnID, err := c.rdb.HGet(ctx, key, "column_id").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &NotFoundError{Kind: "task", ID: taskID}
		}
		return fmt.Errorf("failed to read task: %w", err)
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields)
		return publish(ctx, pipe, ColumnTaskEventsChannel(c.namespace, columnID), kind, taskID)
	})
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// ApplyReassignments writes a reassignment batch atomically: either every
// surviving entry is applied or none is. Entries whose task (or target column)
// no longer exists are skipped and returned; the rest of the batch still applies.
// Each affected column is notified once, inside the same transaction.
func (c *Client) ApplyReassignments(ctx context.Context, batch []Reassignment) ([]string, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	for i, r := range batch {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("invalid reassignment at index %d: %w", i, err)
		}
	}

	keys := make([]string, 0, len(batch))
	for _, r := range batch {
		keys = append(keys, TaskKey(c.namespace, r.TaskID))
		if r.MovesColumn() {
			keys = append(keys, ColumnKey(c.namespace, r.ColumnID))
		}
	}

	var skipped []string
	err := c.watch(ctx, func(tx *redis.Tx) error {
		skipped = nil
		type entry struct {
			Reassignment
			from string
		}
		entries := make([]entry, 0, len(batch))

		for _, r := range batch {
			from, err := tx.HGet(ctx, TaskKey(c.namespace, r.TaskID), "column_id").Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if from == "" {
				skipped = append(skipped, r.TaskID)
				continue
			}
			if r.MovesColumn() && r.ColumnID != from {
				n, err := tx.Exists(ctx, ColumnKey(c.namespace, r.ColumnID)).Result()
				if err != nil {
					return err
				}
				if n == 0 {
					skipped = append(skipped, r.TaskID)
					continue
				}
			}
			entries = append(entries, entry{Reassignment: r, from: from})
		}

		if len(entries) == 0 {
			return nil
		}

		now := c.nowMs()
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			var touched []string
			seen := map[string]bool{}
			touch := func(columnID string) {
				if !seen[columnID] {
					seen[columnID] = true
					touched = append(touched, columnID)
				}
			}

			for _, e := range entries {
				key := TaskKey(c.namespace, e.TaskID)
				fields := map[string]interface{}{
					"order":         FormatOrder(e.Order),
					"updated_at_ms": now,
				}
				touch(e.from)
				if e.MovesColumn() && e.ColumnID != e.from {
					fields["column_id"] = e.ColumnID
					pipe.SRem(ctx, ColumnTasksKey(c.namespace, e.from), e.TaskID)
					pipe.SAdd(ctx, ColumnTasksKey(c.namespace, e.ColumnID), e.TaskID)
					touch(e.ColumnID)
				}
				pipe.HSet(ctx, key, fields)
			}

			for _, columnID := range touched {
				if err := publish(ctx, pipe, ColumnTaskEventsChannel(c.namespace, columnID), EventTasksReordered, columnID); err != nil {
					return err
				}
			}
			return nil
		})
		return err
	}, keys...)
	if err != nil {
		return nil, fmt.Errorf("failed to apply reassignments: %w", err)
	}

	return skipped, nil
}

// ColumnTasks returns every task owned by a column, soft-deleted ones included,
// sorted ascending by order with creation time as the tie break.
func (c *Client) ColumnTasks(ctx context.Context, columnID string) ([]Task, error) {
	ids, err := c.rdb.SMembers(ctx, ColumnTasksKey(c.namespace, columnID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read column tasks: %w", err)
	}

	hashes, err := c.readHashes(ctx, ids, func(id string) string { return TaskKey(c.namespace, id) })
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}

	tasks := make([]Task, 0, len(hashes))
	for _, h := range hashes {
		task, err := HashToTask(h)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize task %s: %w", h["id"], err)
		}
		// A concurrent move may leave the set briefly ahead of the hash
		if task.ColumnID != columnID {
			continue
		}
		tasks = append(tasks, *task)
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Order != tasks[j].Order {
			return tasks[i].Order < tasks[j].Order
		}
		return tasks[i].CreatedAtMs < tasks[j].CreatedAtMs
	})
	return tasks, nil
}

// NextTaskOrder returns one more than the highest order among the column's
// live tasks, or 0 for an empty column.
func (c *Client) NextTaskOrder(ctx context.Context, columnID string) (float64, error) {
	tasks, err := c.ColumnTasks(ctx, columnID)
	if err != nil {
		return 0, err
	}
	max := -1.0
	for _, t := range tasks {
		if !t.Deleted && t.Order > max {
			max = t.Order
		}
	}
	return max + 1, nil
}

// ScanTasks returns the IDs of all tasks whose ID starts with prefix.
func (c *Client) ScanTasks(ctx context.Context, prefix string) ([]string, error) {
	return c.scanIDs(ctx, taskKeyPattern(c.namespace, prefix), TaskKey(c.namespace, ""))
}

// ScanColumns returns the IDs of all columns whose ID starts with prefix.
func (c *Client) ScanColumns(ctx context.Context, prefix string) ([]string, error) {
	return c.scanIDs(ctx, columnKeyPattern(c.namespace, prefix), ColumnKey(c.namespace, ""))
}

// ScanBoards returns the IDs of all boards whose ID starts with prefix.
func (c *Client) ScanBoards(ctx context.Context, prefix string) ([]string, error) {
	return c.scanIDs(ctx, boardKeyPattern(c.namespace, prefix), BoardKey(c.namespace, ""))
}

func (c *Client) scanIDs(ctx context.Context, pattern, keyPrefix string) ([]string, error) {
	var ids []string
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		id := strings.TrimPrefix(iter.Val(), keyPrefix)
		// Skip index keys such as column:{id}:tasks
		if strings.Contains(id, ":") {
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan keys: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}
