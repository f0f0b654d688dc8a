package board

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// maxTxAttempts bounds how often an optimistic WATCH transaction is re-run when a
// watched key changed underneath it.
const maxTxAttempts = 3

// Client provides namespace-scoped Redis operations for boards, columns and tasks.
// All keys and channels are automatically namespaced with the namespace name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb       *redis.Client
	namespace string
	now       func() time.Time
}

// NewClient creates a new board client for the specified namespace.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - namespace: deployment identifier prefixed to every key (must not be empty)
//
// Returns an error if namespace is empty.
func NewClient(redisOpts *redis.Options, namespace string) (*Client, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}

	return &Client{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
		now:       time.Now,
	}, nil
}

// Namespace returns the key namespace of this client.
func (c *Client) Namespace() string {
	return c.namespace
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) nowMs() int64 {
	return c.now().UnixMilli()
}

// watch runs fn as an optimistic transaction over keys, re-running it when one
// of the watched keys was modified before EXEC.
func (c *Client) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := c.rdb.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("transaction aborted after %d attempts: %w", maxTxAttempts, redis.TxFailedErr)
}

// CreateBoard writes a board together with its default columns in one
// transaction and returns the created columns.
func (c *Client) CreateBoard(ctx context.Context, b *Board, newID func() string) ([]*Column, error) {
	if b.CreatedAtMs == 0 {
		b.CreatedAtMs = c.nowMs()
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid board: %w", err)
	}

	columns := make([]*Column, 0, len(DefaultColumns))
	for i, title := range DefaultColumns {
		col := &Column{
			ID:          newID(),
			Title:       title,
			Order:       float64(i),
			BoardID:     b.ID,
			CreatedAtMs: b.CreatedAtMs,
		}
		if err := col.Validate(); err != nil {
			return nil, fmt.Errorf("invalid default column: %w", err)
		}
		columns = append(columns, col)
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, BoardKey(c.namespace, b.ID), BoardToHash(b))
		pipe.SAdd(ctx, TeamBoardsKey(c.namespace, b.TeamID), b.ID)
		for _, col := range columns {
			pipe.HSet(ctx, ColumnKey(c.namespace, col.ID), ColumnToHash(col))
			pipe.SAdd(ctx, BoardColumnsKey(c.namespace, b.ID), col.ID)
		}
		return publish(ctx, pipe, BoardColumnEventsChannel(c.namespace, b.ID), EventBoardCreated, b.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write board to Redis: %w", err)
	}

	return columns, nil
}

// GetBoard retrieves a board by ID.
// Returns a *NotFoundError if the board doesn't exist.
func (c *Client) GetBoard(ctx context.Context, boardID string) (*Board, error) {
	hashData, err := c.rdb.HGetAll(ctx, BoardKey(c.namespace, boardID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read board from Redis: %w", err)
	}
	if len(hashData) == 0 {
		return nil, &NotFoundError{Kind: "board", ID: boardID}
	}
	return HashToBoard(hashData), nil
}

// ListTeamBoards returns the boards of a team ordered by creation time.
func (c *Client) ListTeamBoards(ctx context.Context, teamID string) ([]*Board, error) {
	ids, err := c.rdb.SMembers(ctx, TeamBoardsKey(c.namespace, teamID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read team boards: %w", err)
	}

	hashes, err := c.readHashes(ctx, ids, func(id string) string { return BoardKey(c.namespace, id) })
	if err != nil {
		return nil, fmt.Errorf("failed to read boards: %w", err)
	}

	boards := make([]*Board, 0, len(hashes))
	for _, h := range hashes {
		boards = append(boards, HashToBoard(h))
	}
	sort.SliceStable(boards, func(i, j int) bool {
		if boards[i].CreatedAtMs != boards[j].CreatedAtMs {
			return boards[i].CreatedAtMs < boards[j].CreatedAtMs
		}
		return boards[i].ID < boards[j].ID
	})
	return boards, nil
}

// DeleteBoard hard-deletes a board with all its columns and tasks in a single
// transaction. Subscribers of the board and of each column are notified.
func (c *Client) DeleteBoard(ctx context.Context, boardID string) error {
	b, err := c.GetBoard(ctx, boardID)
	if err != nil {
		return err
	}

	columnsKey := BoardColumnsKey(c.namespace, boardID)
	tasksKey := BoardTasksKey(c.namespace, boardID)

	err = c.watch(ctx, func(tx *redis.Tx) error {
		columnIDs, err := tx.SMembers(ctx, columnsKey).Result()
		if err != nil {
			return err
		}
		taskIDs, err := tx.SMembers(ctx, tasksKey).Result()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, id := range taskIDs {
				pipe.Del(ctx, TaskKey(c.namespace, id))
			}
			for _, id := range columnIDs {
				pipe.Del(ctx, ColumnKey(c.namespace, id), ColumnTasksKey(c.namespace, id))
				if err := publish(ctx, pipe, ColumnTaskEventsChannel(c.namespace, id), EventColumnDeleted, id); err != nil {
					return err
				}
			}
			pipe.Del(ctx, columnsKey, tasksKey, BoardKey(c.namespace, boardID))
			pipe.SRem(ctx, TeamBoardsKey(c.namespace, b.TeamID), boardID)
			return publish(ctx, pipe, BoardColumnEventsChannel(c.namespace, boardID), EventBoardDeleted, boardID)
		})
		return err
	}, columnsKey, tasksKey)
	if err != nil {
		return fmt.Errorf("failed to delete board: %w", err)
	}
	return nil
}

// CreateColumn writes a column to an existing board and notifies the board's
// column subscribers.
func (c *Client) CreateColumn(ctx context.Context, col *Column) error {
	if col.CreatedAtMs == 0 {
		col.CreatedAtMs = c.nowMs()
	}
	if err := col.Validate(); err != nil {
		return fmt.Errorf("invalid column: %w", err)
	}

	exists, err := c.rdb.Exists(ctx, BoardKey(c.namespace, col.BoardID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check board existence: %w", err)
	}
	if exists == 0 {
		return &NotFoundError{Kind: "board", ID: col.BoardID}
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, ColumnKey(c.namespace, col.ID), ColumnToHash(col))
		pipe.SAdd(ctx, BoardColumnsKey(c.namespace, col.BoardID), col.ID)
		return publish(ctx, pipe, BoardColumnEventsChannel(c.namespace, col.BoardID), EventColumnCreated, col.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to write column to Redis: %w", err)
	}
	return nil
}

// GetColumn retrieves a column by ID.
// Returns a *NotFoundError if the column doesn't exist.
func (c *Client) GetColumn(ctx context.Context, columnID string) (*Column, error) {
	hashData, err := c.rdb.HGetAll(ctx, ColumnKey(c.namespace, columnID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read column from Redis: %w", err)
	}
	if len(hashData) == 0 {
		return nil, &NotFoundError{Kind: "column", ID: columnID}
	}
	col, err := HashToColumn(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize column: %w", err)
	}
	return col, nil
}

// ListColumns returns the columns of a board sorted ascending by order.
func (c *Client) ListColumns(ctx context.Context, boardID string) ([]Column, error) {
	ids, err := c.rdb.SMembers(ctx, BoardColumnsKey(c.namespace, boardID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read board columns: %w", err)
	}

	hashes, err := c.readHashes(ctx, ids, func(id string) string { return ColumnKey(c.namespace, id) })
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	columns := make([]Column, 0, len(hashes))
	for _, h := range hashes {
		col, err := HashToColumn(h)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize column %s: %w", h["id"], err)
		}
		columns = append(columns, *col)
	}
	SortColumns(columns)
	return columns, nil
}

// UpdateColumnOrder rewrites the rank of a column among its board's columns.
func (c *Client) UpdateColumnOrder(ctx context.Context, columnID string, order float64) error {
	boardID, err := c.rdb.HGet(ctx, ColumnKey(c.namespace, columnID), "board_id").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &NotFoundError{Kind: "column", ID: columnID}
		}
		return fmt.Errorf("failed to read column: %w", err)
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, ColumnKey(c.namespace, columnID), "order", FormatOrder(order))
		return publish(ctx, pipe, BoardColumnEventsChannel(c.namespace, boardID), EventColumnUpdated, columnID)
	})
	if err != nil {
		return fmt.Errorf("failed to update column order: %w", err)
	}
	return nil
}

// DeleteColumn hard-deletes a column and every task it owns in one transaction.
// A subscriber never observes the column gone while its tasks remain, or the
// reverse.
func (c *Client) DeleteColumn(ctx context.Context, columnID string) error {
	col, err := c.GetColumn(ctx, columnID)
	if err != nil {
		return err
	}

	tasksKey := ColumnTasksKey(c.namespace, columnID)
	err = c.watch(ctx, func(tx *redis.Tx) error {
		taskIDs, err := tx.SMembers(ctx, tasksKey).Result()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, id := range taskIDs {
				pipe.Del(ctx, TaskKey(c.namespace, id))
				pipe.SRem(ctx, BoardTasksKey(c.namespace, col.BoardID), id)
			}
			pipe.Del(ctx, tasksKey, ColumnKey(c.namespace, columnID))
			pipe.SRem(ctx, BoardColumnsKey(c.namespace, col.BoardID), columnID)
			if err := publish(ctx, pipe, ColumnTaskEventsChannel(c.namespace, columnID), EventColumnDeleted, columnID); err != nil {
				return err
			}
			return publish(ctx, pipe, BoardColumnEventsChannel(c.namespace, col.BoardID), EventColumnDeleted, columnID)
		})
		return err
	}, tasksKey)
	if err != nil {
		return fmt.Errorf("failed to delete column: %w", err)
	}
	return nil
}

// readHashes fetches the hashes for ids in one pipeline, skipping keys that no
// longer exist.
func (c *Client) readHashes(ctx context.Context, ids []string, key func(string) string) ([]map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, key(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	hashes := make([]map[string]string, 0, len(cmds))
	for _, cmd := range cmds {
		h, err := cmd.Result()
		if err != nil {
			return nil, err
		}
		if len(h) == 0 {
			continue
		}
		hashes = append(hashes, h)
	}
	return hashes, nil
}

// SortColumns sorts columns ascending by order, breaking ties by creation time.
func SortColumns(columns []Column) {
	sort.SliceStable(columns, func(i, j int) bool {
		if columns[i].Order != columns[j].Order {
			return columns[i].Order < columns[j].Order
		}
		return columns[i].CreatedAtMs < columns[j].CreatedAtMs
	})
}
