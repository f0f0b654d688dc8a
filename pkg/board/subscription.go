package board

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Change notification kinds published on column and board channels.
const (
	EventBoardCreated   = "board_created"
	EventBoardDeleted   = "board_deleted"
	EventColumnCreated  = "column_created"
	EventColumnUpdated  = "column_updated"
	EventColumnDeleted  = "column_deleted"
	EventTaskCreated    = "task_created"
	EventTaskUpdated    = "task_updated"
	EventTaskDeleted    = "task_deleted"
	EventTasksReordered = "tasks_reordered"
)

// ChangeEvent is the payload of a change notification. Subscribers treat it as a
// trigger to re-read the query; the payload is informational.
type ChangeEvent struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// publish queues a change notification on pipe so that it is delivered in the
// same transaction as the write it describes.
func publish(ctx context.Context, pipe redis.Pipeliner, channel, kind, id string) error {
	payload, err := json.Marshal(ChangeEvent{Kind: kind, ID: id})
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	pipe.Publish(ctx, channel, payload)
	return nil
}

// Subscription is a live query. It delivers the full current result set once on
// start and again after every change to any matching record.
// Caller must call Close() when done to clean up resources.
type Subscription[T any] struct {
	events <-chan T
	errors <-chan error
	cancel func()
	done   <-chan struct{}
	once   sync.Once
}

// Events returns the channel of snapshots.
// The channel is closed when the subscription is closed or the context is cancelled.
func (s *Subscription[T]) Events() <-chan T {
	return s.events
}

// Errors returns the channel of non-fatal subscription errors, such as a failed
// re-read. The subscription continues after errors.
func (s *Subscription[T]) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and waits for its goroutine to exit.
// Safe to call multiple times.
func (s *Subscription[T]) Close() error {
	s.once.Do(s.cancel)
	<-s.done
	return nil
}

// SubscribeColumnTasks opens a live query over the tasks owned by a column.
// Snapshots include soft-deleted tasks; consumers filter them.
func (c *Client) SubscribeColumnTasks(ctx context.Context, columnID string) (*Subscription[[]Task], error) {
	channel := ColumnTaskEventsChannel(c.namespace, columnID)
	return subscribeSnapshots(ctx, c.rdb, channel, func(ctx context.Context) ([]Task, error) {
		return c.ColumnTasks(ctx, columnID)
	})
}

// SubscribeBoardColumns opens a live query over the columns of a board, sorted
// by order.
func (c *Client) SubscribeBoardColumns(ctx context.Context, boardID string) (*Subscription[[]Column], error) {
	channel := BoardColumnEventsChannel(c.namespace, boardID)
	return subscribeSnapshots(ctx, c.rdb, channel, func(ctx context.Context) ([]Column, error) {
		return c.ListColumns(ctx, boardID)
	})
}

// subscribeSnapshots subscribes to channel and re-runs query for the initial
// snapshot and after every notification.
//
// Snapshots are delivered on a buffered channel (size 10). Redis Pub/Sub is
// at-most-once, but because every snapshot is a full re-read a dropped
// notification is repaired by the next one.
func subscribeSnapshots[T any](ctx context.Context, rdb *redis.Client, channel string, query func(context.Context) (T, error)) (*Subscription[T], error) {
	pubsub := rdb.Subscribe(ctx, channel)

	// Wait for the subscription to be confirmed so no write issued after this
	// call returns can be missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	eventsChan := make(chan T, 10)
	errorsChan := make(chan error, 10)
	done := make(chan struct{})

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(done)
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		deliver := func() bool {
			snapshot, err := query(subCtx)
			if err != nil {
				if subCtx.Err() != nil {
					return false
				}
				select {
				case errorsChan <- fmt.Errorf("failed to read snapshot for %s: %w", channel, err):
					return true
				case <-subCtx.Done():
					return false
				}
			}
			select {
			case eventsChan <- snapshot:
				return true
			case <-subCtx.Done():
				return false
			}
		}

		if !deliver() {
			return
		}

		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				if !deliver() {
					return
				}
			}
		}
	}()

	return &Subscription[T]{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
		done:   done,
	}, nil
}
