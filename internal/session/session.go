// Package session wires the store adapter, reconciler and drag controller for
// one open board. A Session is an explicit state object: it is created by Open,
// handed around by reference, and torn down by Close.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dyluth/swimlane/internal/drag"
	"github.com/dyluth/swimlane/internal/reconcile"
	"github.com/dyluth/swimlane/internal/store"
	"github.com/dyluth/swimlane/pkg/board"
	"github.com/sirupsen/logrus"
)

// Options tunes the components of a session. Zero values select each
// component's defaults.
type Options struct {
	Debounce           time.Duration
	ActivationDistance float64
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration
	Logger             logrus.FieldLogger
}

// Session is one open board: its column feed, the per-column task feeds, the
// reconciled mapping and the drag controller acting on it.
type Session struct {
	board      *board.Board
	reconciler *reconcile.Reconciler
	adapter    *store.Adapter
	controller *drag.Controller

	cancel  context.CancelFunc
	columns *board.Subscription[[]board.Column]
	tasks   *store.Subscriptions
	done    chan struct{}
	once    sync.Once
	log     logrus.FieldLogger
}

// Open loads boardID and starts following its columns and tasks. It returns
// once the column set is known and a feed is open for every column.
func Open(ctx context.Context, client *board.Client, boardID string, opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	log := opts.Logger.WithFields(logrus.Fields{"component": "session", "board_id": boardID})

	b, err := client.GetBoard(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to open board %s: %w", boardID, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	rec := reconcile.New(reconcile.Options{Debounce: opts.Debounce, Logger: opts.Logger})
	adapter := store.NewAdapter(client, store.Options{
		MaxFailures: opts.BreakerMaxFailures,
		OpenTimeout: opts.BreakerOpenTimeout,
		Logger:      opts.Logger,
	})

	s := &Session{
		board:      b,
		reconciler: rec,
		adapter:    adapter,
		controller: drag.NewController(rec, adapter, drag.Options{
			ActivationDistance: opts.ActivationDistance,
			Logger:             opts.Logger,
		}),
		cancel: cancel,
		tasks:  adapter.NewSubscriptions(ctx, rec.Deliver),
		done:   make(chan struct{}),
		log:    log,
	}

	s.columns, err = client.SubscribeBoardColumns(ctx, boardID)
	if err != nil {
		s.abort()
		return nil, fmt.Errorf("failed to follow columns of board %s: %w", boardID, err)
	}

	select {
	case cols, ok := <-s.columns.Events():
		if !ok {
			s.abort()
			return nil, fmt.Errorf("column feed of board %s closed", boardID)
		}
		if err := s.applyColumns(cols); err != nil {
			s.abort()
			return nil, err
		}
	case err := <-s.columns.Errors():
		s.abort()
		return nil, fmt.Errorf("failed to read columns of board %s: %w", boardID, err)
	case <-ctx.Done():
		s.abort()
		return nil, ctx.Err()
	}

	go s.followColumns()
	log.Info("board session opened")
	return s, nil
}

func (s *Session) followColumns() {
	defer close(s.done)
	events, errs := s.columns.Events(), s.columns.Errors()
	for events != nil || errs != nil {
		select {
		case cols, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if err := s.applyColumns(cols); err != nil {
				s.log.WithError(err).Warn("column subscriptions out of sync")
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.log.WithError(err).Warn("column feed error")
		}
	}
}

// applyColumns records the column set before syncing task feeds so a feed for a
// removed column can never repopulate it.
func (s *Session) applyColumns(cols []board.Column) error {
	s.reconciler.SetColumns(cols)
	ids := make([]string, len(cols))
	for i, c := range cols {
		ids[i] = c.ID
	}
	return s.tasks.Sync(ids)
}

// abort tears down a partially opened session.
func (s *Session) abort() {
	s.cancel()
	if s.columns != nil {
		s.columns.Close()
	}
	s.tasks.Close()
	s.reconciler.Close()
}

// Board returns the board record the session was opened for.
func (s *Session) Board() *board.Board { return s.board }

// Reconciler returns the session's reconciled column→tasks mapping.
func (s *Session) Reconciler() *reconcile.Reconciler { return s.reconciler }

// Controller returns the drag controller bound to this board.
func (s *Session) Controller() *drag.Controller { return s.controller }

// Adapter returns the store adapter writes go through.
func (s *Session) Adapter() *store.Adapter { return s.adapter }

// Close stops every feed, waits for in-flight writes and closes the reconciler's
// listeners. Safe to call multiple times.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.columns.Close()
		<-s.done
		s.tasks.Close()
		s.controller.Wait()
		s.cancel()
		s.reconciler.Close()
		s.log.Info("board session closed")
	})
	return nil
}

// WaitForSync blocks until every column of the board has received its first
// feed delivery.
func (s *Session) WaitForSync(ctx context.Context, timeout time.Duration) error {
	return poll(ctx, timeout, "board sync", s.reconciler.Synced)
}

// WaitForTask polls the reconciled mapping until taskID is visible. Feeds deliver
// their first snapshot asynchronously after Open, so callers that act on a
// specific task wait for it here.
func (s *Session) WaitForTask(ctx context.Context, taskID string, timeout time.Duration) (board.Task, error) {
	var task board.Task
	err := poll(ctx, timeout, "task "+taskID, func() bool {
		var ok bool
		task, ok = s.reconciler.Task(taskID)
		return ok
	})
	return task, err
}

// poll checks cond every 20ms until it holds, ctx ends or timeout passes.
func poll(ctx context.Context, timeout time.Duration, what string, cond func() bool) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		if cond() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeoutCh:
			return fmt.Errorf("timeout waiting for %s after %v", what, timeout)
		case <-ticker.C:
		}
	}
}
