// Package store is the persistence boundary between ordering decisions and the
// document store. It chooses between a point write and an atomic batch, reports
// records that vanished concurrently, and manages the per-column live queries a
// board session depends on.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/dyluth/swimlane/pkg/board"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// DocumentStore is the subset of the board client the adapter writes through.
// *board.Client satisfies it.
type DocumentStore interface {
	UpdateTaskOrder(ctx context.Context, taskID string, order float64) error
	ApplyReassignments(ctx context.Context, batch []board.Reassignment) ([]string, error)
	SubscribeColumnTasks(ctx context.Context, columnID string) (*board.Subscription[[]board.Task], error)
}

// Options configures an Adapter. Zero values fall back to the defaults below.
type Options struct {
	MaxFailures uint32        // consecutive write failures before the breaker opens (default 5)
	OpenTimeout time.Duration // how long writes fail fast once open (default 10s)
	Logger      logrus.FieldLogger
}

const (
	defaultMaxFailures = 5
	defaultOpenTimeout = 10 * time.Second
)

// Result reports which entries of a batch were written and which were skipped
// because their task or target column no longer exists.
type Result struct {
	Applied []string
	Skipped []string
}

// Adapter persists reassignment batches and opens live column queries.
type Adapter struct {
	store   DocumentStore
	breaker *gobreaker.CircuitBreaker
	log     logrus.FieldLogger
}

// NewAdapter wraps store. Writes go through a circuit breaker so a store that
// keeps failing is reported immediately instead of once per drop.
func NewAdapter(store DocumentStore, opts Options) *Adapter {
	if opts.MaxFailures == 0 {
		opts.MaxFailures = defaultMaxFailures
	}
	if opts.OpenTimeout == 0 {
		opts.OpenTimeout = defaultOpenTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	logger := opts.Logger.WithField("component", "store")
	maxFailures := opts.MaxFailures

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "document-store",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})

	return &Adapter{store: store, breaker: breaker, log: logger}
}

// PersistReassignment writes batch. A batch of exactly one entry that keeps the
// task in its column is a point update; anything else is one atomic write, so a
// subscriber never sees a partially applied reorder.
//
// Entries whose records were deleted concurrently are skipped and listed in
// Result.Skipped; the rest still apply. Store failures are returned as
// *board.PersistenceError and must be taken to mean nothing was committed.
// Failed writes are not retried.
func (a *Adapter) PersistReassignment(ctx context.Context, batch []board.Reassignment) (*Result, error) {
	if len(batch) == 0 {
		return &Result{}, nil
	}
	for _, r := range batch {
		if err := r.Validate(); err != nil {
			return nil, board.NewValidationError("persist", "task %q: %v", r.TaskID, err)
		}
	}

	op := "batch"
	if len(batch) == 1 && !batch[0].MovesColumn() {
		op = "point"
	}

	out, err := a.breaker.Execute(func() (interface{}, error) {
		if op == "point" {
			err := a.store.UpdateTaskOrder(ctx, batch[0].TaskID, batch[0].Order)
			if board.IsNotFound(err) {
				return []string{batch[0].TaskID}, nil
			}
			return nil, err
		}
		return a.store.ApplyReassignments(ctx, batch)
	})
	if err != nil {
		a.log.WithFields(logrus.Fields{"op": op, "entries": len(batch)}).WithError(err).Error("reassignment write failed")
		return nil, &board.PersistenceError{Op: op, Err: err}
	}

	skipped, _ := out.([]string)
	res := &Result{Skipped: skipped}
	skip := make(map[string]bool, len(skipped))
	for _, id := range skipped {
		skip[id] = true
	}
	for _, r := range batch {
		if !skip[r.TaskID] {
			res.Applied = append(res.Applied, r.TaskID)
		}
	}

	entry := a.log.WithFields(logrus.Fields{"op": op, "applied": len(res.Applied)})
	if len(res.Skipped) > 0 {
		entry.WithField("skipped", res.Skipped).Warn("reassignment partially applied, records no longer exist")
	} else {
		entry.Debug("reassignment persisted")
	}
	return res, nil
}

// Unsubscribe tears down a live query. Safe to call more than once.
type Unsubscribe func()

// Subscribe registers a live query for the tasks of columnID. onChange is
// called from a dedicated goroutine with the full current task list, soft-deleted
// tasks included, once on start and after every change.
func (a *Adapter) Subscribe(ctx context.Context, columnID string, onChange func([]board.Task)) (Unsubscribe, error) {
	sub, err := a.store.SubscribeColumnTasks(ctx, columnID)
	if err != nil {
		return nil, err
	}

	log := a.log.WithField("column_id", columnID)
	done := make(chan struct{})
	go func() {
		defer close(done)
		events, errs := sub.Events(), sub.Errors()
		for events != nil || errs != nil {
			select {
			case tasks, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				onChange(tasks)
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				log.WithError(err).Warn("column feed error")
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.Close()
			<-done
			log.Debug("column subscription closed")
		})
	}, nil
}
