package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/dyluth/swimlane/pkg/board"
)

// Subscriptions keeps exactly one live query open per known column of a board.
type Subscriptions struct {
	ctx      context.Context
	adapter  *Adapter
	onChange func(columnID string, tasks []board.Task)

	mu     sync.Mutex
	active map[string]Unsubscribe
	closed bool
}

// NewSubscriptions creates an empty set. onChange receives every feed delivery
// tagged with the column it came from.
func (a *Adapter) NewSubscriptions(ctx context.Context, onChange func(columnID string, tasks []board.Task)) *Subscriptions {
	return &Subscriptions{
		ctx:      ctx,
		adapter:  a,
		onChange: onChange,
		active:   make(map[string]Unsubscribe),
	}
}

// Sync opens subscriptions for columns not yet followed and tears down those
// for columns no longer in columnIDs. On error the columns that did subscribe
// stay subscribed; calling Sync again with the same ids retries the rest.
func (s *Subscriptions) Sync(columnIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("subscriptions closed")
	}

	want := make(map[string]bool, len(columnIDs))
	for _, id := range columnIDs {
		want[id] = true
	}

	for id, unsubscribe := range s.active {
		if !want[id] {
			unsubscribe()
			delete(s.active, id)
		}
	}

	for _, id := range columnIDs {
		if _, ok := s.active[id]; ok {
			continue
		}
		columnID := id
		unsubscribe, err := s.adapter.Subscribe(s.ctx, columnID, func(tasks []board.Task) {
			s.onChange(columnID, tasks)
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to column %s: %w", columnID, err)
		}
		s.active[columnID] = unsubscribe
	}
	return nil
}

// Columns returns the ids currently subscribed to.
func (s *Subscriptions) Columns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	return ids
}

// Close tears down every subscription. Sync fails afterwards.
func (s *Subscriptions) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, unsubscribe := range s.active {
		unsubscribe()
		delete(s.active, id)
	}
	s.closed = true
}
