// Package reconcile merges per-column live feeds into one board-wide
// column→tasks mapping.
//
// Feed deliveries are debounced per column, filtered of soft-deleted tasks,
// sorted by order and compared with the last propagated list, so listeners only
// hear about real changes. The drag controller may lay an optimistic overlay on
// top of the authoritative lists; the next authoritative delivery for a column
// replaces its overlay outright.
package reconcile

import (
	"sync"
	"time"

	"github.com/dyluth/swimlane/internal/ordering"
	"github.com/dyluth/swimlane/pkg/board"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is the coalescing window applied to feed deliveries.
const DefaultDebounce = 50 * time.Millisecond

// listenerBuffer is the capacity of each listener's update channel.
const listenerBuffer = 64

// Update is a change propagated to listeners.
type Update struct {
	ColumnID   string         // Column whose task list changed; empty for a column-set change
	Tasks      []board.Task   // Visible tasks of ColumnID, sorted by order
	Columns    []board.Column // Board columns, set only for a column-set change
	Removed    bool           // ColumnID no longer exists on the board
	Optimistic bool           // Tasks is a local overlay not yet confirmed by the store
}

// Snapshot is a deep copy of the mapping, overlays applied.
type Snapshot struct {
	Columns []board.Column
	Tasks   map[string][]board.Task
}

// Options configures a Reconciler.
type Options struct {
	Debounce time.Duration
	Logger   logrus.FieldLogger
}

// Reconciler owns the column→tasks mapping. Other components read snapshots and
// request changes; they never mutate its lists.
type Reconciler struct {
	debounce time.Duration
	log      logrus.FieldLogger

	mu            sync.Mutex
	columns       []board.Column
	known         map[string]bool // nil until the first SetColumns
	authoritative map[string][]board.Task
	overlay       map[string][]board.Task
	pending       map[string][]board.Task
	timers        map[string]*time.Timer
	listeners     map[*Listener]struct{}
	closed        bool
}

// New creates an empty Reconciler.
func New(opts Options) *Reconciler {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Reconciler{
		debounce:      opts.Debounce,
		log:           opts.Logger.WithField("component", "reconcile"),
		authoritative: make(map[string][]board.Task),
		overlay:       make(map[string][]board.Task),
		pending:       make(map[string][]board.Task),
		timers:        make(map[string]*time.Timer),
		listeners:     make(map[*Listener]struct{}),
	}
}

// Deliver records a feed delivery for columnID. Every delivery restarts the
// column's debounce window, so a burst is processed once, with its last list,
// after the feed has been quiet for the whole window.
func (r *Reconciler) Deliver(columnID string, tasks []board.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	r.pending[columnID] = append([]board.Task(nil), tasks...)
	if t, ok := r.timers[columnID]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(r.debounce, func() { r.flush(columnID, timer) })
	r.timers[columnID] = timer
}

// flush processes the pending delivery for columnID. A timer that fired while
// being replaced finds itself no longer current and does nothing.
func (r *Reconciler) flush(columnID string, timer *time.Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timers[columnID] != timer {
		return
	}
	tasks, ok := r.pending[columnID]
	delete(r.pending, columnID)
	delete(r.timers, columnID)
	if !ok || r.closed {
		return
	}
	if r.known != nil && !r.known[columnID] {
		return
	}

	visible := Visible(tasks)
	prev, seen := r.authoritative[columnID]
	_, overlaid := r.overlay[columnID]
	if seen && !overlaid && TasksEqual(prev, visible) {
		r.log.WithField("column_id", columnID).Debug("feed delivery unchanged, suppressed")
		return
	}

	r.authoritative[columnID] = visible
	delete(r.overlay, columnID)
	r.log.WithFields(logrus.Fields{"column_id": columnID, "tasks": len(visible), "superseded_overlay": overlaid}).Debug("column updated")
	r.notify(Update{ColumnID: columnID, Tasks: clone(visible)})
}

// SetColumns records the board's columns. Columns that disappeared are dropped
// from the mapping along with any pending delivery or overlay.
func (r *Reconciler) SetColumns(columns []board.Column) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	sorted := append([]board.Column(nil), columns...)
	board.SortColumns(sorted)

	known := make(map[string]bool, len(sorted))
	for _, c := range sorted {
		known[c.ID] = true
	}
	for id := range r.known {
		if known[id] {
			continue
		}
		if t, ok := r.timers[id]; ok {
			t.Stop()
			delete(r.timers, id)
		}
		delete(r.pending, id)
		delete(r.authoritative, id)
		delete(r.overlay, id)
		r.notify(Update{ColumnID: id, Removed: true})
	}

	changed := r.known == nil || !columnsEqual(r.columns, sorted)
	r.columns = sorted
	r.known = known
	if changed {
		r.notify(Update{Columns: append([]board.Column(nil), sorted...)})
	}
}

// ApplyOptimistic moves tasks between the in-memory lists and rewrites their
// order right away, ahead of persistence. It returns the columns it touched.
// Entries naming unknown tasks are ignored.
func (r *Reconciler) ApplyOptimistic(batch []board.Reassignment) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || len(batch) == 0 {
		return nil
	}

	lists := make(map[string][]board.Task)
	view := func(columnID string) []board.Task {
		if l, ok := lists[columnID]; ok {
			return l
		}
		l := clone(r.view(columnID))
		lists[columnID] = l
		return l
	}

	var touched []string
	touch := func(columnID string) {
		for _, id := range touched {
			if id == columnID {
				return
			}
		}
		touched = append(touched, columnID)
	}

	for _, re := range batch {
		from, idx := r.locate(re.TaskID, lists)
		if from == "" {
			continue
		}
		src := view(from)
		task := src[idx]
		task.Order = re.Order
		touch(from)

		if re.MovesColumn() && re.ColumnID != from {
			lists[from] = append(src[:idx:idx], src[idx+1:]...)
			task.ColumnID = re.ColumnID
			lists[re.ColumnID] = append(view(re.ColumnID), task)
			touch(re.ColumnID)
		} else {
			src[idx] = task
		}
	}

	for _, id := range touched {
		sorted := ordering.Sorted(lists[id])
		r.overlay[id] = sorted
		r.notify(Update{ColumnID: id, Tasks: clone(sorted), Optimistic: true})
	}
	r.log.WithField("columns", touched).Debug("optimistic overlay applied")
	return touched
}

// Rollback discards the overlay of each column and restores its last
// authoritative list.
func (r *Reconciler) Rollback(columnIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for _, id := range columnIDs {
		if _, ok := r.overlay[id]; !ok {
			continue
		}
		delete(r.overlay, id)
		r.log.WithField("column_id", id).Info("optimistic overlay rolled back")
		r.notify(Update{ColumnID: id, Tasks: clone(r.authoritative[id])})
	}
}

// Snapshot returns a deep copy of the current mapping with overlays applied.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Columns: append([]board.Column(nil), r.columns...),
		Tasks:   make(map[string][]board.Task, len(r.authoritative)+len(r.overlay)),
	}
	for id := range r.authoritative {
		snap.Tasks[id] = clone(r.view(id))
	}
	for id := range r.overlay {
		snap.Tasks[id] = clone(r.view(id))
	}
	return snap
}

// ColumnTasks returns a copy of the visible tasks of one column.
func (r *Reconciler) ColumnTasks(columnID string) []board.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return clone(r.view(columnID))
}

// HasColumn reports whether columnID is a known column of the board.
func (r *Reconciler) HasColumn(columnID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.known == nil {
		_, ok := r.authoritative[columnID]
		return ok
	}
	return r.known[columnID]
}

// Synced reports whether the column set is known and every column has received
// at least one feed delivery.
func (r *Reconciler) Synced() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.known == nil {
		return false
	}
	for id := range r.known {
		if _, ok := r.authoritative[id]; !ok {
			return false
		}
	}
	return true
}

// Task finds a visible task by id.
func (r *Reconciler) Task(taskID string) (board.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	col, idx := r.locate(taskID, nil)
	if col == "" {
		return board.Task{}, false
	}
	return r.view(col)[idx], true
}

// Listen registers a listener for propagated updates.
func (r *Reconciler) Listen() *Listener {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := &Listener{r: r, updates: make(chan Update, listenerBuffer)}
	if r.closed {
		close(l.updates)
		return l
	}
	r.listeners[l] = struct{}{}
	return l
}

// Close stops pending timers and closes every listener.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
	for l := range r.listeners {
		close(l.updates)
		delete(r.listeners, l)
	}
}

// view returns the overlay of a column if one is pending, else its last
// authoritative list. Callers hold mu.
func (r *Reconciler) view(columnID string) []board.Task {
	if l, ok := r.overlay[columnID]; ok {
		return l
	}
	return r.authoritative[columnID]
}

// locate finds the column and index of taskID, looking in scratch lists first.
func (r *Reconciler) locate(taskID string, scratch map[string][]board.Task) (string, int) {
	for id, l := range scratch {
		if i := ordering.IndexOf(l, taskID); i >= 0 {
			return id, i
		}
	}
	for _, m := range []map[string][]board.Task{r.overlay, r.authoritative} {
		for id := range m {
			if _, shadowed := scratch[id]; shadowed {
				continue
			}
			if i := ordering.IndexOf(r.view(id), taskID); i >= 0 {
				return id, i
			}
		}
	}
	return "", -1
}

// notify hands u to every listener without blocking. Callers hold mu.
func (r *Reconciler) notify(u Update) {
	for l := range r.listeners {
		select {
		case l.updates <- u:
		default:
			r.log.WithField("column_id", u.ColumnID).Warn("listener is not keeping up, update dropped")
		}
	}
}

// Listener receives updates propagated by a Reconciler.
type Listener struct {
	r       *Reconciler
	updates chan Update
	once    sync.Once
}

// Updates returns the update channel. It is closed by Close or when the
// reconciler closes. A listener that falls behind misses updates and should
// re-read Snapshot.
func (l *Listener) Updates() <-chan Update {
	return l.updates
}

// Close unregisters the listener. Safe to call multiple times.
func (l *Listener) Close() {
	l.once.Do(func() {
		l.r.mu.Lock()
		defer l.r.mu.Unlock()
		if _, ok := l.r.listeners[l]; ok {
			delete(l.r.listeners, l)
			close(l.updates)
		}
	})
}

// Visible drops soft-deleted tasks and sorts the rest by order, keeping input
// order among ties.
func Visible(tasks []board.Task) []board.Task {
	out := make([]board.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.Deleted {
			out = append(out, t)
		}
	}
	return ordering.Sorted(out)
}

// TasksEqual compares two task lists element-wise on the fields that affect
// rendering: id, title, description, priority, assignee, column and order.
func TasksEqual(a, b []board.Task) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.ID != y.ID || x.Title != y.Title || x.Description != y.Description ||
			x.Priority != y.Priority || x.Assignee != y.Assignee ||
			x.ColumnID != y.ColumnID || x.Order != y.Order {
			return false
		}
	}
	return true
}

func columnsEqual(a, b []board.Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Title != b[i].Title || a[i].Order != b[i].Order {
			return false
		}
	}
	return true
}

func clone(tasks []board.Task) []board.Task {
	if tasks == nil {
		return nil
	}
	return append([]board.Task(nil), tasks...)
}
