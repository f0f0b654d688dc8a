// Package drag interprets drag gestures over a board.
//
// A Controller is an explicit finite-state machine:
//
//	Idle ──pointer moved past activation distance / keyboard pick-up──▶ Dragging
//	Dragging ──drop──▶ Resolving ──▶ Idle
//	any state ──cancel──▶ Idle
//
// While dragging, pointer moves only update the hover target. On drop the hover
// target is translated into exactly one ordering call; the result is applied to
// the board state optimistically and persisted in the background.
package drag

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/dyluth/swimlane/internal/ordering"
	"github.com/dyluth/swimlane/internal/store"
	"github.com/dyluth/swimlane/pkg/board"
	"github.com/sirupsen/logrus"
)

// DefaultActivationDistance is how far the pointer must travel after
// PointerDown before a drag starts.
const DefaultActivationDistance = 8

// State of a Controller.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateResolving
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	case StateResolving:
		return "resolving"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// BoardState is the reconciled board the controller reads and overlays.
// *reconcile.Reconciler satisfies it.
type BoardState interface {
	Task(taskID string) (board.Task, bool)
	ColumnTasks(columnID string) []board.Task
	HasColumn(columnID string) bool
	ApplyOptimistic(batch []board.Reassignment) []string
	Rollback(columnIDs ...string)
}

// Persister writes reassignment batches. *store.Adapter satisfies it.
type Persister interface {
	PersistReassignment(ctx context.Context, batch []board.Reassignment) (*store.Result, error)
}

// OutcomeKind says what a drop did.
type OutcomeKind int

const (
	// OutcomeMoved means a batch was applied locally and handed to persistence.
	OutcomeMoved OutcomeKind = iota
	// OutcomeNoOp means the drop left the task where it was.
	OutcomeNoOp
	// OutcomeCancelled means the gesture ended without a valid target.
	OutcomeCancelled
	// OutcomeAborted means the target no longer matched the board state.
	OutcomeAborted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeMoved:
		return "moved"
	case OutcomeNoOp:
		return "no-op"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeAborted:
		return "aborted"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome describes a completed drop.
type Outcome struct {
	Kind    OutcomeKind
	TaskID  string
	Target  Target
	Batch   []board.Reassignment
	Columns []string // Columns overlaid optimistically
	Reason  string   // Why the drop was aborted
}

// Options configures a Controller.
type Options struct {
	ActivationDistance float64
	FallbackRadius     float64
	Logger             logrus.FieldLogger
}

// Controller runs the drag state machine for one board. Methods are safe for
// concurrent use; gestures are serialised.
type Controller struct {
	state     BoardState
	persister Persister
	activate  float64
	radius    float64
	log       logrus.FieldLogger

	mu      sync.Mutex
	current State
	taskID  string
	origin  Point
	pressed bool
	hover   *Target

	errs     chan error
	inflight sync.WaitGroup
}

// NewController creates an idle controller.
func NewController(state BoardState, persister Persister, opts Options) *Controller {
	if opts.ActivationDistance <= 0 {
		opts.ActivationDistance = DefaultActivationDistance
	}
	if opts.FallbackRadius <= 0 {
		opts.FallbackRadius = DefaultFallbackRadius
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Controller{
		state:     state,
		persister: persister,
		activate:  opts.ActivationDistance,
		radius:    opts.FallbackRadius,
		log:       opts.Logger.WithField("component", "drag"),
		errs:      make(chan error, 16),
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Hover returns the current hover target, if any.
func (c *Controller) Hover() (Target, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hover == nil {
		return Target{}, false
	}
	return *c.hover, true
}

// Errors reports persistence failures of earlier drops. The optimistic overlay
// has already been rolled back when an error is delivered.
func (c *Controller) Errors() <-chan error {
	return c.errs
}

// Wait blocks until every persistence write issued so far has completed.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// PointerDown arms a drag of taskID at p. The drag starts once the pointer
// travels the activation distance.
func (c *Controller) PointerDown(taskID string, p Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != StateIdle {
		return fmt.Errorf("cannot start a gesture while %s", c.current)
	}
	c.taskID, c.origin, c.pressed = taskID, p, true
	return nil
}

// PointerMove activates an armed drag or updates the hover target of a running
// one.
func (c *Controller) PointerMove(p Point, regions []Region) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.current {
	case StateIdle:
		if !c.pressed || math.Hypot(p.X-c.origin.X, p.Y-c.origin.Y) < c.activate {
			return
		}
		c.current = StateDragging
		c.log.WithField("task_id", c.taskID).Debug("drag started")
	case StateDragging:
	default:
		return
	}

	if t, ok := Resolve(p, regions, c.radius); ok {
		c.hover = &t
	} else {
		c.hover = nil
	}
}

// PickUp starts a keyboard drag of taskID immediately.
func (c *Controller) PickUp(taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != StateIdle {
		return fmt.Errorf("cannot start a gesture while %s", c.current)
	}
	c.taskID, c.pressed = taskID, false
	c.current = StateDragging
	c.hover = nil
	return nil
}

// HoverTarget sets the hover target directly, as keyboard navigation does.
func (c *Controller) HoverTarget(t Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == StateDragging {
		c.hover = &t
	}
}

// Cancel aborts the gesture and returns to Idle without touching the board.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == StateDragging {
		c.log.WithField("task_id", c.taskID).Debug("drag cancelled")
	}
	c.reset()
}

// Drop ends the gesture. A drop without a hover target, or before the drag
// activated, is a cancellation. A target that no longer matches the board
// (task or column deleted concurrently, stale index) aborts silently with no
// write. Otherwise the move is applied locally and persisted in the background
// with a context detached from ctx's cancellation: once issued, a write runs to
// completion.
func (c *Controller) Drop(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != StateDragging {
		wasPressed := c.pressed
		c.reset()
		if wasPressed {
			return Outcome{Kind: OutcomeCancelled}, nil
		}
		return Outcome{Kind: OutcomeCancelled}, fmt.Errorf("no drag in progress")
	}
	if c.hover == nil {
		out := Outcome{Kind: OutcomeCancelled, TaskID: c.taskID}
		c.reset()
		return out, nil
	}

	c.current = StateResolving
	taskID, target := c.taskID, *c.hover
	defer c.reset()

	log := c.log.WithFields(logrus.Fields{"task_id": taskID, "target": target.String()})
	batch, err := c.plan(taskID, target)
	if err != nil {
		if board.IsValidation(err) {
			log.WithError(err).Info("drop aborted")
			return Outcome{Kind: OutcomeAborted, TaskID: taskID, Target: target, Reason: err.Error()}, nil
		}
		return Outcome{Kind: OutcomeAborted, TaskID: taskID, Target: target}, err
	}
	if len(batch) == 0 {
		return Outcome{Kind: OutcomeNoOp, TaskID: taskID, Target: target}, nil
	}

	columns := c.state.ApplyOptimistic(batch)
	c.inflight.Add(1)
	go c.persist(context.WithoutCancel(ctx), batch, columns, log)

	log.WithField("entries", len(batch)).Debug("drop applied")
	return Outcome{Kind: OutcomeMoved, TaskID: taskID, Target: target, Batch: batch, Columns: columns}, nil
}

func (c *Controller) persist(ctx context.Context, batch []board.Reassignment, columns []string, log logrus.FieldLogger) {
	defer c.inflight.Done()

	res, err := c.persister.PersistReassignment(ctx, batch)
	if err != nil {
		c.state.Rollback(columns...)
		log.WithError(err).Error("drop not persisted, overlay rolled back")
		select {
		case c.errs <- err:
		default:
			log.Warn("error channel full, persistence failure dropped")
		}
		return
	}
	if len(res.Skipped) > 0 {
		log.WithField("skipped", res.Skipped).Warn("drop partially persisted")
	}
}

// plan translates a drop target into a reassignment batch. Callers hold mu.
func (c *Controller) plan(taskID string, target Target) ([]board.Reassignment, error) {
	task, ok := c.state.Task(taskID)
	if !ok {
		return nil, board.NewValidationError("drop", "dragged task %s no longer exists", taskID)
	}
	source := c.state.ColumnTasks(task.ColumnID)
	from := ordering.IndexOf(source, taskID)
	if from < 0 {
		return nil, board.NewValidationError("drop", "task %s is not in column %s", taskID, task.ColumnID)
	}

	columnID := target.ColumnID
	if target.Kind == TargetTask {
		if target.TaskID == taskID {
			return nil, nil
		}
		over, ok := c.state.Task(target.TaskID)
		if !ok {
			return nil, board.NewValidationError("drop", "target task %s no longer exists", target.TaskID)
		}
		columnID = over.ColumnID
	}
	if columnID == "" || !c.state.HasColumn(columnID) {
		return nil, board.NewValidationError("drop", "target resolves to no column")
	}

	if columnID == task.ColumnID {
		rest := append(append([]board.Task(nil), source[:from]...), source[from+1:]...)
		to, err := insertIndex(target, rest, from)
		if err != nil {
			return nil, err
		}
		return ordering.ReorderWithinColumn(source, from, to)
	}

	dest := c.state.ColumnTasks(columnID)
	if target.Kind == TargetColumn {
		return []board.Reassignment{ordering.AppendToColumnEnd(task, columnID, len(dest))}, nil
	}
	idx, err := insertIndex(target, dest, -1)
	if err != nil {
		return nil, err
	}
	move, err := ordering.MoveAcrossColumns(task, columnID, idx, dest, source)
	if err != nil {
		return nil, err
	}
	return move.Batch(), nil
}

// insertIndex returns where the dragged task lands in list, which does not
// contain it. from is the dragged task's index in its original same-column
// list, or -1 when it comes from another column; slot indices are expressed in
// that original list.
func insertIndex(target Target, list []board.Task, from int) (int, error) {
	switch target.Kind {
	case TargetTask:
		i := ordering.IndexOf(list, target.TaskID)
		if i < 0 {
			return 0, board.NewValidationError("drop", "target task %s is not in column %s", target.TaskID, target.ColumnID)
		}
		return i, nil
	case TargetColumn:
		return len(list), nil
	}

	var pos int
	switch target.Slot {
	case SlotTop:
		pos = 0
	case SlotBottom:
		pos = len(list)
	default:
		pos = target.Index + 1
		if from >= 0 && from < pos {
			pos--
		}
	}
	if pos < 0 || pos > len(list) {
		return 0, board.NewValidationError("drop", "slot index %d out of range", target.Index)
	}
	return pos, nil
}

func (c *Controller) reset() {
	c.current = StateIdle
	c.taskID = ""
	c.pressed = false
	c.hover = nil
}
