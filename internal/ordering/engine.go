// Package ordering computes new order values for tasks when they are reordered
// inside a column, moved between columns or appended to a column.
//
// Every affecting move renumbers the whole sequence as index × Spacing. This
// costs one write per task in the column but guarantees no two tasks share an
// order value afterwards. Columns are human-curated lists, so the batches stay
// small.
package ordering

import (
	"sort"

	"github.com/dyluth/swimlane/pkg/board"
)

// Spacing is the gap between consecutive order values after a renumber.
const Spacing = 1000

// Move is the result of moving a task into another column: two independent
// reassignment batches, one per column.
type Move struct {
	Target []board.Reassignment // Renumbered target column, moved task included
	Source []board.Reassignment // Renumbered remainder of the source column
}

// Batch returns both halves of the move as one batch so they can be persisted
// atomically.
func (m *Move) Batch() []board.Reassignment {
	batch := make([]board.Reassignment, 0, len(m.Target)+len(m.Source))
	batch = append(batch, m.Target...)
	return append(batch, m.Source...)
}

// ReorderWithinColumn moves the task at from to position to and renumbers the
// whole column. It returns an empty reassignment when from == to and a
// *board.ValidationError when either index is out of range.
func ReorderWithinColumn(tasks []board.Task, from, to int) ([]board.Reassignment, error) {
	if from < 0 || from >= len(tasks) {
		return nil, board.NewValidationError("reorder", "from index %d out of range [0,%d)", from, len(tasks))
	}
	if to < 0 || to >= len(tasks) {
		return nil, board.NewValidationError("reorder", "to index %d out of range [0,%d)", to, len(tasks))
	}
	if from == to {
		return nil, nil
	}

	moved := tasks[from]
	rest := remove(tasks, from)
	return renumber(insert(rest, to, moved)), nil
}

// MoveAcrossColumns splices task into targetTasks at insertIndex and renumbers
// the target column; sourceTasks (which still contains task) is renumbered
// without it. insertIndex may equal len(targetTasks) to insert at the end.
//
// When the task was the last one in its column the Source batch is empty.
func MoveAcrossColumns(task board.Task, targetColumnID string, insertIndex int, targetTasks, sourceTasks []board.Task) (*Move, error) {
	if targetColumnID == "" {
		return nil, board.NewValidationError("move", "target column is required")
	}
	if targetColumnID == task.ColumnID {
		return nil, board.NewValidationError("move", "task %s already belongs to column %s", task.ID, targetColumnID)
	}

	target := removeByID(targetTasks, task.ID)
	if insertIndex < 0 || insertIndex > len(target) {
		return nil, board.NewValidationError("move", "insert index %d out of range [0,%d]", insertIndex, len(target))
	}

	moved := task
	moved.ColumnID = targetColumnID
	targetBatch := renumber(insert(target, insertIndex, moved))
	targetBatch[insertIndex].ColumnID = targetColumnID

	return &Move{
		Target: targetBatch,
		Source: renumber(removeByID(sourceTasks, task.ID)),
	}, nil
}

// AppendToColumnEnd places task after the currentTargetLength tasks of the
// target column without touching them.
func AppendToColumnEnd(task board.Task, targetColumnID string, currentTargetLength int) board.Reassignment {
	r := board.Reassignment{
		TaskID: task.ID,
		Order:  float64(currentTargetLength * Spacing),
	}
	if targetColumnID != task.ColumnID {
		r.ColumnID = targetColumnID
	}
	return r
}

// Apply returns a copy of tasks with batch applied: order and owning column are
// rewritten for every task the batch names. Entries for unknown tasks are
// ignored. Applying the same batch twice yields the same result.
func Apply(tasks []board.Task, batch []board.Reassignment) []board.Task {
	byID := make(map[string]board.Reassignment, len(batch))
	for _, r := range batch {
		byID[r.TaskID] = r
	}

	out := make([]board.Task, len(tasks))
	for i, t := range tasks {
		if r, ok := byID[t.ID]; ok {
			t.Order = r.Order
			if r.MovesColumn() {
				t.ColumnID = r.ColumnID
			}
		}
		out[i] = t
	}
	return out
}

// Sorted returns tasks sorted ascending by order. Tasks sharing an order keep
// their relative input position.
func Sorted(tasks []board.Task) []board.Task {
	out := append([]board.Task(nil), tasks...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// IndexOf returns the position of the task with id, or -1.
func IndexOf(tasks []board.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func renumber(tasks []board.Task) []board.Reassignment {
	batch := make([]board.Reassignment, len(tasks))
	for i, t := range tasks {
		batch[i] = board.Reassignment{TaskID: t.ID, Order: float64(i * Spacing)}
	}
	return batch
}

func remove(tasks []board.Task, i int) []board.Task {
	out := make([]board.Task, 0, len(tasks)-1)
	out = append(out, tasks[:i]...)
	return append(out, tasks[i+1:]...)
}

func removeByID(tasks []board.Task, id string) []board.Task {
	if i := IndexOf(tasks, id); i >= 0 {
		return remove(tasks, i)
	}
	return append([]board.Task(nil), tasks...)
}

func insert(tasks []board.Task, i int, t board.Task) []board.Task {
	out := make([]board.Task, 0, len(tasks)+1)
	out = append(out, tasks[:i]...)
	out = append(out, t)
	return append(out, tasks[i:]...)
}
