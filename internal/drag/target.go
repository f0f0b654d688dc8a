package drag

import (
	"fmt"
	"math"
)

// Point is a pointer position in surface coordinates.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle with its origin at the top-left corner.
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Distance returns how far p is from the nearest edge of r; 0 when inside.
func (r Rect) Distance(p Point) float64 {
	dx := math.Max(math.Max(r.X-p.X, 0), p.X-(r.X+r.W))
	dy := math.Max(math.Max(r.Y-p.Y, 0), p.Y-(r.Y+r.H))
	return math.Hypot(dx, dy)
}

// TargetKind identifies what a drop target refers to.
type TargetKind int

const (
	// TargetColumn is the bare column: the task is appended to its end.
	TargetColumn TargetKind = iota
	// TargetTask is a task card: the dragged task is inserted before it.
	TargetTask
	// TargetSlot is a thin positional strip inside a column.
	TargetSlot
)

func (k TargetKind) String() string {
	switch k {
	case TargetColumn:
		return "column"
	case TargetTask:
		return "task"
	case TargetSlot:
		return "slot"
	default:
		return fmt.Sprintf("TargetKind(%d)", int(k))
	}
}

// SlotPosition is where a slot sits within its column.
type SlotPosition int

const (
	SlotTop    SlotPosition = iota // before the first task
	SlotBottom                     // after the last task
	SlotAfter                      // between task Index and Index+1
)

// Target is a logical insertion point.
type Target struct {
	Kind     TargetKind
	ColumnID string       // Column for slot and column targets
	TaskID   string       // Task for task targets
	Slot     SlotPosition // Slot targets only
	Index    int          // SlotAfter only
}

func (t Target) String() string {
	switch t.Kind {
	case TargetTask:
		return "task:" + t.TaskID
	case TargetSlot:
		switch t.Slot {
		case SlotTop:
			return "slot:" + t.ColumnID + ":top"
		case SlotBottom:
			return "slot:" + t.ColumnID + ":bottom"
		default:
			return fmt.Sprintf("slot:%s:after:%d", t.ColumnID, t.Index)
		}
	default:
		return "column:" + t.ColumnID
	}
}

// Region is a drop target laid out on the surface.
type Region struct {
	Target Target
	Rect   Rect
}

// DefaultFallbackRadius bounds the nearest-rectangle fallback. A pointer
// further than this from every region resolves to no target.
const DefaultFallbackRadius = 48

// Resolve picks the drop target under p. Among regions containing p a slot
// wins over a task, and a task wins over a column; slots are drawn as thin
// strips above task cards so that precise insertion stays reachable. When no
// region contains p, the region nearest to p within fallbackRadius is used.
// The first region listed wins ties.
func Resolve(p Point, regions []Region, fallbackRadius float64) (Target, bool) {
	best, bestRank := -1, -1
	for i, r := range regions {
		if !r.Rect.Contains(p) {
			continue
		}
		if rank := int(r.Target.Kind); rank > bestRank {
			best, bestRank = i, rank
		}
	}
	if best >= 0 {
		return regions[best].Target, true
	}

	bestDist := math.Inf(1)
	for i, r := range regions {
		if d := r.Rect.Distance(p); d <= fallbackRadius && d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return Target{}, false
	}
	return regions[best].Target, true
}
