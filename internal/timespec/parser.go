package timespec

import (
	"fmt"
	"strings"
	"time"
)

// now is replaced in tests.
var now = time.Now

// UpdateWindow bounds the last update time of the tasks a listing shows.
// A zero bound is open.
type UpdateWindow struct {
	SinceMs int64
	UntilMs int64
}

// ParseUpdatedAt parses a point in a task's update history into Unix
// milliseconds. It accepts an RFC3339 timestamp ("2025-10-29T13:00:00Z") or a
// duration meaning that long ago ("90m", "2h"). Durations must be positive:
// tasks cannot have been updated in the future.
func ParseUpdatedAt(spec string) (int64, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty update time")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}

	if d, err := time.ParseDuration(spec); err == nil {
		if d <= 0 {
			return 0, fmt.Errorf("update time %q is not in the past", spec)
		}
		return now().Add(-d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid update time: %s (use a duration ago like '2h' or RFC3339 like '2025-10-29T13:00:00Z')", spec)
}

// ParseUpdateWindow parses the --since and --until flags of a task listing.
// Either may be empty. When both are set since must come first.
func ParseUpdateWindow(since, until string) (UpdateWindow, error) {
	var w UpdateWindow
	var err error

	if since != "" {
		if w.SinceMs, err = ParseUpdatedAt(since); err != nil {
			return UpdateWindow{}, fmt.Errorf("invalid --since: %w", err)
		}
	}
	if until != "" {
		if w.UntilMs, err = ParseUpdatedAt(until); err != nil {
			return UpdateWindow{}, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if w.SinceMs > 0 && w.UntilMs > 0 && w.SinceMs >= w.UntilMs {
		return UpdateWindow{}, fmt.Errorf("empty update window: --since must be before --until")
	}
	return w, nil
}

// ParseDeadline parses a task deadline into a Unix timestamp (milliseconds).
// Supports:
//   - calendar dates: "2025-11-30" (end of that day, UTC)
//   - RFC3339 timestamps: "2025-11-30T17:00:00Z"
//   - durations from now, with an optional "+": "48h", "+72h"
//
// "none" clears a deadline and yields 0.
func ParseDeadline(spec string) (int64, error) {
	switch spec {
	case "":
		return 0, fmt.Errorf("empty deadline")
	case "none":
		return 0, nil
	}

	if t, err := time.Parse(time.DateOnly, spec); err == nil {
		return t.Add(24*time.Hour - time.Millisecond).UnixMilli(), nil
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}

	if d, err := time.ParseDuration(strings.TrimPrefix(spec, "+")); err == nil && d > 0 {
		return now().Add(d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid deadline: %s (use a date like '2025-11-30', RFC3339, or a duration like '+48h')", spec)
}
