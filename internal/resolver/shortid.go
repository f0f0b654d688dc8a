package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/swimlane/pkg/board"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
// Set to 6 characters to balance usability with collision avoidance.
const MinShortIDLength = 6

// Store is the subset of the board client used to resolve IDs.
// *board.Client satisfies it.
type Store interface {
	GetTask(ctx context.Context, taskID string) (*board.Task, error)
	GetColumn(ctx context.Context, columnID string) (*board.Column, error)
	GetBoard(ctx context.Context, boardID string) (*board.Board, error)
	ScanTasks(ctx context.Context, prefix string) ([]string, error)
	ScanColumns(ctx context.Context, prefix string) ([]string, error)
	ScanBoards(ctx context.Context, prefix string) ([]string, error)
}

// ResolveTaskID resolves a short task ID prefix to a full UUID.
func ResolveTaskID(ctx context.Context, store Store, shortID string) (string, error) {
	return resolve(ctx, "task", shortID,
		func(id string) error { _, err := store.GetTask(ctx, id); return err },
		store.ScanTasks)
}

// ResolveColumnID resolves a short column ID prefix to a full UUID.
func ResolveColumnID(ctx context.Context, store Store, shortID string) (string, error) {
	return resolve(ctx, "column", shortID,
		func(id string) error { _, err := store.GetColumn(ctx, id); return err },
		store.ScanColumns)
}

// ResolveBoardID resolves a short board ID prefix to a full UUID.
func ResolveBoardID(ctx context.Context, store Store, shortID string) (string, error) {
	return resolve(ctx, "board", shortID,
		func(id string) error { _, err := store.GetBoard(ctx, id); return err },
		store.ScanBoards)
}

// resolve handles three cases:
//  1. Input is already a full UUID (36 chars, 4 hyphens) - validates existence
//  2. Input is too short (< 6 chars) - returns validation error
//  3. Input is a short prefix - scans for matches and returns unique result
func resolve(ctx context.Context, kind, shortID string, exists func(string) error, scan func(context.Context, string) ([]string, error)) (string, error) {
	if len(shortID) == 36 && strings.Count(shortID, "-") == 4 {
		if err := exists(shortID); err != nil {
			if board.IsNotFound(err) {
				return "", &NotFoundError{Kind: kind, ShortID: shortID}
			}
			return "", fmt.Errorf("failed to verify %s existence: %w", kind, err)
		}
		return shortID, nil
	}

	if len(shortID) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}

	matches, err := scan(ctx, shortID)
	if err != nil {
		return "", fmt.Errorf("failed to search for %s: %w", kind, err)
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{Kind: kind, ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{Kind: kind, ShortID: shortID, Matches: matches}
	}
}

// NotFoundError indicates no records matched the short ID.
type NotFoundError struct {
	Kind    string
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no %ss found matching '%s'", e.Kind, e.ShortID)
}

// AmbiguousError indicates multiple records matched the short ID.
type AmbiguousError struct {
	Kind    string
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d %ss", e.ShortID, len(e.Matches), e.Kind)
}

// FormatAmbiguousError creates a user-friendly error message for ambiguous short IDs.
// Lists all matching UUIDs (up to 10, then "...and N more").
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: ambiguous short ID '%s' matches %d %ss:\n", err.ShortID, len(err.Matches), err.Kind)

	displayCount := min(len(err.Matches), 10)
	for _, id := range err.Matches[:displayCount] {
		fmt.Fprintf(&b, "  %s\n", id)
	}
	if len(err.Matches) > 10 {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-10)
	}

	fmt.Fprintf(&b, "\nUse a longer prefix to uniquely identify the %s.", err.Kind)
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	_, ok := err.(*AmbiguousError)
	return ok
}
