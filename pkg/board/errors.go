package board

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ValidationError reports a request that cannot be applied to the current board
// state, such as an out-of-range index or a drop target without a column.
// Callers abort the operation without issuing a write.
type ValidationError struct {
	Op     string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// NewValidationError builds a ValidationError for op.
func NewValidationError(op, format string, a ...any) *ValidationError {
	return &ValidationError{Op: op, Reason: fmt.Sprintf(format, a...)}
}

// PersistenceError reports a failed write to the store. The optimistic state the
// caller applied must not be assumed committed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a record that no longer exists, usually because it was
// deleted concurrently.
type NotFoundError struct {
	Kind string // "task", "column" or "board"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// Is lets errors.Is(err, redis.Nil) keep working for callers used to the raw
// go-redis sentinel.
func (e *NotFoundError) Is(target error) bool {
	return target == redis.Nil
}

// IsNotFound returns true if err is a NotFoundError or a Redis "key not found"
// error (redis.Nil).
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) || errors.Is(err, redis.Nil)
}

// IsValidation returns true if err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsPersistence returns true if err is a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
