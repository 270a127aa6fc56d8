package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while applying events.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Seq is the logical seq of the affected event, 0 if none was assigned.
	Seq int64

	// Kind is the kind of the affected event, if any.
	Kind string

	// Err is the underlying cause.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvalidEvent indicates a submission without an event.
	ErrCodeInvalidEvent RuntimeErrorCode = "INVALID_EVENT"

	// ErrCodePersistFailed indicates the event could not be appended to the log.
	ErrCodePersistFailed RuntimeErrorCode = "PERSIST_FAILED"

	// ErrCodeSnapshotFailed indicates a snapshot could not be written.
	ErrCodeSnapshotFailed RuntimeErrorCode = "SNAPSHOT_FAILED"

	// ErrCodeRecoveryFailed indicates the index could not be rebuilt from the log.
	ErrCodeRecoveryFailed RuntimeErrorCode = "RECOVERY_FAILED"

	// ErrCodeStoreRequired indicates an operation that needs a store on a
	// memory-only engine.
	ErrCodeStoreRequired RuntimeErrorCode = "STORE_REQUIRED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Seq != 0 {
		msg = fmt.Sprintf("%s (seq=%d, kind=%s)", msg, e.Seq, e.Kind)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is a RuntimeError with the given code.
// Uses errors.As to handle wrapped errors.
func IsCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

func newStoreRequiredError(op string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeStoreRequired,
		Message: op + " requires a store",
	}
}
