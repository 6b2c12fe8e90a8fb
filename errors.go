package levels

import (
	"errors"
	"fmt"

	"github.com/xraph/levels/account"
	"github.com/xraph/levels/accumulator"
	"github.com/xraph/levels/activity"
	"github.com/xraph/levels/curve"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrInvalidInput = errors.New("levels: invalid input")
	ErrInvalidKind  = accumulator.ErrInvalidKind

	// Account errors
	ErrAccountNotFound = account.ErrNotFound
	ErrInvalidCurve    = curve.ErrInvalidCurve

	// Activity errors
	ErrActivityNotFound = activity.ErrNotFound

	// Lifecycle errors
	ErrEngineStopped  = errors.New("levels: engine stopped")
	ErrAlreadyStarted = errors.New("levels: engine already started")

	// Flush errors
	ErrFlushFailed = errors.New("levels: flush failed")

	// Store errors
	ErrStoreNotReady   = errors.New("levels: store not ready")
	ErrStoreClosed     = errors.New("levels: store is closed")
	ErrMigrationFailed = errors.New("levels: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("levels: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "levels: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("levels: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e MultiError) Unwrap() []error { return e.Errors }

// ErrorOrNil returns e if it holds any errors, otherwise nil.
func (e MultiError) ErrorOrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrActivityNotFound)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrFlushFailed)
}
