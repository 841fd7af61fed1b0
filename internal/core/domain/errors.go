package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable indicates a collaborator (store or service) is
	// down. Callers fail fast, no retry.
	ErrUnavailable = errors.New("collaborator unavailable")

	// ErrTransient indicates a timeout or transient collaborator
	// failure. Callers may retry with bounded backoff.
	ErrTransient = errors.New("transient failure")

	// ErrDimensionMismatch indicates an embedding did not match the
	// dimension configured for the chunk store.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrGenerationFailed indicates the generator exhausted its retry
	// and no fallback path exists.
	ErrGenerationFailed = errors.New("generation failed")
)

// PipelineError is a hard pipeline failure carrying the stage it
// occurred in. It distinguishes "pipeline error" from the valid
// zero-evidence outcome, which is not an error at all.
type PipelineError struct {
	// Stage is where the pipeline failed.
	Stage Stage

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline failed at %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError wraps err with the failing stage.
func NewPipelineError(stage Stage, err error) *PipelineError {
	return &PipelineError{Stage: stage, Err: err}
}

// IsUnavailable reports whether err is (or wraps) a fail-fast
// collaborator outage.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
