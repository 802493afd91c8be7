package core

import (
	"errors"
	"fmt"
)

// Failure classes of a validation run. They are recorded in the run report
// and never escape an operation as errors.
var (
	ErrCompileFailure       = errors.New("compile failure")
	ErrExecuteFailure       = errors.New("execute failure")
	ErrRemediationExhausted = errors.New("remediation exhausted")
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")
)

// ErrDocumentIO marks a failure to read or rewrite the test document during
// remediation. Unlike the failure classes it is an operation-level error.
var ErrDocumentIO = errors.New("test document i/o")

// PhaseError describes why a phase of the validation loop stopped.
type PhaseError struct {
	Phase   string
	Attempt int
	Cause   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("phase %s failed (attempt %d): %v", e.Phase, e.Attempt, e.Cause)
}

func (e *PhaseError) Unwrap() error {
	return e.Cause
}

// NewPhaseError wraps the failure class and the reason it became terminal.
func NewPhaseError(phase string, attempt int, class, reason error) *PhaseError {
	return &PhaseError{
		Phase:   phase,
		Attempt: attempt,
		Cause:   fmt.Errorf("%w: %w", reason, class),
	}
}

// IsRetryBudgetExhausted reports whether err stopped because attempts ran out.
func IsRetryBudgetExhausted(err error) bool {
	return errors.Is(err, ErrRetryBudgetExhausted)
}

// IsDocumentIO reports whether err came from the storage holding the test
// document rather than from the toolchain.
func IsDocumentIO(err error) bool {
	return errors.Is(err, ErrDocumentIO)
}

// IsRemediationExhausted reports whether err stopped because no fix applied.
func IsRemediationExhausted(err error) bool {
	return errors.Is(err, ErrRemediationExhausted)
}
