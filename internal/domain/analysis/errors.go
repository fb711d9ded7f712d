package analysis

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds. Adapters wrap one of these with %w so callers can use errors.Is.
var (
	// ErrValidation: the request is rejected before any oracle call.
	ErrValidation = errors.New("invalid analysis request")
	// ErrOracleCapacity: the batch exceeds the oracle's processing budget.
	ErrOracleCapacity = errors.New("analysis input exceeds model capacity")
	// ErrOracleFormat: the oracle response does not match the expected schema.
	ErrOracleFormat = errors.New("analysis response does not match schema")
	// ErrOracleTransient: any other oracle failure (network, rate limit, ...).
	ErrOracleTransient = errors.New("analysis service unavailable")
	// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
	ErrQuotaExceeded = fmt.Errorf("%w: ai quota exceeded", ErrOracleTransient)
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Classify returns err unchanged when it already carries a known kind (or is a context
// error) and wraps it as ErrOracleTransient otherwise.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrOracleCapacity),
		errors.Is(err, ErrOracleFormat),
		errors.Is(err, ErrOracleTransient),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %v", ErrOracleTransient, err)
}

// Kind returns a short machine name for the error kind of err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrOracleCapacity):
		return "oracle_capacity"
	case errors.Is(err, ErrOracleFormat):
		return "oracle_format"
	case errors.Is(err, ErrQuotaExceeded):
		return "oracle_quota"
	case errors.Is(err, ErrOracleTransient):
		return "oracle_transient"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unknown"
	}
}

// UserMessage turns err into the text shown to the person who submitted the reports.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		var pe *PhaseError
		if errors.As(err, &pe) {
			return pe.Err.Error()
		}
		return err.Error()
	case errors.Is(err, ErrOracleCapacity):
		return "The reports are too large to analyze together. Remove some reports or use smaller exports and try again."
	case errors.Is(err, ErrOracleFormat):
		return "The analysis service returned an unreadable result. Try again, or simplify the input by analyzing fewer reports."
	case errors.Is(err, ErrQuotaExceeded):
		return "The analysis service quota is exhausted. Please try again later."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The analysis was cancelled."
	default:
		return "The analysis service is temporarily unavailable. Please try again later."
	}
}

// PhaseError records where in the pipeline a run failed.
type PhaseError struct {
	Phase   Phase
	Batch   int // 1-based, only for PhaseExecuting
	Batches int
	Err     error
}

func (e *PhaseError) Error() string {
	if e.Phase == PhaseExecuting {
		return fmt.Sprintf("batch %d of %d: %v", e.Batch, e.Batches, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// Where describes the failing phase, e.g. "batch 2 of 3" or "summarizing".
func (e *PhaseError) Where() string {
	if e.Phase == PhaseExecuting {
		return fmt.Sprintf("batch %d of %d", e.Batch, e.Batches)
	}
	return string(e.Phase)
}
