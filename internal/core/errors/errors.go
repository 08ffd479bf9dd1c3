// Package errors provides centralized error definitions for the application.
// Errors are organized by domain to avoid duplication and provide consistent naming.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Metric computation errors.
var (
	// ErrUndefinedMetric indicates a metric denominator is zero (ideal DCG of
	// zero, or zero expected disagreement). Callers must exclude the affected
	// query or dataset rather than substitute a default score.
	ErrUndefinedMetric = errors.New("metric is undefined for this input")

	// ErrInsufficientData indicates too few ratings or units to compute a
	// metric (fewer than two raters on a unit, fewer than two comparable units).
	ErrInsufficientData = errors.New("insufficient data")

	// ErrMisalignedInput indicates paired score vectors of different lengths.
	ErrMisalignedInput = errors.New("paired inputs are misaligned")
)

// Storage lookup errors.
var (
	// ErrNoSuchJob indicates the referenced crowdsourcing job is not in the DB.
	ErrNoSuchJob = errors.New("no such job")

	// ErrNoSuchGroup indicates the referenced group is not in the DB.
	ErrNoSuchGroup = errors.New("no such group")
)

// Crowdsourcing platform errors.
var (
	// ErrJobNotCompleted indicates results were requested before the platform
	// finished the job.
	ErrJobNotCompleted = errors.New("job not completed")

	// ErrUnexpectedStatus indicates an unexpected HTTP status from an
	// external API.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
