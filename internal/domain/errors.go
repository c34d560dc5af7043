package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Taxonomy roots. Match with errors.Is.
	ErrValidation  = errors.New("validation failed")
	ErrPersistence = errors.New("persistence failure")
	ErrNotFound    = errors.New("not found")

	// Completion errors
	ErrBackdatedCompletion = fmt.Errorf("%w: completion date precedes the last recorded completion", ErrValidation)
	ErrFutureCompletion    = fmt.Errorf("%w: completion date is in the future", ErrValidation)
	ErrCompletionTimeDay   = fmt.Errorf("%w: completion time falls on a different day than the completion date", ErrValidation)

	// Penalty errors
	ErrMissingTaskID = fmt.Errorf("%w: overdue task has no id", ErrValidation)

	// Goal errors
	ErrInvalidGoal       = fmt.Errorf("%w: goal values must be at least 1", ErrValidation)
	ErrInvalidGoalPeriod = fmt.Errorf("%w: goal period must be weekly or monthly", ErrValidation)
	ErrInvalidGoalMetric = fmt.Errorf("%w: unknown goal metric", ErrValidation)
	ErrGoalNotFound      = fmt.Errorf("tracked goal %w", ErrNotFound)

	// Reporting errors
	ErrInvalidDateRange = fmt.Errorf("%w: report range start is after its end", ErrValidation)
	ErrRangeTooLong     = fmt.Errorf("%w: report range is too long", ErrValidation)
)
