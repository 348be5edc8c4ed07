package domain

import (
	"errors"
	"fmt"
)

// MaxRetentionDays bounds the janitor retention window so a malformed value
// never reaches a raw query.
const MaxRetentionDays = 3650

var (
	// ErrJobNotFound is returned when a job id does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobTerminal is returned when an operation targets a job already in a
	// terminal status.
	ErrJobTerminal = errors.New("job is in a terminal status")

	// ErrNoTarget is returned when a job specifies neither recipients nor
	// broadcast.
	ErrNoTarget = errors.New("job must target recipients or set broadcast")

	// ErrAmbiguousTarget is returned when a job specifies both targeting modes.
	ErrAmbiguousTarget = errors.New("job cannot set both recipients and broadcast")
)

// RetentionError reports an out-of-range cleanup retention window.
type RetentionError struct {
	Days int
}

func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention days out of range: %d (must be between 1 and %d)", e.Days, MaxRetentionDays)
}

// ValidateRetention rejects retention windows the cleanup sweep must not act
// on. Invalid values are errors, never clamped.
func ValidateRetention(days int) error {
	if days < 1 || days > MaxRetentionDays {
		return &RetentionError{Days: days}
	}
	return nil
}

// ValidateTargeting enforces that exactly one targeting mode is populated.
func ValidateTargeting(recipients []string, broadcast bool) error {
	if broadcast && len(recipients) > 0 {
		return ErrAmbiguousTarget
	}
	if !broadcast && len(recipients) == 0 {
		return ErrNoTarget
	}
	return nil
}
