package attendance

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyClockedIn = errors.New("already clocked in")
	ErrNotClockedIn     = errors.New("not clocked in")
	ErrAlreadyOnBreak   = errors.New("already on break")
	ErrNotOnBreak       = errors.New("not on break")
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrNotScheduled     = errors.New("no scheduled shift for clock-in")
)

// ValidationError reports bad input. It matches ErrValidation and, when set, its cause.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func (e *ValidationError) Unwrap() error { return e.Err }

// OutOfRangeError is returned when a GPS-verified location rejects the supplied coordinates.
type OutOfRangeError struct {
	Location string
	Distance float64
	Radius   float64
	Missing  bool
}

func (e *OutOfRangeError) Error() string {
	if e.Missing {
		return fmt.Sprintf("location %q requires GPS coordinates", e.Location)
	}
	return fmt.Sprintf("outside %q geofence: %.0fm from centre, allowed %.0fm", e.Location, e.Distance, e.Radius)
}
