package location

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrLocationUnavailable matches every failure to produce a location.
	// Use errors.As with *UnavailableError to get the Reason.
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrLocationPending means a location is still being resolved. Callers
	// should retry shortly instead of treating it as terminal.
	ErrLocationPending = errors.New("location pending")
)

// Reason says why the platform could not produce a location.
type Reason int

const (
	Transient Reason = iota
	PermissionDenied
	ServicesDisabled
	Timeout
)

func (r Reason) String() string {
	switch r {
	case PermissionDenied:
		return "permission denied"
	case ServicesDisabled:
		return "location services disabled"
	case Timeout:
		return "timeout"
	default:
		return "transient failure"
	}
}

// UnavailableError is returned by the coordinator for every failed fetch.
type UnavailableError struct {
	Reason Reason
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("location unavailable: %s", e.Reason)
	}
	return fmt.Sprintf("location unavailable: %s: %v", e.Reason, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrLocationUnavailable }

// Unavailable builds an *UnavailableError. Platform implementations use it to
// report permission and service problems precisely.
func Unavailable(reason Reason, err error) error {
	return &UnavailableError{Reason: reason, Err: err}
}

// ReasonOf extracts the Reason from err. ok is false when err is not a
// location failure.
func ReasonOf(err error) (Reason, bool) {
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return ue.Reason, true
	}
	return 0, false
}

// classify turns any platform error into an *UnavailableError.
func classify(err error) error {
	var ue *UnavailableError
	switch {
	case errors.As(err, &ue):
		return ue
	case errors.Is(err, context.DeadlineExceeded):
		return &UnavailableError{Reason: Timeout, Err: err}
	default:
		return &UnavailableError{Reason: Transient, Err: err}
	}
}
