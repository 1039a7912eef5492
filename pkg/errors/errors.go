package errors

import (
	"errors"
	"fmt"
)

var (
	// JWT
	ErrInvalidSigningMethod = fmt.Errorf("invalid token signing method")
	ErrInvalidToken         = fmt.Errorf("invalid token")
	ErrTokenExpired         = fmt.Errorf("token has expired")
	ErrInvalidAuthHeader    = fmt.Errorf("malformed authorization header")

	// Context
	ErrActorNotFoundInContext = fmt.Errorf("actor id not found in request context")
	ErrForbidden              = fmt.Errorf("actor is not allowed to perform this action")

	// Lookups
	ErrNotFound             = fmt.Errorf("record not found")
	ErrJobNotFound          = fmt.Errorf("job not found: %w", ErrNotFound)
	ErrTechnicianNotFound   = fmt.Errorf("technician not found: %w", ErrNotFound)
	ErrSalespersonNotFound  = fmt.Errorf("salesperson not found: %w", ErrNotFound)
	ErrCommissionNotFound   = fmt.Errorf("commission not found: %w", ErrNotFound)
	ErrLocationNotAvailable = fmt.Errorf("no location on file: %w", ErrNotFound)

	// State
	ErrInvalidTransition     = fmt.Errorf("invalid status transition")
	ErrConcurrentUpdate      = fmt.Errorf("record was modified concurrently")
	ErrTechnicianUnavailable = fmt.Errorf("technician is no longer available")
	ErrJobNotReservable      = fmt.Errorf("only pending jobs can be reserved")
	ErrJobAlreadyHeld        = fmt.Errorf("job is already held by another technician")

	// General
	ErrValidation = fmt.Errorf("validation failed")
	ErrBadRequest = fmt.Errorf("bad request")
)

// InvalidInputError is a ValidationFailure with a caller-facing message.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string { return e.Message }

func (e *InvalidInputError) Unwrap() error { return ErrValidation }

func NewInvalidInputError(format string, args ...interface{}) error {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError reports a transition whose source state is not an allowed predecessor.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move job from %q to %q", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

func NewInvalidTransitionError(from, to string) error {
	return &InvalidTransitionError{From: from, To: to}
}

// IsNotFound reports whether err belongs to the NotFound family.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
