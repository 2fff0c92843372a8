package lifecycle

import "github.com/pkg/errors"

// Sentinel errors for the lifecycle taxonomy. Callers match them with
// errors.Is; the HTTP layer maps them to status codes and machine codes.
var (
	// ErrValidation marks malformed or out-of-range input, recoverable by the
	// caller correcting the input.
	ErrValidation = errors.New("validation error")

	// ErrInvalidTransition marks a status precondition that was not met,
	// surfaced as a conflict and never retried automatically.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrPermissionDenied marks a role precondition failure.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrDuplicateOrigin marks an attempt to create a second pickup event for
	// the same origin request.
	ErrDuplicateOrigin = errors.New("duplicate origin")
)
