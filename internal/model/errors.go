package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found, or when it exists but
	// does not match the precondition of a conditional update.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrArgument is returned when client supplied data is not valid.
	ErrArgument = errors.New("argument not valid")
	// ErrArgumentNull is returned when required client supplied data is missing.
	ErrArgumentNull = errors.New("argument required")
	// ErrAlreadyInUse is returned on unique constraint conflicts and provider double bookings.
	ErrAlreadyInUse = errors.New("already in use")
	// ErrRateLimitExceeded is returned when a provider rejects a call due to rate limits.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrServiceUnavailable is returned when a provider failed with an indeterminate cause.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrProvider is returned for provider reported failures that are not classified.
	ErrProvider = errors.New("provider error")
)

// Error names, these are the names persisted on actions and task execution results.
const (
	ErrorNameNotFound           = "NotFound"
	ErrorNameForbidden          = "Forbidden"
	ErrorNameArgument           = "Argument"
	ErrorNameArgumentNull       = "ArgumentNull"
	ErrorNameAlreadyInUse       = "AlreadyInUse"
	ErrorNameRateLimitExceeded  = "RateLimitExceeded"
	ErrorNameServiceUnavailable = "ServiceUnavailable"
	ErrorNameProvider           = "Provider"
	ErrorNameUnknown            = "Unknown"
)

var errorNames = []struct {
	err  error
	name string
}{
	{ErrNotFound, ErrorNameNotFound},
	{ErrForbidden, ErrorNameForbidden},
	{ErrArgumentNull, ErrorNameArgumentNull},
	{ErrArgument, ErrorNameArgument},
	{ErrAlreadyInUse, ErrorNameAlreadyInUse},
	{ErrRateLimitExceeded, ErrorNameRateLimitExceeded},
	{ErrServiceUnavailable, ErrorNameServiceUnavailable},
	{ErrProvider, ErrorNameProvider},
}

// ErrorName returns the taxonomy name of an error.
func ErrorName(err error) string {
	for _, e := range errorNames {
		if errors.Is(err, e.err) {
			return e.name
		}
	}
	return ErrorNameUnknown
}
