package provider

import (
	"errors"
	"fmt"

	"github.com/slok/ordersaga/internal/model"
)

// ErrorKind is the classification of a provider failure.
type ErrorKind string

const (
	// KindConflict is a double booking or an already used resource.
	KindConflict ErrorKind = "Conflict"
	// KindRateLimited is a rejection due to rate limits.
	KindRateLimited ErrorKind = "RateLimited"
	// KindValidation is a client side validation error echoed back by the provider.
	KindValidation ErrorKind = "Validation"
	// KindUnavailable is a failure with an indeterminate cause (5xx, open breaker).
	KindUnavailable ErrorKind = "Unavailable"
)

// Error is an error reported by a provider. Code is the provider specific code,
// unknown kinds are reported as generic provider errors.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider %s error (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("provider %s error: %s", e.Kind, e.Message)
}

// Classify normalizes any provider call error into the model error taxonomy.
// Errors the provider did not report (timeouts, network, open breaker) are
// considered unavailability.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var perr *Error
	if errors.As(err, &perr) {
		switch perr.Kind {
		case KindConflict:
			return fmt.Errorf("%w: %w", model.ErrAlreadyInUse, err)
		case KindRateLimited:
			return fmt.Errorf("%w: %w", model.ErrRateLimitExceeded, err)
		case KindValidation:
			return fmt.Errorf("%w: %w", model.ErrArgument, err)
		case KindUnavailable:
			return fmt.Errorf("%w: %w", model.ErrServiceUnavailable, err)
		default:
			return fmt.Errorf("%w: %w", model.ErrProvider, err)
		}
	}

	// Already classified.
	if model.ErrorName(err) != model.ErrorNameUnknown {
		return err
	}

	return fmt.Errorf("%w: %w", model.ErrServiceUnavailable, err)
}
