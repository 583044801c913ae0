package apperrors

import (
	"context"
	"errors"
	"net/http"
)

var (
	// ErrNotFound means the referenced post or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means an atomic update lost a race (version mismatch or duplicate key).
	ErrConflict = errors.New("conflict")
	// ErrUnavailable means a storage or identity collaborator failed or timed out.
	ErrUnavailable = errors.New("unavailable")
	// ErrInvariantViolation flags internal state that should never be observable.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrInvalid means the caller supplied a request the domain rejects.
	ErrInvalid = errors.New("invalid")
	// ErrForbidden means the caller may not act on the target.
	ErrForbidden = errors.New("forbidden")
)

// IsRetryable reports whether a single retry of the same operation may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrUnavailable)
}

// FromContext maps context expiry onto ErrUnavailable so timeouts surface as retryable.
func FromContext(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Join(ErrUnavailable, err)
	}
	return err
}

// HTTPStatus maps a domain error onto the status code handlers should answer with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
