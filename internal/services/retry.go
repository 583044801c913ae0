package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nestsocial/nest/backend/internal/apperrors"
	log "github.com/sirupsen/logrus"
)

// RetryPolicy retries an operation a bounded number of times with exponential backoff.
// Errors the classifier rejects are returned immediately.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
}

// DefaultRetryPolicy retries once after a short pause.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 1, InitialInterval: 50 * time.Millisecond}
}

// Retryable decides whether an error is worth another attempt.
type Retryable func(error) bool

// conflictOnly is used for bare toggles: a lost CAS guarantees nothing was written,
// whereas a timed-out write may have landed and retrying it would flip it back.
func conflictOnly(err error) bool {
	return errors.Is(err, apperrors.ErrConflict)
}

// Do runs fn until it succeeds, the classifier rejects the error, retries run out or
// ctx ends.
func (p RetryPolicy) Do(ctx context.Context, op string, retryable Retryable, fn func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)

	err := backoff.RetryNotify(func() error {
		err := fn(ctx)
		if err == nil || retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy, func(err error, wait time.Duration) {
		log.WithFields(log.Fields{
			"op":   op,
			"wait": wait,
		}).WithError(err).Warn("Retrying operation")
	})
	return apperrors.FromContext(err)
}
