package notification

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy decides whether and how often a failed send is attempted again.
// Retrying can deliver the same email twice: the provider call is not idempotent.
type RetryPolicy interface {
	Do(ctx context.Context, op func(ctx context.Context) error) error
}

// NoRetry runs the operation once. It is the facade's default.
type NoRetry struct{}

func (NoRetry) Do(ctx context.Context, op func(ctx context.Context) error) error {
	return op(ctx)
}

// BackoffRetry retries according to a caller-supplied backoff schedule.
// NewBackOff is called once per send so schedules are never shared.
type BackoffRetry struct {
	NewBackOff func() backoff.BackOff
	// Notify, when set, is called before each retry.
	Notify func(err error, attempt int)
}

func (p BackoffRetry) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if p.NewBackOff == nil {
		return op(ctx)
	}

	attempt := 0
	var lastErr error
	operation := func() error {
		attempt++
		err := op(ctx)
		lastErr = err
		if err != nil && errors.Is(err, ErrMalformedInput) {
			return backoff.Permanent(err)
		}
		return err
	}

	var notify backoff.Notify
	if p.Notify != nil {
		notify = func(err error, _ time.Duration) { p.Notify(err, attempt) }
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(p.NewBackOff(), ctx), notify)

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	// Cancellation mid-schedule surfaces as ctx.Err(); keep the provider error too.
	if err != nil && lastErr != nil && ctx.Err() != nil && !errors.Is(err, lastErr) {
		return errors.Join(lastErr, err)
	}
	return err
}
