package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/metrics"
)

type retryPolicy struct {
	attempts  int
	backoff   time.Duration
	opTimeout time.Duration
}

func newRetryPolicy(attempts int, backoff, opTimeout time.Duration) retryPolicy {
	if attempts < 1 {
		attempts = 3
	}
	if backoff < 0 {
		backoff = 100 * time.Millisecond
	}
	return retryPolicy{attempts: attempts, backoff: backoff, opTimeout: opTimeout}
}

// op names a store call for errors, logs and metrics.
type op struct {
	name   string
	entity string
	key    string
}

// withRetry is the one retry wrapper for every mutating call: busy errors are
// retried with linear backoff, everything else is classified and returned.
func (r *Repository) withRetry(ctx context.Context, o op, fn func(ctx context.Context) error) error {
	return r.run(ctx, o, r.retry.attempts, fn)
}

// query runs a read once with the same classification as writes.
func (r *Repository) query(ctx context.Context, o op, fn func(ctx context.Context) error) error {
	return r.run(ctx, o, 1, fn)
}

func (r *Repository) run(ctx context.Context, o op, attempts int, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx, cancel := r.attemptContext(ctx)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", o.name, ctx.Err())
		}

		switch classify(err) {
		case failurePassThrough:
			return err
		case failureNotFound:
			return fmt.Errorf("%s: %w", o.name, core.ErrNotFound)
		case failureDuplicate:
			return &core.DuplicateKeyError{Entity: o.entity, Key: o.key}
		case failureReference:
			return &core.ValidationError{Field: o.entity, Reason: "references a missing user, category, group or expense"}
		case failureCheck:
			return &core.ValidationError{Field: o.entity, Reason: "violates a value constraint"}
		case failureBusy:
			lastErr = err
			if attempt == attempts {
				break
			}
			metrics.StoreRetries.WithLabelValues(o.name).Inc()
			slog.WarnContext(ctx, "Store busy, retrying",
				append(applog.NewFields().WithOperation(o.name).WithError(err).ToSlice(), "attempt", attempt)...)
			select {
			case <-time.After(r.retry.backoff * time.Duration(attempt)):
			case <-ctx.Done():
				return fmt.Errorf("%s: %w", o.name, ctx.Err())
			}
			continue
		default:
			slog.ErrorContext(ctx, "Unexpected store error",
				append(applog.NewFields().WithOperation(o.name).WithError(err).ToSlice(), "dialect", r.dialect)...)
			return fmt.Errorf("%s: %w", o.name, core.ErrStoreFailure)
		}
	}

	metrics.StoreBusy.WithLabelValues(o.name).Inc()
	slog.ErrorContext(ctx, "Store busy, giving up",
		append(applog.NewFields().WithOperation(o.name).WithError(lastErr).ToSlice(), "attempts", attempts)...)
	return &core.StoreBusyError{Op: o.name, Attempts: attempts, Err: lastErr}
}

func (r *Repository) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.retry.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.retry.opTimeout)
}

// isPassThrough reports errors produced by the repository itself (validation,
// lookups) that must reach the caller unchanged.
func isPassThrough(err error) bool {
	var ve *core.ValidationError
	var de *core.DuplicateKeyError
	return errors.As(err, &ve) || errors.As(err, &de) || errors.Is(err, core.ErrNotFound)
}
