package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/replicore/syncengine/internal/errs"
)

// RetryPolicy returns the exponential backoff the sink uses around every
// write: up to 5 attempts, starting at 100ms and roughly doubling, capped
// so the whole sequence never exceeds a few seconds (spec §4.5, §7).
// A fatal error (errs.Fatal) short-circuits the policy immediately — no
// number of retries turns a schema mismatch into a transient failure.
func RetryPolicy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.Multiplier = 2
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 0 // bounded by WithMaxRetries below, not wall clock
	return backoff.WithContext(backoff.WithMaxRetries(b, 4), ctx)
}

// WithRetry runs op under RetryPolicy, stopping early if op returns a
// fatal error per errs.Fatal. A conflict that still fails once the
// policy is exhausted is returned wrapped in errs.ErrSinkIO as well.
func WithRetry(ctx context.Context, op func() error) error {
	policy := RetryPolicy(ctx)
	err := backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if errs.Fatal(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
	if errors.Is(err, errs.ErrSinkConflict) && !errors.Is(err, errs.ErrSinkIO) {
		return fmt.Errorf("%w: %w", err, errs.ErrSinkIO)
	}
	return err
}

// IsExhausted reports whether err is the terminal error WithRetry returns
// after every retry attempt failed, as opposed to a fatal error that
// stopped the policy on its first occurrence. backoff.Retry unwraps a
// backoff.Permanent before returning, so the two are told apart by the
// error's kind: an exhausted conflict, or any other non-fatal error.
func IsExhausted(err error) bool {
	return err != nil && (errors.Is(err, errs.ErrSinkConflict) || !errs.Fatal(err))
}
