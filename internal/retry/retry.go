// Package retry wraps cenkalti/backoff with the fixed-interval, bounded
// attempt policy the provisioning pipelines use while waiting out directory
// propagation. Constant spacing is deliberate: call volume is low and runs
// are operator-supervised, so predictable timing beats throughput.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"

	"github.com/mspkit/delegate/internal/apierror"
)

// Policy holds the attempt budget for eventual-consistency waits.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultPolicy matches the tuning the pipelines ship with; config can
// override it per run.
var DefaultPolicy = Policy{Attempts: 6, Delay: 10 * time.Second}

// Do runs op until it succeeds, returns a non-retryable error, or the
// attempt budget is exhausted. Errors outside the transient class
// short-circuit immediately.
func Do[T any](ctx context.Context, p Policy, name string, op func() (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	wrapped := func() (T, error) {
		v, err := op()
		if err != nil && !apierror.IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	return backoff.Retry(ctx, wrapped,
		backoff.WithBackOff(backoff.NewConstantBackOff(p.Delay)),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, d time.Duration) {
			log.Debug().
				Err(err).
				Str("operation", name).
				Dur("next_attempt_in", d).
				Msg("Retrying after transient error")
		}),
	)
}
