// Package poll waits for remote state to settle. Until repeats a check at
// the pace the remote side asks for; Wait is a cancellable sleep.
package poll

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrPending is returned when the state is still pending after the time limit
var ErrPending = errors.New("still pending")

// Check inspects the remote state once. While the state is pending it
// returns the delay before the next check; done ends polling.
type Check func(ctx context.Context) (next time.Duration, done bool, err error)

// hinted is a BackOff that returns whatever delay the last check asked for
type hinted struct {
	next time.Duration
}

func (h *hinted) NextBackOff() time.Duration { return h.next }
func (h *hinted) Reset()                     {}

// Until waits first, then runs check until it reports done or fails. It
// gives up with ErrPending once limit has elapsed. A check error ends
// polling and is returned unchanged.
func Until(ctx context.Context, first, limit time.Duration, check Check) error {
	if first <= 0 {
		first = time.Second
	}
	if err := Wait(ctx, first); err != nil {
		return err
	}

	pace := &hinted{next: first}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		next, done, err := check(ctx)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if done {
			return struct{}{}, nil
		}
		if next > 0 {
			pace.next = next
		}
		return struct{}{}, ErrPending
	},
		backoff.WithBackOff(pace),
		backoff.WithMaxElapsedTime(limit),
	)
	return err
}

// Wait blocks for delay or until ctx is done
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
