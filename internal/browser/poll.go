// File: internal/browser/poll.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPollTimeout is returned by PollUntil when the predicate never became
// stably true within the allotted window.
var ErrPollTimeout = errors.New("poll timed out")

// PollOpts tunes a PollUntil loop.
type PollOpts struct {
	// Interval between predicate evaluations.
	Interval time.Duration
	// MaxWait is the total window measured from the first evaluation.
	MaxWait time.Duration
	// Stability is how many consecutive true results are required before the
	// loop succeeds. A value below 1 is treated as 1.
	Stability int
}

// PollUntil evaluates predicate every Interval until it has returned true
// Stability times in a row, the window expires, or the context is canceled.
// A false result resets the stability counter. A predicate error aborts the
// loop immediately; callers that want to tolerate transient evaluation
// failures should swallow them inside the predicate.
func PollUntil(ctx context.Context, clock Clock, opts PollOpts, predicate func(context.Context) (bool, error)) error {
	if opts.Stability < 1 {
		opts.Stability = 1
	}
	if opts.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", opts.Interval)
	}

	deadline := clock.Now().Add(opts.MaxWait)
	consecutive := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ok, err := predicate(ctx)
		if err != nil {
			return fmt.Errorf("poll predicate failed: %w", err)
		}

		if ok {
			consecutive++
			if consecutive >= opts.Stability {
				return nil
			}
		} else {
			consecutive = 0
		}

		if !clock.Now().Add(opts.Interval).Before(deadline) {
			return fmt.Errorf("%w after %v (stability %d/%d)",
				ErrPollTimeout, opts.MaxWait, consecutive, opts.Stability)
		}
		if err := clock.Sleep(ctx, opts.Interval); err != nil {
			return err
		}
	}
}
