package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultMaxPolls bounds Poll when the caller leaves MaxPolls unset.
const DefaultMaxPolls = 60

// ErrPollTimeout is matched by the error returned when polling runs out of budget.
var ErrPollTimeout = errors.New("poll budget exhausted")

// TimeoutError reports how long a poll loop ran before giving up.
type TimeoutError struct {
	Polls   int
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("still not ready after %d polls (%s)", e.Polls, e.Elapsed.Round(time.Millisecond))
}

func (e *TimeoutError) Unwrap() error { return ErrPollTimeout }

// PollConfig bounds a poll loop.
type PollConfig struct {
	Interval time.Duration
	MaxPolls int
	// Backoff spaces the polls; defaults to a constant Interval
	Backoff BackoffStrategy
	// Sleep waits between polls; defaults to Wait
	Sleep func(ctx context.Context, d time.Duration) error
}

// CheckFunc reports whether the awaited condition holds.
type CheckFunc func(ctx context.Context) (done bool, err error)

// Poll calls check until it reports done, returns an error, or MaxPolls is reached.
func Poll(ctx context.Context, cfg PollConfig, check CheckFunc) error {
	maxPolls := cfg.MaxPolls
	if maxPolls <= 0 {
		maxPolls = DefaultMaxPolls
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = Wait
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = &ConstantBackoff{Delay: cfg.Interval}
	}

	start := time.Now()
	for poll := 1; ; poll++ {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if poll >= maxPolls {
			return &TimeoutError{Polls: poll, Elapsed: time.Since(start)}
		}
		if err := sleep(ctx, backoff.NextDelay(poll)); err != nil {
			return fmt.Errorf("poll cancelled: %w", err)
		}
	}
}
