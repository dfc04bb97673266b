// Package schedule holds the waiting policy used around oracle lookups: a
// bounded fixed-delay retry for one lookup and a fixed pause between lookups.
// Waits go through a Sleeper so tests and other execution models can supply
// their own clock.
package schedule

import (
	"context"
	"time"
)

type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper blocks on a timer and returns early with ctx.Err() on cancellation.
type TimerSleeper struct{}

func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retry makes up to MaxAttempts attempts, waiting Delay before each retry.
type Retry struct {
	MaxAttempts int
	Delay       time.Duration
}

// Run calls attempt until it returns nil or the attempts are spent. It returns
// the number of attempts made and the last error.
func (r Retry) Run(ctx context.Context, s Sleeper, attempt func(ctx context.Context, n int) error) (int, error) {
	limit := r.MaxAttempts
	if limit < 1 {
		limit = 1
	}
	var err error
	for n := 1; n <= limit; n++ {
		if n > 1 {
			if serr := s.Sleep(ctx, r.Delay); serr != nil {
				return n - 1, serr
			}
		}
		if err = attempt(ctx, n); err == nil {
			return n, nil
		}
	}
	return limit, err
}

// Pacer spaces consecutive lookups of one session.
type Pacer struct {
	Interval time.Duration
	Sleeper  Sleeper
}

func (p Pacer) Wait(ctx context.Context) error {
	s := p.Sleeper
	if s == nil {
		s = TimerSleeper{}
	}
	return s.Sleep(ctx, p.Interval)
}
