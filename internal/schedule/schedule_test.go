package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	waits []time.Duration
	err   error
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return s.err
}

func TestRetryStopsOnSuccess(t *testing.T) {
	s := &recordingSleeper{}
	calls := 0
	n, err := Retry{MaxAttempts: 5, Delay: 2 * time.Second}.Run(context.Background(), s, func(context.Context, int) error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, s.waits)
}

func TestRetryExhausts(t *testing.T) {
	s := &recordingSleeper{}
	boom := errors.New("boom")
	var seen []int
	n, err := Retry{MaxAttempts: 5, Delay: time.Second}.Run(context.Background(), s, func(_ context.Context, attempt int) error {
		seen = append(seen, attempt)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 5, n)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, seen)
	assert.Len(t, s.waits, 4)
}

func TestRetryAbortsWhenWaitFails(t *testing.T) {
	s := &recordingSleeper{err: context.Canceled}
	n, err := Retry{MaxAttempts: 5, Delay: time.Second}.Run(context.Background(), s, func(context.Context, int) error {
		return errors.New("boom")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, n)
}

func TestTimerSleeperHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := TimerSleeper{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPacerUsesInterval(t *testing.T) {
	s := &recordingSleeper{}
	require.NoError(t, Pacer{Interval: time.Second, Sleeper: s}.Wait(context.Background()))
	assert.Equal(t, []time.Duration{time.Second}, s.waits)
}
