package schedule

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRun(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 25, 0, 0, time.UTC)

	t.Run("nightly", func(t *testing.T) {
		next, err := NextRun(Spec{Expr: "0 2 * * *", TZ: "UTC"}, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC), next.UTC())
	})

	t.Run("every hour", func(t *testing.T) {
		next, err := NextRun(Spec{Expr: "@hourly", TZ: "UTC"}, now)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC), next.UTC())
	})

	t.Run("with timezone", func(t *testing.T) {
		next, err := NextRun(Spec{Expr: "0 9 * * *", TZ: "Asia/Ho_Chi_Minh"}, now)
		require.NoError(t, err)

		loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
		require.NoError(t, err)
		assert.Equal(t, 9, next.In(loc).Hour())
		assert.True(t, next.After(now))
	})

	t.Run("invalid cron expression", func(t *testing.T) {
		_, err := NextRun(Spec{Expr: "invalid"}, now)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid cron expression")
	})

	t.Run("invalid timezone", func(t *testing.T) {
		_, err := NextRun(Spec{Expr: "0 9 * * *", TZ: "Invalid/Timezone"}, now)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid timezone")
	})

	t.Run("missing expr", func(t *testing.T) {
		_, err := NextRun(Spec{}, now)
		assert.ErrorIs(t, err, ErrEmptyExpr)
	})
}

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New(Spec{Expr: "61 * * * *"}, func(ctx context.Context) error { return nil }, zerolog.Nop())
	assert.Error(t, err)
}

// tick fires at a fixed sub-second interval
type tick time.Duration

func (d tick) Next(t time.Time) time.Time { return t.Add(time.Duration(d)) }

func TestSchedulerRunsUntilCanceled(t *testing.T) {
	var calls atomic.Int32
	var failures atomic.Int32
	job := func(ctx context.Context) error {
		if calls.Add(1)%2 == 0 {
			failures.Add(1)
			return errors.New("mismatch")
		}
		return nil
	}

	s := newScheduler(tick(20*time.Millisecond), time.UTC, job, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 4 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	runs, failed, _ := s.Stats()
	assert.Equal(t, int(calls.Load()), runs)
	assert.Equal(t, int(failures.Load()), failed)
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	var mu sync.Mutex
	running, maxRunning := 0, 0
	release := make(chan struct{})

	job := func(ctx context.Context) error {
		mu.Lock()
		running++
		if running > maxRunning {
			maxRunning = running
		}
		mu.Unlock()

		select {
		case <-release:
		case <-ctx.Done():
		}

		mu.Lock()
		running--
		mu.Unlock()
		return nil
	}

	s := newScheduler(tick(10*time.Millisecond), time.UTC, job, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, _, skipped := s.Stats()
		return skipped >= 3
	}, 2*time.Second, 5*time.Millisecond)

	close(release)
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxRunning)
}

func TestSchedulerCancelsInFlightJob(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	var jobErr atomic.Value

	job := func(ctx context.Context) error {
		once.Do(func() { close(started) })
		<-ctx.Done()
		jobErr.Store(ctx.Err())
		return ctx.Err()
	}

	s := newScheduler(tick(10*time.Millisecond), time.UTC, job, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	<-started
	cancel()
	<-done

	// Run waits for the job, so its outcome is visible here
	assert.Equal(t, context.Canceled, jobErr.Load())
	runs, failed, _ := s.Stats()
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, failed)
}
