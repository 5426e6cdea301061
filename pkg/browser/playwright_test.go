package browser

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallReturnsWhenContextEnds(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := call(ctx, newGate(), func() (int, error) {
		<-release
		return 1, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCallWaitsForAbandonedCall(t *testing.T) {
	g := newGate()
	release := make(chan struct{})
	var active atomic.Int32
	var overlapped atomic.Bool

	// the first call outlives its context, like a click after a scenario timeout
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := call(ctx, g, func() (struct{}, error) {
		active.Add(1)
		<-release
		active.Add(-1)
		return struct{}{}, nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	go func() {
		time.Sleep(30 * time.Millisecond)
		close(release)
	}()

	data, err := call(context.Background(), g, func() ([]byte, error) {
		if active.Load() != 0 {
			overlapped.Store(true)
		}
		return []byte("png"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)
	assert.False(t, overlapped.Load(), "screenshot ran while the abandoned call was in flight")
}

func TestCallGivesUpWaitingForGate(t *testing.T) {
	g := newGate()
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, _ = call(ctx, g, func() (int, error) {
		<-release
		return 0, nil
	})

	ran := false
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	_, err := call(ctx2, g, func() (int, error) {
		ran = true
		return 0, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)
}

func TestCallWithoutGate(t *testing.T) {
	v, err := call(context.Background(), nil, func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = call(ctx, nil, func() (string, error) { return "unreachable", nil })
	assert.ErrorIs(t, err, context.Canceled)
}
