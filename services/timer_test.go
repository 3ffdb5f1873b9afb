package services

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameTimerCountsDownAndExpires(t *testing.T) {
	timer := NewGameTimer(2, 10*time.Millisecond, false, 0)

	ticks := make(chan int, 8)
	expired := make(chan struct{})
	timer.Start(
		func(count int) { ticks <- count },
		func() { close(expired) },
	)

	// the opening tick reports the full count before any interval elapses
	require.Equal(t, 2, <-ticks)

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never expired")
	}

	assert.Equal(t, 1, <-ticks)
	assert.Equal(t, 0, <-ticks)
	assert.False(t, timer.Running())
	assert.Equal(t, 0, timer.Count())
}

func TestGameTimerStartWhileRunningIsNoOp(t *testing.T) {
	timer := NewGameTimer(60, time.Second, false, 0)
	defer timer.Stop()

	var first, second atomic.Int32
	timer.Start(func(int) { first.Add(1) }, nil)
	timer.Start(func(int) { second.Add(1) }, nil)

	assert.Equal(t, int32(1), first.Load())
	assert.Equal(t, int32(0), second.Load(), "second Start must not attach a new interval")
	assert.True(t, timer.Running())
}

func TestGameTimerStopIsIdempotent(t *testing.T) {
	timer := NewGameTimer(60, time.Second, false, 0)
	timer.Start(nil, nil)

	timer.Stop()
	assert.False(t, timer.Running())
	assert.NotPanics(t, func() { timer.Stop() })

	// a stopped timer keeps its remaining count for re-arming
	assert.Equal(t, 60, timer.Count())
}

func TestGameTimerCountUpStopsAtBound(t *testing.T) {
	timer := NewGameTimer(0, 5*time.Millisecond, true, 2)

	expired := make(chan struct{})
	timer.Start(nil, func() { close(expired) })

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("count-up timer never reached its bound")
	}
	assert.Equal(t, 2, timer.Count())
	assert.False(t, timer.Running())
}
