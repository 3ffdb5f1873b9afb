package services

import (
	"sync"
	"time"
)

// GameTimer is a countdown (or bounded count-up) driving turn clocks,
// combat clocks and every other autonomous schedule in a session.
// At most one interval is ever live per timer: Start on a running timer
// is a no-op and Stop is idempotent.
type GameTimer struct {
	mu        sync.Mutex
	count     int
	tick      time.Duration
	increment bool
	maxCount  int
	running   bool
	stop      chan struct{}
}

// NewGameTimer creates an idle timer. For count-up timers pass
// increment=true and the bound in maxCount; countdown timers stop at zero.
func NewGameTimer(count int, tick time.Duration, increment bool, maxCount int) *GameTimer {
	return &GameTimer{count: count, tick: tick, increment: increment, maxCount: maxCount}
}

// Start begins ticking. onTick fires immediately with the current count,
// then once per interval after the count moves. When the bound is reached
// the timer stops itself and fires onExpire, if given.
func (t *GameTimer) Start(onTick func(count int), onExpire func()) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.stop = make(chan struct{})
	stop := t.stop
	count := t.count
	t.mu.Unlock()

	if onTick != nil {
		onTick(count)
	}

	go func() {
		ticker := time.NewTicker(t.tick)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				t.mu.Lock()
				if !t.running {
					t.mu.Unlock()
					return
				}
				if t.increment {
					t.count++
				} else {
					t.count--
				}
				count := t.count
				expired := (!t.increment && count <= 0) || (t.increment && t.maxCount > 0 && count >= t.maxCount)
				if expired {
					t.running = false
					close(t.stop)
				}
				t.mu.Unlock()

				if onTick != nil {
					onTick(count)
				}
				if expired {
					if onExpire != nil {
						onExpire()
					}
					return
				}
			}
		}
	}()
}

// Stop cancels the interval. Safe to call on an idle or expired timer.
func (t *GameTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.running {
		return
	}
	t.running = false
	close(t.stop)
}

// Count returns the current count
func (t *GameTimer) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Running reports whether the interval is live
func (t *GameTimer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
