// SPDX-License-Identifier: MIT
// Package interval provides a restartable periodic callback.
package interval

import (
	"sync"
	"time"
)

// Paused is the interval value that stops ticking without discarding the
// callback's last effect. Any value <= 0 pauses.
const Paused time.Duration = 0

// Ticker calls a function periodically on its own goroutine. Changing the
// interval restarts the goroutine; a paused Ticker holds no goroutine.
type Ticker struct {
	mu       sync.Mutex
	interval time.Duration
	fn       func(time.Time)
	doneChan chan struct{}
	stopOnce *sync.Once
	wg       sync.WaitGroup
}

// Set starts or restarts ticking every d, calling fn on each tick. A d of
// Paused (or less) stops ticking.
func (t *Ticker) Set(d time.Duration, fn func(time.Time)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if d == t.interval && t.doneChan != nil {
		t.fn = fn
		return
	}
	t.stopLocked()
	t.interval = d
	t.fn = fn
	if d <= 0 || fn == nil {
		return
	}

	ticker := time.NewTicker(d)
	done := make(chan struct{})
	t.doneChan = done
	t.stopOnce = &sync.Once{}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				t.mu.Lock()
				cb := t.fn
				current := t.doneChan == done
				t.mu.Unlock()
				if current && cb != nil {
					cb(now)
				}
			case <-done:
				return
			}
		}
	}()
}

// Interval returns the configured interval, Paused when not ticking.
func (t *Ticker) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.doneChan == nil {
		return Paused
	}
	return t.interval
}

// Stop pauses the ticker and waits for its goroutine to exit. Safe to call
// multiple times. Stop must not be called from inside the callback.
func (t *Ticker) Stop() {
	t.mu.Lock()
	t.stopLocked()
	t.interval = Paused
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *Ticker) stopLocked() {
	if t.doneChan == nil {
		return
	}
	done := t.doneChan
	t.stopOnce.Do(func() { close(done) })
	t.doneChan = nil
}
