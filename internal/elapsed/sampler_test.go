// SPDX-License-Identifier: MIT
package elapsed

import (
	"sync"
	"testing"
	"time"

	"capture/internal/interval"
	"capture/internal/recorder"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var start = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestFromDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want View
	}{
		{0, View{}},
		{-time.Second, View{}},
		{1500 * time.Millisecond, View{ElapsedMs: 1500, Seconds: 1, Millis: 500}},
		{61*time.Second + 7*time.Millisecond, View{ElapsedMs: 61007, Minutes: 1, Seconds: 1, Millis: 7}},
		{125 * time.Minute, View{ElapsedMs: 7500000, Minutes: 125}},
	}
	for _, tt := range tests {
		t.Run(tt.d.String(), func(t *testing.T) {
			if got := FromDuration(tt.d); got != tt.want {
				t.Errorf("FromDuration(%v) = %+v, want %+v", tt.d, got, tt.want)
			}
		})
	}
}

func TestSamplerZeroWithoutStart(t *testing.T) {
	clock := &fakeClock{now: start}
	s := NewSampler(interval.Paused, WithClock(clock.Now))
	defer s.Close()

	s.Update(recorder.Result{}, true)
	s.Sample(start.Add(time.Minute))
	if got := s.View(); got != (View{}) {
		t.Errorf("expected zero view without a start marker, got %+v", got)
	}
}

func TestSamplerMonotonicWhileRecording(t *testing.T) {
	clock := &fakeClock{now: start}
	s := NewSampler(interval.Paused, WithClock(clock.Now))
	defer s.Close()

	s.Update(recorder.Result{StartTime: start}, true)

	var prev View
	for i := 0; i < 5; i++ {
		clock.Advance(250 * time.Millisecond)
		s.Sample(clock.Now())
		v := s.View()
		if v.ElapsedMs < prev.ElapsedMs {
			t.Fatalf("sample %d went backwards: %+v -> %+v", i, prev, v)
		}
		prev = v
	}
	if prev.ElapsedMs != 1250 {
		t.Errorf("ElapsedMs = %d, want 1250", prev.ElapsedMs)
	}

	// An out-of-order tick never moves the view backwards.
	s.Sample(start.Add(100 * time.Millisecond))
	if got := s.View(); got.ElapsedMs != 1250 {
		t.Errorf("late tick moved the view: %+v", got)
	}
}

func TestSamplerFreezesAfterStop(t *testing.T) {
	clock := &fakeClock{now: start}
	s := NewSampler(interval.Paused, WithClock(clock.Now))
	defer s.Close()

	res := recorder.Result{StartTime: start}
	s.Update(res, true)
	clock.Advance(3 * time.Second)
	s.Sample(clock.Now())

	s.Update(res, false)
	clock.Advance(10 * time.Second)
	s.Sample(clock.Now())

	if got := s.View(); got.ElapsedMs != 3000 {
		t.Errorf("view should freeze at 3000ms, got %+v", got)
	}
}

func TestSamplerTicks(t *testing.T) {
	clock := &fakeClock{now: start}
	views := make(chan View, 16)
	s := NewSampler(time.Millisecond, WithClock(clock.Now), WithNotify(func(v View) {
		select {
		case views <- v:
		default:
		}
	}))
	defer s.Close()

	s.Update(recorder.Result{StartTime: start}, true)
	clock.Advance(2 * time.Second)

	deadline := time.After(time.Second)
	for {
		select {
		case v := <-views:
			if v.ElapsedMs == 2000 {
				return
			}
		case <-deadline:
			t.Fatalf("ticker never sampled the advanced clock, view %+v", s.View())
		}
	}
}

func TestSamplerPauseKeepsLastValue(t *testing.T) {
	clock := &fakeClock{now: start}
	s := NewSampler(time.Millisecond, WithClock(clock.Now))
	defer s.Close()

	s.Update(recorder.Result{StartTime: start}, true)
	clock.Advance(time.Second)
	s.Sample(clock.Now())
	s.SetInterval(interval.Paused)

	if got := s.View(); got.ElapsedMs != 1000 {
		t.Errorf("pausing lost the last value: %+v", got)
	}
}
