// SPDX-License-Identifier: MIT
// Package elapsed derives a display-friendly duration from a recording's
// start marker.
package elapsed

import (
	"sync"
	"time"

	"capture/internal/interval"
	"capture/internal/recorder"
)

// View is the elapsed time split for display.
type View struct {
	ElapsedMs int64 `json:"elapsedMs"`
	Minutes   int   `json:"minutes"`
	Seconds   int   `json:"seconds"`
	Millis    int   `json:"millis"`
}

// FromDuration splits d into a View. Negative durations clamp to zero.
func FromDuration(d time.Duration) View {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	return View{
		ElapsedMs: ms,
		Minutes:   int(ms / 60000),
		Seconds:   int(ms / 1000 % 60),
		Millis:    int(ms % 1000),
	}
}

// Sampler recomputes a View on every tick while a recording runs and keeps
// the last value once it stops.
type Sampler struct {
	clock  func() time.Time
	ticker interval.Ticker
	notify func(View)

	mu        sync.Mutex
	start     time.Time
	recording bool
	interval  time.Duration
	view      View
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Sampler) { s.clock = clock }
}

// WithNotify registers a callback for every recomputed view.
func WithNotify(fn func(View)) Option {
	return func(s *Sampler) { s.notify = fn }
}

// NewSampler returns a sampler ticking every d; d <= 0 starts it paused.
func NewSampler(d time.Duration, opts ...Option) *Sampler {
	s := &Sampler{clock: time.Now, interval: d}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update feeds the sampler a new result and recording flag.
func (s *Sampler) Update(r recorder.Result, recording bool) {
	s.mu.Lock()
	if !r.Started() || !r.StartTime.Equal(s.start) {
		s.view = View{}
	}
	s.start = r.StartTime
	s.recording = recording
	s.mu.Unlock()

	if recording && r.Started() {
		s.Sample(s.clock())
	}
	s.reschedule()
}

// SetInterval changes the tick interval; interval.Paused stops sampling and
// keeps the last view.
func (s *Sampler) SetInterval(d time.Duration) {
	s.mu.Lock()
	s.interval = d
	s.mu.Unlock()
	s.reschedule()
}

func (s *Sampler) reschedule() {
	s.mu.Lock()
	d := s.interval
	if !s.recording || s.start.IsZero() {
		d = interval.Paused
	}
	s.mu.Unlock()
	s.ticker.Set(d, s.tick)
}

func (s *Sampler) tick(time.Time) { s.Sample(s.clock()) }

// Sample recomputes the view at now. It is a no-op unless a started
// recording is running, and never moves the view backwards.
func (s *Sampler) Sample(now time.Time) {
	s.mu.Lock()
	if !s.recording || s.start.IsZero() {
		s.mu.Unlock()
		return
	}
	v := FromDuration(now.Sub(s.start))
	if v.ElapsedMs < s.view.ElapsedMs {
		v = s.view
	}
	s.view = v
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(v)
	}
}

// View returns the latest computed view.
func (s *Sampler) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Close stops sampling.
func (s *Sampler) Close() {
	s.ticker.Stop()
}
