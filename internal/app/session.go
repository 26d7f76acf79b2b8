// SPDX-License-Identifier: MIT
/*
Package app wires the capture components into one session.

Constraints go to the stream manager. Every committed stream is handed to
the recorder state machine together with the recording flag, and to the
audio graph accessor for level readings. Recording results drive the
elapsed time sampler. Every observable output is published through a
transport.
*/
package app

import (
	"context"
	"sync"
	"time"

	"capture/internal/device"
	"capture/internal/elapsed"
	"capture/internal/graph"
	"capture/internal/log"
	"capture/internal/media"
	"capture/internal/permission"
	"capture/internal/recorder"
	"capture/internal/stream"
	"capture/internal/transport"

	"golang.org/x/sync/errgroup"
)

// Options configure a Session. Zero values disable the matching periodic
// sampler or fall back to package defaults.
type Options struct {
	Record          media.RecordOptions
	Analyser        graph.AnalyserOptions
	ElapsedInterval time.Duration
	LevelInterval   time.Duration
	Provider        graph.Provider // Defaults to graph.Shared().
	Transport       transport.Transport
	Clock           func() time.Time
}

// Session is the capture session facade.
type Session struct {
	transport transport.Transport

	streams     *stream.Manager
	recorder    *recorder.Machine
	sampler     *elapsed.Sampler
	accessor    *graph.Accessor
	meter       *graph.LevelMeter
	devices     *device.Enumerator
	permissions *permission.Watcher

	driveMu sync.Mutex // Serializes reads of the inputs with Drive.

	mu        sync.Mutex
	stream    media.Stream
	recording bool
	lastErr   error
	closed    bool
}

var (
	_ stream.Observer   = (*Session)(nil)
	_ recorder.Observer = (*Session)(nil)
)

// New builds a session on top of platform p.
func New(p media.Platform, opts Options) *Session {
	if opts.Transport == nil {
		opts.Transport = transport.Discard
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	s := &Session{transport: opts.Transport}
	s.streams = stream.New(p, stream.WithObserver(s))
	s.recorder = recorder.New(p, opts.Record,
		recorder.WithObserver(s),
		recorder.WithClock(opts.Clock),
	)
	s.sampler = elapsed.NewSampler(opts.ElapsedInterval,
		elapsed.WithClock(opts.Clock),
		elapsed.WithNotify(func(v elapsed.View) { s.publish(transport.TypeElapsed, v) }),
	)
	s.accessor = graph.NewAccessor(opts.Provider, opts.Analyser)
	s.meter = graph.NewLevelMeter(s.accessor, opts.Transport)
	s.devices = device.New(p, device.WithNotify(func(l device.Lists) { s.publish(transport.TypeDevices, l) }))
	s.permissions = permission.NewWatcher(p, func(st permission.States) { s.publish(transport.TypePermissions, st) })

	s.meter.SetInterval(opts.LevelInterval)
	return s
}

// SetConstraints selects the inputs to capture. A nil or empty value
// releases the current stream.
func (s *Session) SetConstraints(c *media.Constraints) {
	s.streams.Acquire(c)
}

// SetRecording sets the recording flag.
func (s *Session) SetRecording(recording bool) {
	s.mu.Lock()
	s.recording = recording
	s.mu.Unlock()
	s.drive()
	s.sampler.Update(s.recorder.Result(), recording)
}

// drive hands the current inputs to the recorder state machine.
func (s *Session) drive() {
	s.driveMu.Lock()
	defer s.driveMu.Unlock()
	s.mu.Lock()
	st, recording := s.stream, s.recording
	s.mu.Unlock()
	s.recorder.Drive(st, recording)
}

// StreamChanged is called by the stream manager whenever the current stream
// changes.
func (s *Session) StreamChanged(st media.Stream) {
	s.mu.Lock()
	s.stream = st
	if st != nil {
		s.lastErr = nil
	}
	s.mu.Unlock()

	s.drive()
	s.accessor.Update(st)
	s.publish(transport.TypeStream, streamInfo(st))
}

// StreamError is called by the stream manager when acquisition fails.
func (s *Session) StreamError(err error) {
	s.setErr(err)
}

// ResultChanged is called by the recorder state machine.
func (s *Session) ResultChanged(r recorder.Result) {
	s.mu.Lock()
	recording := s.recording
	s.mu.Unlock()
	s.sampler.Update(r, recording)
	s.publish(transport.TypeResult, summarize(r))
}

// RecorderError is called by the recorder state machine.
func (s *Session) RecorderError(err error) {
	s.setErr(err)
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	s.publish(transport.TypeError, err.Error())
}

func (s *Session) publish(typ string, data any) {
	if err := s.transport.Send(transport.Message{Type: typ, Data: data}); err != nil {
		log.Debugf("app: publish %s: %v", typ, err)
	}
}

// SetElapsedInterval changes the elapsed time cadence; interval.Paused
// freezes the view.
func (s *Session) SetElapsedInterval(d time.Duration) { s.sampler.SetInterval(d) }

// SetLevelInterval changes the level cadence; interval.Paused stops level
// sampling.
func (s *Session) SetLevelInterval(d time.Duration) { s.meter.SetInterval(d) }

// Level takes one level reading now.
func (s *Session) Level() graph.Level { return s.meter.Sample() }

// Result returns the current recording result.
func (s *Session) Result() recorder.Result { return s.recorder.Result() }

// Current returns the current stream, nil when there is none.
func (s *Session) Current() media.Stream { return s.streams.Current() }

// Wait blocks until every in-flight stream acquisition has settled.
func (s *Session) Wait() { s.streams.Wait() }

// RefreshDevices refreshes permission states and then the device lists,
// which only carry labels once the microphone or camera is granted.
func (s *Session) RefreshDevices(ctx context.Context) device.Lists {
	states := s.permissions.Refresh(ctx)
	granted := states.Granted(media.Microphone) || states.Granted(media.Camera)
	return s.devices.List(ctx, granted)
}

// Devices returns the last committed device lists.
func (s *Session) Devices() device.Lists { return s.devices.Current() }

// Permissions returns the last committed permission states.
func (s *Session) Permissions() permission.States { return s.permissions.States() }

// Run keeps the device lists current on every hardware change notification
// and closes the session once ctx is done.
func (s *Session) Run(ctx context.Context, changes <-chan struct{}) error {
	g, gctx := errgroup.WithContext(ctx)
	if changes != nil {
		g.Go(func() error {
			s.devices.Watch(gctx, changes)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		s.Close()
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Close tears everything down. Buffered recording data that no session
// stop has flushed yet is discarded. Close is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.recorder.Close()
	s.streams.Close()
	s.streams.Wait()
	s.meter.Close()
	s.sampler.Close()
	s.accessor.Close()
	log.Debugf("app: session closed")
}
