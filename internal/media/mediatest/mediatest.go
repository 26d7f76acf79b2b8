// SPDX-License-Identifier: MIT
// Package mediatest provides in-memory platform fakes for tests of the
// capture packages. Every fake counts its stops so tests can assert that
// hardware is released exactly once.
package mediatest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"capture/internal/media"
)

// Track is a fake audio track that records how often it was stopped.
type Track struct {
	id     string
	kind   media.TrackKind
	format media.AudioFormat

	stops atomic.Int32

	mu   sync.Mutex
	subs map[int]func([]float32)
	next int
}

var _ media.AudioTrack = (*Track)(nil)

// NewTrack returns a live fake track.
func NewTrack(id string, kind media.TrackKind) *Track {
	return &Track{
		id:     id,
		kind:   kind,
		format: media.AudioFormat{SampleRate: 48000, Channels: 1},
		subs:   make(map[int]func([]float32)),
	}
}

func (t *Track) ID() string                { return t.id }
func (t *Track) Kind() media.TrackKind     { return t.kind }
func (t *Track) Label() string             { return "fake " + string(t.kind) + " " + t.id }
func (t *Track) Format() media.AudioFormat { return t.format }
func (t *Track) Stopped() bool             { return t.stops.Load() > 0 }

// Stop counts every call, including repeated ones.
func (t *Track) Stop() { t.stops.Add(1) }

// Stops returns how many times Stop was called.
func (t *Track) Stops() int { return int(t.stops.Load()) }

func (t *Track) Subscribe(fn func([]float32)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.next
	t.next++
	t.subs[id] = fn
	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// Subscribers returns the number of registered sample callbacks.
func (t *Track) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Emit delivers samples to every subscriber.
func (t *Track) Emit(samples []float32) {
	t.mu.Lock()
	fns := make([]func([]float32), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()
	for _, fn := range fns {
		fn(samples)
	}
}

// Stream is a fake stream built from fake tracks.
type Stream struct {
	id     string
	tracks []*Track
}

var _ media.Stream = (*Stream)(nil)

// NewStream returns a stream with one audio track, plus a video track when
// video is true.
func NewStream(id string, video bool) *Stream {
	s := &Stream{id: id, tracks: []*Track{NewTrack(id+"/audio", media.KindAudio)}}
	if video {
		s.tracks = append(s.tracks, NewTrack(id+"/video", media.KindVideo))
	}
	return s
}

func (s *Stream) ID() string { return s.id }

func (s *Stream) Tracks() []media.Track {
	out := make([]media.Track, len(s.tracks))
	for i, t := range s.tracks {
		out[i] = t
	}
	return out
}

// Audio returns the fake audio track.
func (s *Stream) Audio() *Track { return s.tracks[0] }

// Stops returns the highest stop count among the stream's tracks.
func (s *Stream) Stops() int {
	max := 0
	for _, t := range s.tracks {
		if n := t.Stops(); n > max {
			max = n
		}
	}
	return max
}

// Request is one pending AcquireStream call.
type Request struct {
	Constraints media.Constraints
	Ctx         context.Context

	result chan acquireResult
}

type acquireResult struct {
	stream media.Stream
	err    error
}

// Resolve completes the request with s.
func (r *Request) Resolve(s media.Stream) { r.result <- acquireResult{stream: s} }

// Reject completes the request with err.
func (r *Request) Reject(err error) { r.result <- acquireResult{err: err} }

// Acquirer is a fake StreamAcquirer whose calls block until the test
// resolves them, so tests control the order responses arrive in.
type Acquirer struct {
	Requests chan *Request
}

// NewAcquirer returns an acquirer that buffers up to 16 outstanding requests.
func NewAcquirer() *Acquirer {
	return &Acquirer{Requests: make(chan *Request, 16)}
}

func (a *Acquirer) AcquireStream(ctx context.Context, c media.Constraints) (media.Stream, error) {
	req := &Request{Constraints: c, Ctx: ctx, result: make(chan acquireResult, 1)}
	a.Requests <- req
	res := <-req.result
	return res.stream, res.err
}

// Next waits for the next request or fails after a second.
func (a *Acquirer) Next() (*Request, error) {
	select {
	case r := <-a.Requests:
		return r, nil
	case <-time.After(time.Second):
		return nil, fmt.Errorf("mediatest: no acquisition request issued")
	}
}

// Pending reports how many issued requests have not been taken with Next.
func (a *Acquirer) Pending() int { return len(a.Requests) }

// Session is a fake recorder session driven by the test.
type Session struct {
	id       string
	stream   media.Stream
	opts     media.RecordOptions
	events   media.SessionEvents
	clock    func() time.Time
	StartErr error
	// StopErr makes Stop fail without a stop event.
	StopErr error
	// DeferStop holds the stop event back until FinishStop.
	DeferStop bool

	mu      sync.Mutex
	started bool
	stopped bool
}

var _ media.Session = (*Session)(nil)

func (s *Session) ID() string       { return s.id }
func (s *Session) MimeType() string { return "audio/fake" }

// Stream returns the stream the session records.
func (s *Session) Stream() media.Stream { return s.stream }

func (s *Session) Start() error {
	if s.StartErr != nil {
		return s.StartErr
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	if s.events.OnStart != nil {
		s.events.OnStart(s.clock())
	}
	return nil
}

// Stop flushes synchronously unless DeferStop is set: OnStop fires before
// Stop returns.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	stopErr, deferred := s.StopErr, s.DeferStop
	s.mu.Unlock()
	if stopErr != nil {
		return stopErr
	}
	if !deferred {
		s.FinishStop()
	}
	return nil
}

// FinishStop delivers the stop event.
func (s *Session) FinishStop() {
	if s.events.OnStop != nil {
		s.events.OnStop()
	}
}

// Segment delivers one data chunk.
func (s *Session) Segment(b []byte) {
	if s.events.OnData != nil {
		s.events.OnData(b)
	}
}

// Fail reports a platform failure.
func (s *Session) Fail(err error) {
	if s.events.OnError != nil {
		s.events.OnError(err)
	}
}

// Stopped reports whether Stop ran.
func (s *Session) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Recorder is a fake RecorderFactory keeping every session it created.
type Recorder struct {
	Clock     func() time.Time
	NewErr    error
	StartErr  error
	StopErr   error
	DeferStop bool

	mu       sync.Mutex
	sessions []*Session
}

func (r *Recorder) NewSession(s media.Stream, opts media.RecordOptions, events media.SessionEvents) (media.Session, error) {
	if r.NewErr != nil {
		return nil, r.NewErr
	}
	clock := r.Clock
	if clock == nil {
		clock = time.Now
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sess := &Session{
		id:        fmt.Sprintf("session-%d", len(r.sessions)+1),
		stream:    s,
		opts:      opts,
		events:    events,
		clock:     clock,
		StartErr:  r.StartErr,
		StopErr:   r.StopErr,
		DeferStop: r.DeferStop,
	}
	r.sessions = append(r.sessions, sess)
	return sess, nil
}

// Sessions returns every session created so far.
func (r *Recorder) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Session(nil), r.sessions...)
}

// Last returns the most recent session, nil when none exists.
func (r *Recorder) Last() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) == 0 {
		return nil
	}
	return r.sessions[len(r.sessions)-1]
}

// Devices is a fake DeviceLister and PermissionQuerier.
type Devices struct {
	mu          sync.Mutex
	List        []media.DeviceInfo
	Err         error
	Permissions map[media.PermissionName]media.PermissionState
	PermErr     error
	Calls       int
}

func (d *Devices) EnumerateDevices(ctx context.Context) ([]media.DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Calls++
	if d.Err != nil {
		return nil, d.Err
	}
	return append([]media.DeviceInfo(nil), d.List...), nil
}

func (d *Devices) QueryPermission(ctx context.Context, name media.PermissionName) (media.PermissionState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.PermErr != nil {
		return "", d.PermErr
	}
	st, ok := d.Permissions[name]
	if !ok {
		return media.PermissionPrompt, nil
	}
	return st, nil
}

// Set replaces the device list.
func (d *Devices) Set(list []media.DeviceInfo, err error) {
	d.mu.Lock()
	d.List, d.Err = list, err
	d.mu.Unlock()
}

// CallCount returns how many enumerations ran.
func (d *Devices) CallCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Calls
}

// Platform bundles the fakes into a media.Platform.
type Platform struct {
	*Acquirer
	*Recorder
	*Devices
}

var _ media.Platform = Platform{}

// NewPlatform returns a platform of fresh fakes.
func NewPlatform() Platform {
	return Platform{Acquirer: NewAcquirer(), Recorder: &Recorder{}, Devices: &Devices{}}
}
