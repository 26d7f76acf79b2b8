// SPDX-License-Identifier: MIT
/*
Package recorder turns a stream and a recording flag into recorded artifacts.

A Machine binds one platform recorder session at a time to the stream it is
given. Replacing the stream while recording resumes: the old session is
stopped and flushed into an artifact, a new session starts on the new
stream, and the result's start time is kept. The Machine observes streams
but never stops them.
*/
package recorder

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"capture/internal/log"
	"capture/internal/media"
)

// State is the recorder state.
type State int

const (
	StateIdle State = iota
	StateRecording
)

func (s State) String() string {
	if s == StateRecording {
		return "recording"
	}
	return "idle"
}

// Observer receives results and failures. Calls are serialized.
type Observer interface {
	ResultChanged(r Result)
	RecorderError(err error)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnResult func(r Result)
	OnError  func(err error)
}

func (o ObserverFuncs) ResultChanged(r Result) {
	if o.OnResult != nil {
		o.OnResult(r)
	}
}

func (o ObserverFuncs) RecorderError(err error) {
	if o.OnError != nil {
		o.OnError(err)
	}
}

// Option configures a Machine.
type Option func(*Machine)

// WithObserver registers the observer of results and errors.
func WithObserver(o Observer) Option {
	return func(m *Machine) { m.observer = o }
}

// WithClock replaces time.Now for artifact timestamps.
func WithClock(clock func() time.Time) Option {
	return func(m *Machine) { m.clock = clock }
}

// session is the Machine's view of one platform recorder session.
type session struct {
	platform media.Session
	stream   media.Stream
	fresh    bool   // Sets the result's start time when it starts.
	epoch    uint64 // Logical recording the session belongs to.

	started  time.Time
	chunks   [][]byte
	done     bool // Stopped or failed; later callbacks are ignored.
	detached bool // Torn down; buffered data is discarded.
}

// Machine is the recorder state machine.
type Machine struct {
	factory  media.RecorderFactory
	opts     media.RecordOptions
	observer Observer
	clock    func() time.Time

	driveMu sync.Mutex

	mu         sync.Mutex
	stream     media.Stream
	recording  bool
	active     *session
	inProgress bool   // A logical recording is running; new sessions resume it.
	epoch      uint64 // Bumped on every fresh start.
	result     Result
	closed     bool

	emitMu sync.Mutex
}

// New returns an idle Machine creating sessions through factory.
func New(factory media.RecorderFactory, opts media.RecordOptions, mopts ...Option) *Machine {
	m := &Machine{
		factory:  factory,
		opts:     opts,
		observer: ObserverFuncs{},
		clock:    time.Now,
	}
	for _, opt := range mopts {
		opt(m)
	}
	return m
}

// Drive reconciles the Machine with its inputs and performs whatever
// transition they imply. Calls are serialized; session callbacks may arrive
// from any goroutine.
func (m *Machine) Drive(stream media.Stream, recording bool) {
	m.driveMu.Lock()
	defer m.driveMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.stream, m.recording = stream, recording

	var stop *session
	start := false
	switch {
	case !recording || stream == nil:
		stop = m.active
		m.active = nil
		if !recording {
			m.inProgress = false
		}
	case m.active == nil:
		start = true
	case m.active.stream != stream:
		stop = m.active
		m.active = nil
		start = true
	}

	fresh := false
	if start && !m.inProgress {
		fresh = true
		m.inProgress = true
		m.epoch++
		m.result = Result{}
	}
	epoch := m.epoch
	m.mu.Unlock()

	if stop != nil {
		m.stopSession(stop)
	}
	if fresh {
		m.emitResult()
	}
	if start {
		m.startSession(stream, fresh, epoch)
	}
}

func (m *Machine) startSession(stream media.Stream, fresh bool, epoch uint64) {
	sess := &session{stream: stream, fresh: fresh, epoch: epoch}
	events := media.SessionEvents{
		OnStart: func(at time.Time) { m.onStart(sess, at) },
		OnData:  func(chunk []byte) { m.onData(sess, chunk) },
		OnStop:  func() { m.onStop(sess) },
		OnError: func(err error) { m.onError(sess, err) },
	}

	p, err := m.factory.NewSession(stream, m.opts, events)
	if err != nil {
		m.startFailed(sess, fmt.Errorf("recorder: create session: %w", err))
		return
	}

	m.mu.Lock()
	sess.platform = p
	m.active = sess
	m.mu.Unlock()

	if fresh {
		log.Debugf("recorder: session %s starting on stream %s", p.ID(), stream.ID())
	} else {
		log.Debugf("recorder: session %s resuming on stream %s", p.ID(), stream.ID())
	}

	if err := p.Start(); err != nil {
		m.startFailed(sess, fmt.Errorf("recorder: start session %s: %w", p.ID(), err))
	}
}

// startFailed reverts to idle without an artifact. A fresh recording that
// never started stays fresh for the next attempt.
func (m *Machine) startFailed(sess *session, err error) {
	m.mu.Lock()
	sess.done = true
	sess.chunks = nil
	if m.active == sess {
		m.active = nil
	}
	if sess.fresh {
		m.inProgress = false
	}
	m.mu.Unlock()

	log.Warnf("%v", err)
	m.emitError(err)
}

func (m *Machine) stopSession(sess *session) {
	if sess.platform == nil {
		return
	}
	if err := sess.platform.Stop(); err != nil {
		m.onError(sess, fmt.Errorf("recorder: stop session %s: %w", sess.platform.ID(), err))
	}
}

// ignoredLocked reports whether events of sess must be dropped: the session
// is finished, torn down, or belongs to a recording a fresh start replaced.
func (m *Machine) ignoredLocked(sess *session) bool {
	return sess.detached || sess.done || sess.epoch != m.epoch
}

func (m *Machine) onStart(sess *session, at time.Time) {
	m.mu.Lock()
	if m.ignoredLocked(sess) {
		m.mu.Unlock()
		return
	}
	sess.started = at
	if sess.fresh {
		m.result.StartTime = at
	}
	m.mu.Unlock()
	m.emitResult()
}

func (m *Machine) onData(sess *session, chunk []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ignoredLocked(sess) {
		return
	}
	sess.chunks = append(sess.chunks, append([]byte(nil), chunk...))
}

func (m *Machine) onStop(sess *session) {
	m.mu.Lock()
	if m.ignoredLocked(sess) {
		if sess.epoch != m.epoch && !sess.done {
			log.Debugf("recorder: dropped late stop of a previous recording")
		}
		sess.done = true
		sess.chunks = nil
		m.mu.Unlock()
		return
	}
	sess.done = true
	artifact := Artifact{
		Data:     bytes.Join(sess.chunks, nil),
		Segments: len(sess.chunks),
		Started:  sess.started,
		Stopped:  m.clock(),
	}
	if sess.platform != nil {
		artifact.SessionID = sess.platform.ID()
		artifact.MimeType = sess.platform.MimeType()
	}
	if artifact.MimeType == "" {
		artifact.MimeType = m.opts.MimeType
	}
	sess.chunks = nil
	m.result.Artifacts = append(m.result.Artifacts, artifact)
	if m.active == sess {
		m.active = nil
	}
	m.mu.Unlock()

	log.Debugf("recorder: session %s produced %d bytes from %d segments",
		artifact.SessionID, artifact.Size(), artifact.Segments)
	m.emitResult()
}

func (m *Machine) onError(sess *session, err error) {
	m.mu.Lock()
	if sess.detached || sess.done {
		m.mu.Unlock()
		return
	}
	sess.done = true
	sess.chunks = nil
	if m.active == sess {
		m.active = nil
	}
	m.mu.Unlock()

	log.Warnf("recorder: session failed: %v", err)
	m.emitError(err)
}

func (m *Machine) emitResult() {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	m.observer.ResultChanged(m.Result())
}

func (m *Machine) emitError(err error) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	m.observer.RecorderError(err)
}

// Result returns a copy of the current recording result.
func (m *Machine) Result() Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.result.clone()
}

// State reports whether a session is currently bound.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return StateRecording
	}
	return StateIdle
}

// Close tears the Machine down. A running session is stopped and its
// buffered data discarded; no artifact is produced for it. Close is safe to
// call more than once.
func (m *Machine) Close() {
	m.driveMu.Lock()
	defer m.driveMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sess := m.active
	m.active = nil
	m.inProgress = false
	if sess != nil {
		sess.detached = true
		sess.chunks = nil
	}
	m.mu.Unlock()

	if sess != nil && sess.platform != nil {
		if err := sess.platform.Stop(); err != nil {
			log.Debugf("recorder: stop on teardown: %v", err)
		}
	}
}
