// SPDX-License-Identifier: MIT
/*
Package stream owns the lifecycle of capture streams.

A Manager turns a sequence of constraint values into at most one live stream.
Requests are tagged with a generation number when issued; a platform response
is committed only if its generation is still the newest, otherwise the stream
it carries is stopped on arrival and never exposed. Every stream the manager
receives has exactly one stop path.
*/
package stream

import (
	"context"
	"sync"

	"capture/internal/log"
	"capture/internal/media"
)

// Observer receives the manager's observable outputs. Calls are serialized
// and never made while the manager's lock is held.
type Observer interface {
	StreamChanged(s media.Stream)
	StreamError(err error)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnChange func(s media.Stream)
	OnError  func(err error)
}

func (o ObserverFuncs) StreamChanged(s media.Stream) {
	if o.OnChange != nil {
		o.OnChange(s)
	}
}

func (o ObserverFuncs) StreamError(err error) {
	if o.OnError != nil {
		o.OnError(err)
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithObserver registers the observer notified of stream changes and errors.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// Manager acquires, supersedes and tears down capture streams.
type Manager struct {
	acquirer media.StreamAcquirer
	observer Observer

	mu         sync.Mutex
	generation uint64  // Generation of the newest issued request.
	requested  string  // Constraint hash of the newest issued request.
	current    *handle // The only handle that may be active.
	pending    *handle
	cancel     context.CancelFunc
	err        error
	closed     bool

	emitMu      sync.Mutex
	lastEmitted media.Stream

	inflight sync.WaitGroup
}

// New returns a Manager acquiring streams through acquirer.
func New(acquirer media.StreamAcquirer, opts ...Option) *Manager {
	m := &Manager{
		acquirer: acquirer,
		observer: ObserverFuncs{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire reconciles the manager with c. A nil or empty c releases the
// current stream immediately. Constraints equivalent to the newest request
// are ignored. Acquire never blocks on the platform.
func (m *Manager) Acquire(c *media.Constraints) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	hash := c.Hash()
	if hash == m.requested {
		m.mu.Unlock()
		return
	}

	m.generation++
	m.requested = hash
	m.abandonPendingLocked()

	if c.Empty() {
		old := m.current
		m.current = nil
		m.err = nil
		m.mu.Unlock()

		log.Debugf("stream: generation %d released current stream", m.Generation())
		if old != nil {
			old.stop()
		}
		m.emitChange()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := newHandle(m.generation, hash)
	m.pending = h
	m.cancel = cancel
	m.inflight.Add(1)
	h.setState(StatePending)
	constraints := *c
	m.mu.Unlock()

	log.Debugf("stream: generation %d requesting %s", h.generation, hash)
	go m.resolve(ctx, cancel, h, constraints)
}

// abandonPendingLocked logically cancels the in-flight request. Its result
// is stopped when it arrives.
func (m *Manager) abandonPendingLocked() {
	if m.cancel != nil {
		m.cancel()
	}
	m.pending = nil
	m.cancel = nil
}

func (m *Manager) resolve(ctx context.Context, cancel context.CancelFunc, h *handle, c media.Constraints) {
	defer m.inflight.Done()
	defer cancel()

	s, err := m.acquirer.AcquireStream(ctx, c)

	m.mu.Lock()
	if m.closed || h.generation != m.generation {
		m.mu.Unlock()
		h.setState(StateSuperseded)
		if s != nil {
			h.stream = s
			h.stop()
			log.Debugf("stream: generation %d resolved late, stopped %s", h.generation, s.ID())
		}
		return
	}

	m.pending = nil
	m.cancel = nil
	old := m.current

	if err != nil {
		m.current = nil
		m.err = err
		m.mu.Unlock()

		h.setState(StateFailed)
		if s != nil {
			h.stream = s
			h.stop()
		}
		if old != nil {
			old.stop()
		}
		log.Warnf("stream: generation %d acquisition failed: %v", h.generation, err)
		m.emitChange()
		m.emitError(err)
		return
	}

	h.stream = s
	h.setState(StateActive)
	m.current = h
	m.err = nil
	m.mu.Unlock()

	if old != nil {
		old.stop()
	}
	log.Debugf("stream: generation %d active, stream %s", h.generation, s.ID())
	m.emitChange()
}

// emitChange reports the current stream if it differs from the last one
// reported. Reading current under emitMu keeps the observer's final view
// equal to the manager's even when goroutines race to notify.
func (m *Manager) emitChange() {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	s := m.Current()
	if s == m.lastEmitted {
		return
	}
	m.lastEmitted = s
	m.observer.StreamChanged(s)
}

func (m *Manager) emitError(err error) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()
	m.observer.StreamError(err)
}

// Current returns the active stream, nil when there is none.
func (m *Manager) Current() media.Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current.stream
}

// State returns the lifecycle state of the newest request, StateStopped when
// nothing is requested.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.pending != nil:
		return m.pending.State()
	case m.current != nil:
		return m.current.State()
	case m.err != nil:
		return StateFailed
	default:
		return StateStopped
	}
}

// Err returns the failure of the newest request, if any.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Generation returns the sequence number of the newest issued request.
func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Wait blocks until every in-flight platform call has returned and its
// result has been committed or stopped.
func (m *Manager) Wait() {
	m.inflight.Wait()
}

// Close stops the current stream and discards any pending one. It is safe
// to call more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.generation++
	m.requested = ""
	m.abandonPendingLocked()
	old := m.current
	m.current = nil
	m.mu.Unlock()

	if old != nil {
		old.stop()
	}
	log.Debugf("stream: manager closed")
	m.emitChange()
}
