// SPDX-License-Identifier: MIT
/*
Package graph is a small audio processing graph: a Context creates source
nodes that tap a capture stream and analyser nodes that turn the samples
into frequency data. An Accessor keeps one source and one analyser wired to
the current stream and reduces the analyser output to a level reading.

A Context starts suspended and only becomes usable after Resume, which
models the user gesture hosts require before audio processing may start.
Consumers get a Context through a Provider: Shared for the process-wide
context, or a Scope for an explicitly injected one.
*/
package graph

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"capture/internal/log"
	"capture/internal/media"

	"github.com/google/uuid"
)

// DefaultSampleRate is used for contexts created without an explicit rate.
const DefaultSampleRate = 48000

var (
	ErrContextClosed = errors.New("audio context closed")
	ErrNoAudioTrack  = errors.New("stream has no audio track")
)

// ContextState mirrors the lifecycle of a host audio context.
type ContextState string

const (
	StateSuspended ContextState = "suspended"
	StateRunning   ContextState = "running"
	StateClosed    ContextState = "closed"
)

// Context owns the nodes of one processing graph.
type Context struct {
	id         string
	sampleRate float64

	mu    sync.Mutex
	state ContextState
}

// NewContext returns a suspended context.
func NewContext(sampleRate float64) *Context {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Context{
		id:         uuid.NewString(),
		sampleRate: sampleRate,
		state:      StateSuspended,
	}
}

func (c *Context) ID() string { return c.id }

func (c *Context) SampleRate() float64 { return c.sampleRate }

// State returns the current lifecycle state.
func (c *Context) State() ContextState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Resume moves a suspended context to running.
func (c *Context) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return ErrContextClosed
	}
	c.state = StateRunning
	return nil
}

// Close ends the context for good.
func (c *Context) Close() {
	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()
}

// CreateSource returns a node tapping the first audio track of s.
func (c *Context) CreateSource(s media.Stream) (*SourceNode, error) {
	if c.State() == StateClosed {
		return nil, ErrContextClosed
	}
	tracks := media.AudioTracks(s)
	if len(tracks) == 0 {
		return nil, ErrNoAudioTrack
	}
	return &SourceNode{ctx: c, stream: s, track: tracks[0]}, nil
}

// CreateAnalyser returns an analyser configured by opts.
func (c *Context) CreateAnalyser(opts AnalyserOptions) (*AnalyserNode, error) {
	if c.State() == StateClosed {
		return nil, ErrContextClosed
	}
	a, err := newAnalyser(opts)
	if err != nil {
		return nil, fmt.Errorf("create analyser: %w", err)
	}
	return a, nil
}

// Provider hands out a context once it is ready for processing.
type Provider interface {
	Ready() (*Context, bool)
}

// Scope is an explicitly injected context, overriding the shared one.
type Scope struct {
	ctx *Context
}

// NewScope wraps ctx as a Provider.
func NewScope(ctx *Context) *Scope {
	return &Scope{ctx: ctx}
}

func (s *Scope) Ready() (*Context, bool) {
	if s == nil || s.ctx == nil || s.ctx.State() != StateRunning {
		return nil, false
	}
	return s.ctx, true
}

var shared struct {
	mu  sync.Mutex
	ctx atomic.Pointer[Context]
}

type sharedProvider struct{}

// Shared returns the Provider of the process-wide context. It reports not
// ready until Unlock has been called.
func Shared() Provider { return sharedProvider{} }

func (sharedProvider) Ready() (*Context, bool) {
	ctx := shared.ctx.Load()
	if ctx == nil || ctx.State() != StateRunning {
		return nil, false
	}
	return ctx, true
}

// Unlock creates the process-wide context on first use and resumes it.
// Hosts call it from the first user gesture. A closed shared context is
// replaced by a fresh one.
func Unlock(sampleRate float64) (*Context, error) {
	shared.mu.Lock()
	defer shared.mu.Unlock()

	ctx := shared.ctx.Load()
	if ctx == nil || ctx.State() == StateClosed {
		ctx = NewContext(sampleRate)
		shared.ctx.Store(ctx)
		log.Debugf("graph: shared context %s created (%.0f Hz)", ctx.ID(), ctx.SampleRate())
	}
	if err := ctx.Resume(); err != nil {
		return nil, err
	}
	return ctx, nil
}
