// SPDX-License-Identifier: MIT
package graph

import (
	"sync"
	"time"

	"capture/internal/log"
	"capture/internal/media"
)

// Level is one normalized audio level reading.
type Level struct {
	Value     float64   `json:"level"` // In [0, 1].
	Timestamp time.Time `json:"timestamp"`
}

// Accessor keeps a source node for the current stream connected to a single
// analyser. A context that is not ready yet is a normal state: every method
// then returns nil or a zero level.
type Accessor struct {
	provider Provider
	opts     AnalyserOptions

	mu       sync.Mutex
	ctx      *Context
	stream   media.Stream
	source   *SourceNode
	built    bool // A source was attempted for (ctx, stream).
	analyser *AnalyserNode
	bins     []uint8
}

// NewAccessor returns an accessor drawing contexts from p.
func NewAccessor(p Provider, opts AnalyserOptions) *Accessor {
	if p == nil {
		p = Shared()
	}
	return &Accessor{provider: p, opts: opts}
}

// Source returns the source node for s in the ready context. The node is
// reused while neither the context nor the stream changes.
func (a *Accessor) Source(s media.Stream) *SourceNode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sourceLocked(s)
}

func (a *Accessor) sourceLocked(s media.Stream) *SourceNode {
	ctx, ok := a.provider.Ready()
	if ok && a.built && a.ctx == ctx && a.stream == s {
		return a.source
	}

	if a.source != nil {
		a.source.Disconnect()
		a.source = nil
	}
	a.ctx, a.stream, a.built = ctx, s, false
	if !ok || s == nil {
		return nil
	}

	a.built = true
	src, err := ctx.CreateSource(s)
	if err != nil {
		log.Debugf("graph: no source for stream %s: %v", s.ID(), err)
		return nil
	}
	a.source = src
	if a.analyser != nil {
		src.Connect(a.analyser)
	}
	return src
}

// Analyser returns the accessor's analyser, creating it on the first call
// that finds a ready context, and makes sure the current source feeds it.
func (a *Accessor) Analyser() *AnalyserNode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.analyserLocked()
}

func (a *Accessor) analyserLocked() *AnalyserNode {
	if a.analyser == nil {
		ctx, ok := a.provider.Ready()
		if !ok {
			return nil
		}
		an, err := ctx.CreateAnalyser(a.opts)
		if err != nil {
			log.Warnf("graph: %v", err)
			return nil
		}
		a.analyser = an
		a.bins = make([]uint8, an.FrequencyBinCount())
	}
	if a.source != nil {
		a.source.Connect(a.analyser)
	}
	return a.analyser
}

// Update points the accessor at s and returns the analyser it feeds.
func (a *Accessor) Update(s media.Stream) *AnalyserNode {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sourceLocked(s)
	return a.analyserLocked()
}

// Level reduces the analyser's byte frequency data to its mean, normalized
// to [0, 1]. A context that became ready since the last call gets its nodes
// built first. Without an analyser the level is zero.
func (a *Accessor) Level(now time.Time) Level {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sourceLocked(a.stream)
	an := a.analyserLocked()
	if an == nil || len(a.bins) == 0 {
		return Level{Timestamp: now}
	}
	an.ByteFrequencyData(a.bins)
	var sum int
	for _, b := range a.bins {
		sum += int(b)
	}
	return Level{
		Value:     float64(sum) / float64(len(a.bins)) / 255,
		Timestamp: now,
	}
}

// Close disconnects the current source.
func (a *Accessor) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.source != nil {
		a.source.Disconnect()
		a.source = nil
	}
	a.stream, a.built = nil, false
}
