// SPDX-License-Identifier: MIT
package stream

import (
	"sync"
	"sync/atomic"

	"capture/internal/media"
)

// State is the lifecycle position of one acquisition.
type State int32

const (
	StateRequested State = iota
	StatePending
	StateActive
	StateSuperseded // Resolved after a newer request was issued.
	StateFailed
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRequested:
		return "requested"
	case StatePending:
		return "pending"
	case StateActive:
		return "active"
	case StateSuperseded:
		return "superseded"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// handle pairs one acquisition request with the stream it produced. Its
// stream is stopped at most once no matter how many paths reach stop.
type handle struct {
	generation uint64
	hash       string

	stream   media.Stream
	state    atomic.Int32
	stopOnce sync.Once
}

func newHandle(generation uint64, hash string) *handle {
	h := &handle{generation: generation, hash: hash}
	h.setState(StateRequested)
	return h
}

func (h *handle) setState(s State) { h.state.Store(int32(s)) }

func (h *handle) State() State { return State(h.state.Load()) }

// stop releases the hardware held by the handle's stream.
func (h *handle) stop() {
	h.stopOnce.Do(func() {
		media.StopStream(h.stream)
		h.setState(StateStopped)
	})
}
