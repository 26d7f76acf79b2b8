// SPDX-License-Identifier: MIT
package graph

import (
	"sync"

	"capture/internal/media"
)

// SourceNode feeds the samples of one audio track into at most one
// analyser.
type SourceNode struct {
	ctx    *Context
	stream media.Stream
	track  media.AudioTrack

	mu          sync.Mutex
	dest        *AnalyserNode
	unsubscribe func()
}

// Context returns the context the node belongs to.
func (n *SourceNode) Context() *Context { return n.ctx }

// Stream returns the stream the node taps.
func (n *SourceNode) Stream() media.Stream { return n.stream }

// Connect routes the node into a. Connecting to the current destination is
// a no-op; connecting elsewhere drops the previous connection first.
func (n *SourceNode) Connect(a *AnalyserNode) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if a == nil || n.dest == a {
		return
	}
	n.disconnectLocked()
	channels := n.track.Format().Channels
	n.dest = a
	n.unsubscribe = n.track.Subscribe(func(samples []float32) {
		a.Write(samples, channels)
	})
}

// Disconnect removes the node's connection, if any.
func (n *SourceNode) Disconnect() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disconnectLocked()
}

func (n *SourceNode) disconnectLocked() {
	if n.unsubscribe != nil {
		n.unsubscribe()
	}
	n.unsubscribe = nil
	n.dest = nil
}

// Destination returns the connected analyser, nil when disconnected.
func (n *SourceNode) Destination() *AnalyserNode {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dest
}
