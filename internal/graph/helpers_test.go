// SPDX-License-Identifier: MIT
package graph

import (
	"sync"

	"capture/internal/media"
	"capture/internal/transport"
)

type videoOnly struct{}

func (videoOnly) ID() string            { return "video-only" }
func (videoOnly) Tracks() []media.Track { return nil }

type recordingTransport struct {
	mu   sync.Mutex
	sent []transport.Message
	err  error // Returned by Send after recording the message.
}

func (r *recordingTransport) Send(m transport.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, m)
	return r.err
}

func (r *recordingTransport) Close() error { return nil }

func (r *recordingTransport) messages() []transport.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transport.Message(nil), r.sent...)
}
