// SPDX-License-Identifier: MIT
package transport

// Transport pushes observable outputs (levels, elapsed views, device lists,
// stream state) to UI collaborators. Implementations must be safe for
// concurrent use and must not block the caller.
type Transport interface {
	Send(msg Message) error
	Close() error
}

// Message is one observable update. Type names the output, Data is any
// JSON-encodable payload.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Message types published by the capture session.
const (
	TypeStream      = "stream"
	TypeError       = "error"
	TypeResult      = "result"
	TypeElapsed     = "elapsed"
	TypeLevel       = "level"
	TypeDevices     = "devices"
	TypePermissions = "permissions"
)

// Discard is a Transport that drops every message.
var Discard Transport = discard{}

type discard struct{}

func (discard) Send(Message) error { return nil }
func (discard) Close() error       { return nil }
