// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"

	"capture/internal/log"
)

// LoggingTransport writes every message to the debug log. It backs headless
// runs where no UI is attached.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	log.Debugf("transport: using logging transport")
	return &LoggingTransport{}
}

// Send logs the message as JSON, falling back to %+v when it cannot be encoded.
func (lt *LoggingTransport) Send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Debugf("transport: %s %+v (encode: %v)", msg.Type, msg.Data, err)
		return nil
	}
	log.Debugf("transport: %s", data)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
