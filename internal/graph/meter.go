// SPDX-License-Identifier: MIT
package graph

import (
	"sync"
	"time"

	"capture/internal/interval"
	"capture/internal/log"
	"capture/internal/transport"
)

// LevelMeter samples an Accessor's level on a pausable interval and
// publishes each reading.
type LevelMeter struct {
	accessor  *Accessor
	transport transport.Transport
	clock     func() time.Time
	ticker    interval.Ticker

	mu   sync.Mutex
	last Level
}

// NewLevelMeter returns a paused meter. A nil transport discards readings.
func NewLevelMeter(a *Accessor, t transport.Transport) *LevelMeter {
	if t == nil {
		t = transport.Discard
	}
	return &LevelMeter{accessor: a, transport: t, clock: time.Now}
}

// SetInterval starts sampling every d; interval.Paused stops sampling and
// keeps the last reading.
func (m *LevelMeter) SetInterval(d time.Duration) {
	m.ticker.Set(d, func(time.Time) { m.Sample() })
}

// Sample takes one reading now and publishes it.
func (m *LevelMeter) Sample() Level {
	lvl := m.accessor.Level(m.clock())
	m.mu.Lock()
	m.last = lvl
	m.mu.Unlock()
	if err := m.transport.Send(transport.Message{Type: transport.TypeLevel, Data: lvl}); err != nil {
		log.Debugf("graph: publish level: %v", err)
	}
	return lvl
}

// Level returns the latest reading.
func (m *LevelMeter) Level() Level {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Close stops sampling.
func (m *LevelMeter) Close() {
	m.ticker.Stop()
}
