// SPDX-License-Identifier: MIT
package media

import (
	"context"
	"errors"
	"time"
)

// Errors reported by platform implementations. Callers test them with errors.Is.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrDeviceBusy       = errors.New("device busy")
	ErrUnsupported      = errors.New("not supported by platform")
	ErrNoStream         = errors.New("no stream")
)

// DeviceLister enumerates the hardware visible to the platform.
type DeviceLister interface {
	EnumerateDevices(ctx context.Context) ([]DeviceInfo, error)
}

// StreamAcquirer opens a capture stream matching the constraints. Acquiring
// doubles as the permission request.
type StreamAcquirer interface {
	AcquireStream(ctx context.Context, c Constraints) (Stream, error)
}

// PermissionQuerier reports the current permission state of a capability.
type PermissionQuerier interface {
	QueryPermission(ctx context.Context, name PermissionName) (PermissionState, error)
}

// RecordOptions configure a recorder session.
type RecordOptions struct {
	MimeType  string        // Hint; the platform decides what it can produce.
	TimeSlice time.Duration // Data delivery cadence, zero for a single delivery at stop.
}

// SessionEvents are the callbacks a recorder session reports through. A
// session calls OnStart once, OnData zero or more times, and OnStop once
// after the last OnData. OnError may replace OnStop when the session fails.
type SessionEvents struct {
	OnStart func(at time.Time)
	OnData  func(chunk []byte)
	OnStop  func()
	OnError func(err error)
}

// Session is one platform recorder bound to a stream.
type Session interface {
	ID() string
	MimeType() string
	Start() error
	Stop() error
}

// RecorderFactory creates recorder sessions.
type RecorderFactory interface {
	NewSession(s Stream, opts RecordOptions, events SessionEvents) (Session, error)
}

// Platform is everything the capture core needs from the host.
type Platform interface {
	DeviceLister
	StreamAcquirer
	PermissionQuerier
	RecorderFactory
}
