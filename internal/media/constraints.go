// SPDX-License-Identifier: MIT
/*
Package media holds the data model shared by the capture packages:
constraints, streams and tracks, device entries, permission states and the
interfaces of the host platform that actually owns the hardware.
*/
package media

import "strings"

// DefaultDevice is the device id that selects the platform default device.
const DefaultDevice = "default"

// noTrack marks an absent or disabled track in a constraint hash.
const noTrack = "-"

// TrackConstraint selects the input for one kind of track. A nil
// *TrackConstraint means the track is absent. Enabled with an empty DeviceID
// is the boolean form ("use the default device").
type TrackConstraint struct {
	Enabled  bool
	DeviceID string // Exact device identifier, empty for the default device.
}

// Default returns a track constraint for the platform default device.
func Default() *TrackConstraint {
	return &TrackConstraint{Enabled: true}
}

// Exact returns a track constraint pinned to a device id.
func Exact(deviceID string) *TrackConstraint {
	return &TrackConstraint{Enabled: true, DeviceID: deviceID}
}

// Requested reports whether the track should be captured.
func (t *TrackConstraint) Requested() bool {
	return t != nil && t.Enabled
}

// Device returns the effective device id, DefaultDevice when unpinned.
func (t *TrackConstraint) Device() string {
	if !t.Requested() {
		return ""
	}
	if t.DeviceID == "" {
		return DefaultDevice
	}
	return t.DeviceID
}

// Constraints describes the audio and video inputs to capture.
type Constraints struct {
	Audio *TrackConstraint
	Video *TrackConstraint
}

// Empty reports whether c is the "no stream" marker.
func (c *Constraints) Empty() bool {
	return c == nil || (!c.Audio.Requested() && !c.Video.Requested())
}

// Hash returns the equivalence key of c. Two constraint values with the same
// effective device selection hash identically, so {Audio: true} and
// {Audio: {DeviceID: "default"}} are equivalent.
func (c *Constraints) Hash() string {
	if c.Empty() {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("audio=")
	sb.WriteString(trackHash(c.Audio))
	sb.WriteString(";video=")
	sb.WriteString(trackHash(c.Video))
	return sb.String()
}

// Equivalent reports whether a and b select the same devices.
func Equivalent(a, b *Constraints) bool {
	return a.Hash() == b.Hash()
}

func trackHash(t *TrackConstraint) string {
	if !t.Requested() {
		return noTrack
	}
	return t.Device()
}
