// SPDX-License-Identifier: MIT
package media

// DeviceKind classifies a device entry.
type DeviceKind string

const (
	AudioInput  DeviceKind = "audioinput"
	VideoInput  DeviceKind = "videoinput"
	AudioOutput DeviceKind = "audiooutput"
)

// DeviceInfo is one hardware entry reported by the platform.
type DeviceInfo struct {
	DeviceID string     `json:"deviceId"`
	Kind     DeviceKind `json:"kind"`
	Label    string     `json:"label"`
	GroupID  string     `json:"groupId,omitempty"`
}

// PermissionName identifies a capability guarded by a permission prompt.
type PermissionName string

const (
	Camera     PermissionName = "camera"
	Microphone PermissionName = "microphone"
)

// PermissionState is the platform's answer to a permission query.
type PermissionState string

const (
	PermissionGranted     PermissionState = "granted"
	PermissionDenied      PermissionState = "denied"
	PermissionPrompt      PermissionState = "prompt"
	PermissionUnsupported PermissionState = "unsupported"
)
