// SPDX-License-Identifier: MIT
/*
Package audio is the PortAudio host platform: it enumerates devices, opens
capture streams and records them into PCM chunks for the capture core.

PortAudio has no camera support, so video constraints are refused with
media.ErrUnsupported.

Thread Safety:
- Capture callbacks run on PortAudio's thread and fan out without allocating
- Track and session state is guarded by mutexes, stops happen exactly once
*/
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"capture/internal/log"
	"capture/internal/media"

	"github.com/gordonklaus/portaudio"
)

// PortAudio entry points, swapped in tests.
var (
	paLibInitialize             = portaudio.Initialize
	paLibTerminate              = portaudio.Terminate
	paLibDevicesFunc            = portaudio.Devices
	paLibDefaultInputDeviceFunc = portaudio.DefaultInputDevice
)

// Initialize sets up the PortAudio subsystem.
// This must be called before any audio operations and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// Options configure the streams a Platform opens.
type Options struct {
	SampleRate      float64
	Channels        int
	FramesPerBuffer int
	LowLatency      bool
}

// DefaultOptions are mono 48 kHz with 512-frame buffers.
func DefaultOptions() Options {
	return Options{SampleRate: 48000, Channels: 1, FramesPerBuffer: 512, LowLatency: true}
}

// Platform implements media.Platform on top of PortAudio. Open must succeed
// before any other method is used.
type Platform struct {
	opts Options

	mu   sync.Mutex
	open bool
}

var _ media.Platform = (*Platform)(nil)

var errNotOpen = errors.New("audio platform not open")

// NewPlatform returns a closed platform.
func NewPlatform(opts Options) *Platform {
	def := DefaultOptions()
	if opts.SampleRate <= 0 {
		opts.SampleRate = def.SampleRate
	}
	if opts.Channels <= 0 {
		opts.Channels = def.Channels
	}
	if opts.FramesPerBuffer <= 0 {
		opts.FramesPerBuffer = def.FramesPerBuffer
	}
	return &Platform{opts: opts}
}

// Options returns the effective stream options.
func (p *Platform) Options() Options { return p.opts }

// Open initializes PortAudio. Calling Open on an open platform is a no-op.
func (p *Platform) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.open {
		return nil
	}
	if err := Initialize(); err != nil {
		return err
	}
	p.open = true
	return nil
}

// Close terminates PortAudio. Streams must be stopped first.
func (p *Platform) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return nil
	}
	p.open = false
	return Terminate()
}

func (p *Platform) checkOpen() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.open {
		return errNotOpen
	}
	return nil
}

// DeviceID is the stable identifier of a PortAudio device: host API name
// and device name. PortAudio indexes shift when hardware changes.
func DeviceID(d *portaudio.DeviceInfo) string {
	if d.HostApi == nil {
		return d.Name
	}
	return d.HostApi.Name + ":" + d.Name
}

// EnumerateDevices lists one audioinput entry per device with input
// channels and one audiooutput entry per device with output channels.
func (p *Platform) EnumerateDevices(ctx context.Context) ([]media.DeviceInfo, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	devices, err := paDevices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}

	out := make([]media.DeviceInfo, 0, len(devices))
	for _, d := range devices {
		id := DeviceID(d)
		if d.MaxInputChannels > 0 {
			out = append(out, media.DeviceInfo{DeviceID: id, Kind: media.AudioInput, Label: d.Name, GroupID: id})
		}
		if d.MaxOutputChannels > 0 {
			out = append(out, media.DeviceInfo{DeviceID: id, Kind: media.AudioOutput, Label: d.Name, GroupID: id})
		}
	}
	return out, nil
}

// QueryPermission reports the microphone as granted when an input device is
// available. Camera access is unsupported.
func (p *Platform) QueryPermission(ctx context.Context, name media.PermissionName) (media.PermissionState, error) {
	if name != media.Microphone {
		return media.PermissionUnsupported, nil
	}
	if err := p.checkOpen(); err != nil {
		return "", err
	}
	if _, err := inputDevice(media.DefaultDevice); err != nil {
		return media.PermissionDenied, nil
	}
	return media.PermissionGranted, nil
}

// inputDevice resolves a device id to a PortAudio input device. The
// DefaultDevice id selects the system default input.
func inputDevice(id string) (*portaudio.DeviceInfo, error) {
	if id == "" || id == media.DefaultDevice {
		d, err := paLibDefaultInputDeviceFunc()
		if err != nil {
			return nil, fmt.Errorf("%w: default input: %v", media.ErrDeviceNotFound, err)
		}
		return d, nil
	}

	devices, err := paDevices()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if DeviceID(d) != id {
			continue
		}
		if d.MaxInputChannels == 0 {
			return nil, fmt.Errorf("%w: %s does not support input", media.ErrDeviceNotFound, id)
		}
		return d, nil
	}
	return nil, fmt.Errorf("%w: %s", media.ErrDeviceNotFound, id)
}

// paDevices returns all available PortAudio devices, never a nil slice on
// success.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}

func logDevice(d *portaudio.DeviceInfo) {
	l := log.Component("audio")
	l.Debug().
		Str("device", DeviceID(d)).
		Int("channels", d.MaxInputChannels).
		Float64("rate", d.DefaultSampleRate).
		Dur("low_latency", d.DefaultLowInputLatency).
		Dur("high_latency", d.DefaultHighInputLatency).
		Msg("input device")
}
