// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"capture/internal/log"
	"capture/internal/media"

	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"
)

// inputStream is the part of *portaudio.Stream a track drives.
type inputStream interface {
	Start() error
	Stop() error
	Close() error
}

var paLibOpenStream = func(params portaudio.StreamParameters, cb func(in []float32)) (inputStream, error) {
	return portaudio.OpenStream(params, cb)
}

// AcquireStream opens and starts an input stream on the requested audio
// device.
func (p *Platform) AcquireStream(ctx context.Context, c media.Constraints) (media.Stream, error) {
	if c.Video.Requested() {
		return nil, fmt.Errorf("%w: video capture", media.ErrUnsupported)
	}
	if !c.Audio.Requested() {
		return nil, media.ErrNoStream
	}
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	device, err := inputDevice(c.Audio.Device())
	if err != nil {
		return nil, err
	}
	logDevice(device)

	channels := p.opts.Channels
	if device.MaxInputChannels < channels {
		channels = device.MaxInputChannels
	}
	latency := device.DefaultHighInputLatency
	if p.opts.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	track := &captureTrack{
		id:     uuid.NewString(),
		label:  device.Name,
		format: media.AudioFormat{SampleRate: p.opts.SampleRate, Channels: channels},
		subs:   make(map[uint64]func([]float32)),
	}
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: channels,
			Device:   device,
			Latency:  latency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: p.opts.FramesPerBuffer,
		SampleRate:      p.opts.SampleRate,
	}

	stream, err := paLibOpenStream(params, track.process)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", media.ErrDeviceBusy, DeviceID(device), err)
	}
	track.stream = stream
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("%w: start %s: %v", media.ErrDeviceBusy, DeviceID(device), err)
	}

	s := &captureStream{id: uuid.NewString(), track: track}
	log.Debugf("audio: stream %s started on %q", s.id, DeviceID(device))
	return s, nil
}

type captureStream struct {
	id    string
	track *captureTrack
}

func (s *captureStream) ID() string            { return s.id }
func (s *captureStream) Tracks() []media.Track { return []media.Track{s.track} }

// captureTrack fans the buffers of one PortAudio input stream out to its
// subscribers.
type captureTrack struct {
	id     string
	label  string
	format media.AudioFormat
	stream inputStream

	mu   sync.RWMutex
	subs map[uint64]func([]float32)
	next uint64

	stopOnce sync.Once
	stopped  atomic.Bool
	frames   atomic.Uint64
}

var _ media.AudioTrack = (*captureTrack)(nil)

func (t *captureTrack) ID() string                { return t.id }
func (t *captureTrack) Kind() media.TrackKind     { return media.KindAudio }
func (t *captureTrack) Label() string             { return t.label }
func (t *captureTrack) Format() media.AudioFormat { return t.format }
func (t *captureTrack) Stopped() bool             { return t.stopped.Load() }

// Duration returns how much audio the track has delivered.
func (t *captureTrack) Duration() time.Duration {
	if t.format.SampleRate <= 0 {
		return 0
	}
	secs := float64(t.frames.Load()) / t.format.SampleRate
	return time.Duration(secs * float64(time.Second))
}

func (t *captureTrack) Subscribe(fn func([]float32)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.next
	t.next++
	t.subs[id] = fn
	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// process is the PortAudio callback. in is reused by PortAudio after the
// call returns.
func (t *captureTrack) process(in []float32) {
	if t.stopped.Load() {
		return
	}
	if t.format.Channels > 0 {
		t.frames.Add(uint64(len(in) / t.format.Channels))
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, fn := range t.subs {
		fn(in)
	}
}

// Stop stops and closes the PortAudio stream. Only the first call has an
// effect.
func (t *captureTrack) Stop() {
	t.stopOnce.Do(func() {
		t.stopped.Store(true)
		if t.stream == nil {
			return
		}
		if err := t.stream.Stop(); err != nil {
			log.Warnf("audio: stop track %s: %v", t.id, err)
		}
		if err := t.stream.Close(); err != nil {
			log.Warnf("audio: close track %s: %v", t.id, err)
		}
		log.Debugf("audio: track %s stopped after %s", t.id, t.Duration().Round(time.Millisecond))
	})
}
