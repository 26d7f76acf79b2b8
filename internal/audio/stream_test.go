// SPDX-License-Identifier: MIT
package audio

import (
	"context"
	"errors"
	"sync"
	"testing"

	"capture/internal/media"

	"github.com/gordonklaus/portaudio"
)

type fakeInputStream struct {
	mu       sync.Mutex
	started  int
	stopped  int
	closed   int
	startErr error
}

func (f *fakeInputStream) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	return f.startErr
}

func (f *fakeInputStream) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
	return nil
}

func (f *fakeInputStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// withFakeStream captures the parameters and callback of the next opened
// stream.
func withFakeStream(t *testing.T, fake *fakeInputStream) (*portaudio.StreamParameters, *func([]float32)) {
	t.Helper()
	orig := paLibOpenStream
	t.Cleanup(func() { paLibOpenStream = orig })

	var params portaudio.StreamParameters
	var cb func([]float32)
	paLibOpenStream = func(p portaudio.StreamParameters, fn func([]float32)) (inputStream, error) {
		params, cb = p, fn
		return fake, nil
	}
	return &params, &cb
}

func TestAcquireStream(t *testing.T) {
	withFakePortAudio(t, []*portaudio.DeviceInfo{testMic, testInterface})
	fake := &fakeInputStream{}
	params, cb := withFakeStream(t, fake)
	p := openPlatform(t)

	s, err := p.AcquireStream(context.Background(), media.Constraints{Audio: media.Exact("Core Audio:USB Interface")})
	if err != nil {
		t.Fatalf("AcquireStream error: %v", err)
	}
	if params.Input.Device != testInterface {
		t.Errorf("opened %s, want USB Interface", params.Input.Device.Name)
	}
	if params.Input.Channels != 1 {
		t.Errorf("channels = %d, want clamped to 1", params.Input.Channels)
	}
	if fake.started != 1 {
		t.Errorf("stream started %d times, want 1", fake.started)
	}

	tracks := media.AudioTracks(s)
	if len(tracks) != 1 {
		t.Fatalf("got %d audio tracks, want 1", len(tracks))
	}
	track := tracks[0]
	if track.Label() != "USB Interface" {
		t.Errorf("label = %q", track.Label())
	}

	var got []float32
	unsubscribe := track.Subscribe(func(in []float32) { got = append(got, in...) })
	(*cb)([]float32{0.1, 0.2})
	unsubscribe()
	(*cb)([]float32{0.3})
	if len(got) != 2 {
		t.Errorf("subscriber got %v, want 2 samples", got)
	}

	media.StopStream(s)
	media.StopStream(s)
	if fake.stopped != 1 || fake.closed != 1 {
		t.Errorf("stop/close = %d/%d, want 1/1", fake.stopped, fake.closed)
	}
	if !track.Stopped() || media.Active(s) {
		t.Error("track should be stopped")
	}
}

func TestAcquireStreamErrors(t *testing.T) {
	withFakePortAudio(t, []*portaudio.DeviceInfo{testMic})
	p := openPlatform(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		c       media.Constraints
		wantErr error
	}{
		{"video", media.Constraints{Audio: media.Default(), Video: media.Default()}, media.ErrUnsupported},
		{"no audio", media.Constraints{}, media.ErrNoStream},
		{"unknown device", media.Constraints{Audio: media.Exact("Core Audio:Missing")}, media.ErrDeviceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.AcquireStream(ctx, tt.c)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAcquireStreamStartFailure(t *testing.T) {
	withFakePortAudio(t, []*portaudio.DeviceInfo{testMic})
	fake := &fakeInputStream{startErr: errors.New("device in use")}
	withFakeStream(t, fake)
	p := openPlatform(t)

	_, err := p.AcquireStream(context.Background(), media.Constraints{Audio: media.Default()})
	if !errors.Is(err, media.ErrDeviceBusy) {
		t.Errorf("error = %v, want ErrDeviceBusy", err)
	}
	if fake.closed != 1 {
		t.Errorf("stream closed %d times, want 1", fake.closed)
	}
}

func TestAcquireStreamCancelled(t *testing.T) {
	withFakePortAudio(t, []*portaudio.DeviceInfo{testMic})
	p := openPlatform(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.AcquireStream(ctx, media.Constraints{Audio: media.Default()}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
