// SPDX-License-Identifier: MIT
// Package device keeps the categorized list of capture and playback devices
// current.
package device

import (
	"context"
	"sync"

	"capture/internal/log"
	"capture/internal/media"
)

// Lists is the device list split by kind. All three slices are non-nil.
type Lists struct {
	AudioInputs  []media.DeviceInfo `json:"audioInputs"`
	VideoInputs  []media.DeviceInfo `json:"videoInputs"`
	AudioOutputs []media.DeviceInfo `json:"audioOutputs"`
}

// Empty returns lists with no devices.
func Empty() Lists {
	return Lists{
		AudioInputs:  []media.DeviceInfo{},
		VideoInputs:  []media.DeviceInfo{},
		AudioOutputs: []media.DeviceInfo{},
	}
}

// Len returns the total number of devices.
func (l Lists) Len() int {
	return len(l.AudioInputs) + len(l.VideoInputs) + len(l.AudioOutputs)
}

func split(devices []media.DeviceInfo, granted bool) Lists {
	out := Empty()
	for _, d := range devices {
		// Hosts only expose labels once capture has been permitted.
		if !granted {
			d.Label = ""
		}
		switch d.Kind {
		case media.AudioInput:
			out.AudioInputs = append(out.AudioInputs, d)
		case media.VideoInput:
			out.VideoInputs = append(out.VideoInputs, d)
		case media.AudioOutput:
			out.AudioOutputs = append(out.AudioOutputs, d)
		}
	}
	return out
}

// Option configures an Enumerator.
type Option func(*Enumerator)

// WithNotify registers fn to receive every committed list.
func WithNotify(fn func(Lists)) Option {
	return func(e *Enumerator) { e.notify = fn }
}

// Enumerator caches the last successful enumeration. Enumeration failures
// are logged and leave it with empty lists. When enumerations overlap only
// the most recently started one is committed.
type Enumerator struct {
	lister media.DeviceLister
	notify func(Lists)

	mu      sync.Mutex
	lists   Lists
	loaded  bool
	granted bool
	gen     uint64
}

// New returns an enumerator that has not enumerated yet.
func New(lister media.DeviceLister, opts ...Option) *Enumerator {
	e := &Enumerator{lister: lister, lists: Empty()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// List returns the device lists for the given permission state,
// re-enumerating on the first call and whenever the flag changes.
func (e *Enumerator) List(ctx context.Context, permissionGranted bool) Lists {
	e.mu.Lock()
	if e.loaded && e.granted == permissionGranted {
		lists := e.lists
		e.mu.Unlock()
		return lists
	}
	e.granted = permissionGranted
	e.mu.Unlock()
	return e.Reload(ctx)
}

// Reload enumerates again with the last permission flag and returns the
// lists current afterwards.
func (e *Enumerator) Reload(ctx context.Context) Lists {
	e.mu.Lock()
	e.gen++
	gen := e.gen
	granted := e.granted
	e.mu.Unlock()

	devices, err := e.lister.EnumerateDevices(ctx)

	e.mu.Lock()
	if gen != e.gen {
		lists := e.lists
		e.mu.Unlock()
		log.Debugf("device: discarding stale enumeration %d", gen)
		return lists
	}
	if err != nil {
		log.Warnf("device: enumeration failed: %v", err)
		e.lists = Empty()
	} else {
		e.lists = split(devices, granted)
	}
	e.loaded = true
	lists := e.lists
	notify := e.notify
	e.mu.Unlock()

	if notify != nil {
		notify(lists)
	}
	return lists
}

// Current returns the cached lists without enumerating.
func (e *Enumerator) Current() Lists {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lists
}

// Watch re-enumerates on every hardware change notification until ctx is
// done or changes is closed.
func (e *Enumerator) Watch(ctx context.Context, changes <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			log.Debugf("device: hardware change")
			e.Reload(ctx)
		}
	}
}
