// SPDX-License-Identifier: MIT
// Package permission tracks the permission state of the capture
// capabilities.
package permission

import (
	"context"
	"sync"

	"capture/internal/log"
	"capture/internal/media"

	"golang.org/x/sync/errgroup"
)

// Names are the capabilities a Watcher queries.
var Names = []media.PermissionName{media.Camera, media.Microphone}

// States maps each capability to its last known state.
type States map[media.PermissionName]media.PermissionState

// Granted reports whether name is known to be granted.
func (s States) Granted(name media.PermissionName) bool {
	return s[name] == media.PermissionGranted
}

func unknown() States {
	out := make(States, len(Names))
	for _, n := range Names {
		out[n] = media.PermissionPrompt
	}
	return out
}

// Watcher holds the last committed permission states. Stream acquisition
// never consults it; it only feeds observers such as device selection.
type Watcher struct {
	querier media.PermissionQuerier
	notify  func(States)

	mu     sync.Mutex
	states States
	gen    uint64
}

// NewWatcher returns a watcher reporting every capability as prompt until
// the first Refresh.
func NewWatcher(q media.PermissionQuerier, notify func(States)) *Watcher {
	return &Watcher{querier: q, notify: notify, states: unknown()}
}

// Refresh queries every capability concurrently. A failed query is logged
// and recorded as unsupported. A refresh overtaken by a newer one is
// dropped.
func (w *Watcher) Refresh(ctx context.Context) States {
	w.mu.Lock()
	w.gen++
	gen := w.gen
	w.mu.Unlock()

	results := make([]media.PermissionState, len(Names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range Names {
		g.Go(func() error {
			st, err := w.querier.QueryPermission(gctx, name)
			if err != nil {
				log.Warnf("permission: query %s: %v", name, err)
				st = media.PermissionUnsupported
			}
			results[i] = st
			return nil
		})
	}
	_ = g.Wait()

	next := make(States, len(Names))
	for i, name := range Names {
		next[name] = results[i]
	}

	w.mu.Lock()
	if gen != w.gen {
		current := w.states.clone()
		w.mu.Unlock()
		return current
	}
	w.states = next
	notify := w.notify
	w.mu.Unlock()

	if notify != nil {
		notify(next.clone())
	}
	return next.clone()
}

// States returns a copy of the last committed states.
func (w *Watcher) States() States {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.states.clone()
}

func (s States) clone() States {
	out := make(States, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
