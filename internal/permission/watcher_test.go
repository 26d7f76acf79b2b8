// SPDX-License-Identifier: MIT
package permission

import (
	"context"
	"errors"
	"testing"

	"capture/internal/media"
	"capture/internal/media/mediatest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherStartsAtPrompt(t *testing.T) {
	w := NewWatcher(&mediatest.Devices{}, nil)
	for _, n := range Names {
		assert.Equal(t, media.PermissionPrompt, w.States()[n])
	}
}

func TestRefreshQueriesEveryCapability(t *testing.T) {
	fake := &mediatest.Devices{Permissions: map[media.PermissionName]media.PermissionState{
		media.Microphone: media.PermissionGranted,
		media.Camera:     media.PermissionDenied,
	}}
	var notified []States
	w := NewWatcher(fake, func(s States) { notified = append(notified, s) })

	states := w.Refresh(context.Background())
	assert.Equal(t, media.PermissionGranted, states[media.Microphone])
	assert.Equal(t, media.PermissionDenied, states[media.Camera])
	assert.True(t, states.Granted(media.Microphone))
	assert.False(t, states.Granted(media.Camera))
	require.Len(t, notified, 1)
	assert.Equal(t, states, notified[0])
}

func TestRefreshFailureIsUnsupported(t *testing.T) {
	fake := &mediatest.Devices{PermErr: errors.New("permissions api unavailable")}
	w := NewWatcher(fake, nil)

	states := w.Refresh(context.Background())
	for _, n := range Names {
		assert.Equal(t, media.PermissionUnsupported, states[n])
	}
}

func TestStatesReturnsCopy(t *testing.T) {
	w := NewWatcher(&mediatest.Devices{}, nil)
	s := w.States()
	s[media.Camera] = media.PermissionGranted
	assert.Equal(t, media.PermissionPrompt, w.States()[media.Camera])
}

// blockingQuerier answers the first refresh only after the second has
// committed.
type blockingQuerier struct {
	release chan struct{}
	first   chan struct{}
	calls   chan struct{}
}

func (b *blockingQuerier) QueryPermission(ctx context.Context, name media.PermissionName) (media.PermissionState, error) {
	select {
	case <-b.first:
		b.calls <- struct{}{}
		<-b.release
		return media.PermissionDenied, nil
	default:
		return media.PermissionGranted, nil
	}
}

func TestStaleRefreshDiscarded(t *testing.T) {
	q := &blockingQuerier{
		release: make(chan struct{}),
		first:   make(chan struct{}),
		calls:   make(chan struct{}, len(Names)),
	}
	close(q.first)
	w := NewWatcher(q, nil)

	done := make(chan States)
	go func() { done <- w.Refresh(context.Background()) }()
	for range Names {
		<-q.calls
	}

	// Later queries answer immediately.
	q.first = make(chan struct{})
	fresh := w.Refresh(context.Background())
	assert.True(t, fresh.Granted(media.Microphone))

	close(q.release)
	stale := <-done
	assert.True(t, stale.Granted(media.Microphone))
	assert.True(t, w.States().Granted(media.Camera))
}
