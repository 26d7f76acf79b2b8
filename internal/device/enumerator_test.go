// SPDX-License-Identifier: MIT
package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"capture/internal/media"
	"capture/internal/media/mediatest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDevices = []media.DeviceInfo{
	{DeviceID: "mic-1", Kind: media.AudioInput, Label: "Built-in Microphone"},
	{DeviceID: "mic-2", Kind: media.AudioInput, Label: "USB Microphone"},
	{DeviceID: "cam-1", Kind: media.VideoInput, Label: "FaceTime HD"},
	{DeviceID: "spk-1", Kind: media.AudioOutput, Label: "Speakers"},
}

func TestListSplitsByKind(t *testing.T) {
	fake := &mediatest.Devices{List: testDevices}
	e := New(fake)

	lists := e.List(context.Background(), true)
	assert.Len(t, lists.AudioInputs, 2)
	assert.Len(t, lists.VideoInputs, 1)
	assert.Len(t, lists.AudioOutputs, 1)
	assert.Equal(t, "USB Microphone", lists.AudioInputs[1].Label)
	assert.Equal(t, 4, lists.Len())
}

func TestListHidesLabelsWithoutPermission(t *testing.T) {
	e := New(&mediatest.Devices{List: testDevices})

	lists := e.List(context.Background(), false)
	require.Len(t, lists.AudioInputs, 2)
	for _, d := range lists.AudioInputs {
		assert.Empty(t, d.Label)
		assert.NotEmpty(t, d.DeviceID)
	}
}

func TestListReenumeratesOnFlagChange(t *testing.T) {
	fake := &mediatest.Devices{List: testDevices}
	e := New(fake)
	ctx := context.Background()

	e.List(ctx, false)
	e.List(ctx, false)
	assert.Equal(t, 1, fake.CallCount())

	lists := e.List(ctx, true)
	assert.Equal(t, 2, fake.CallCount())
	assert.Equal(t, "Built-in Microphone", lists.AudioInputs[0].Label)
}

func TestEmptyBeforeEnumerationAndOnFailure(t *testing.T) {
	fake := &mediatest.Devices{List: testDevices}
	e := New(fake)
	assert.Equal(t, Empty(), e.Current())

	e.List(context.Background(), true)
	require.Equal(t, 4, e.Current().Len())

	fake.Set(nil, errors.New("not allowed"))
	lists := e.Reload(context.Background())
	assert.Equal(t, Empty(), lists)
	assert.NotNil(t, lists.AudioInputs)
}

func TestNotifyReceivesCommittedLists(t *testing.T) {
	var got []Lists
	e := New(&mediatest.Devices{List: testDevices}, WithNotify(func(l Lists) { got = append(got, l) }))

	e.List(context.Background(), true)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].Len())
}

// gatedLister blocks each enumeration until the test releases it.
type gatedLister struct {
	calls chan chan []media.DeviceInfo
}

func (g *gatedLister) EnumerateDevices(ctx context.Context) ([]media.DeviceInfo, error) {
	reply := make(chan []media.DeviceInfo)
	g.calls <- reply
	return <-reply, nil
}

func TestStaleEnumerationDiscarded(t *testing.T) {
	g := &gatedLister{calls: make(chan chan []media.DeviceInfo)}
	e := New(g)
	ctx := context.Background()

	firstDone := make(chan Lists)
	go func() { firstDone <- e.Reload(ctx) }()
	first := <-g.calls

	secondDone := make(chan Lists)
	go func() { secondDone <- e.Reload(ctx) }()
	second := <-g.calls

	second <- testDevices[:1]
	<-secondDone
	first <- testDevices

	stale := <-firstDone
	assert.Equal(t, 1, stale.Len())
	assert.Equal(t, 1, e.Current().Len())
}

func TestWatchReloadsOnChange(t *testing.T) {
	fake := &mediatest.Devices{List: testDevices[:1]}
	e := New(fake)
	ctx, cancel := context.WithCancel(context.Background())
	e.List(ctx, true)

	changes := make(chan struct{})
	done := make(chan struct{})
	go func() {
		e.Watch(ctx, changes)
		close(done)
	}()

	fake.Set(testDevices, nil)
	changes <- struct{}{}
	require.Eventually(t, func() bool { return e.Current().Len() == 4 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchReturnsWhenChannelCloses(t *testing.T) {
	e := New(&mediatest.Devices{})
	changes := make(chan struct{})
	close(changes)
	e.Watch(context.Background(), changes)
}
