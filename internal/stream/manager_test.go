// SPDX-License-Identifier: MIT
package stream

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capture/internal/media"
	"capture/internal/media/mediatest"
)

// recorder collects observer notifications.
type recorder struct {
	mu      sync.Mutex
	changes []media.Stream
	errs    []error
	changed chan media.Stream
}

func newRecorder() *recorder {
	return &recorder{changed: make(chan media.Stream, 64)}
}

func (r *recorder) StreamChanged(s media.Stream) {
	r.mu.Lock()
	r.changes = append(r.changes, s)
	r.mu.Unlock()
	r.changed <- s
}

func (r *recorder) StreamError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *recorder) waitFor(t *testing.T, want media.Stream) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case s := <-r.changed:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("stream %v never became current", want)
		}
	}
}

func (r *recorder) errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func newTestManager(t *testing.T) (*Manager, *mediatest.Acquirer, *recorder) {
	t.Helper()
	acq := mediatest.NewAcquirer()
	obs := newRecorder()
	m := New(acq, WithObserver(obs))
	t.Cleanup(func() {
		m.Close()
	})
	return m, acq, obs
}

func audio() *media.Constraints { return &media.Constraints{Audio: media.Default()} }

func mic(id string) *media.Constraints { return &media.Constraints{Audio: media.Exact(id)} }

func TestAcquireCommitsStream(t *testing.T) {
	m, acq, obs := newTestManager(t)

	m.Acquire(audio())
	req, err := acq.Next()
	require.NoError(t, err)
	assert.Equal(t, StatePending, m.State())
	assert.Nil(t, m.Current())

	a := mediatest.NewStream("A", false)
	req.Resolve(a)
	obs.waitFor(t, a)

	assert.Equal(t, a, m.Current())
	assert.Equal(t, StateActive, m.State())
	assert.Equal(t, 0, a.Stops())
}

func TestLastRequestWins(t *testing.T) {
	m, acq, obs := newTestManager(t)

	m.Acquire(mic("mic-1"))
	r1, err := acq.Next()
	require.NoError(t, err)

	m.Acquire(mic("mic-2"))
	r2, err := acq.Next()
	require.NoError(t, err)

	b := mediatest.NewStream("B", false)
	r2.Resolve(b)
	obs.waitFor(t, b)

	a := mediatest.NewStream("A", false)
	r1.Resolve(a)
	m.Wait()

	assert.Equal(t, b, m.Current(), "the newest request must win")
	assert.Equal(t, 1, a.Stops(), "late response must be stopped exactly once")
	assert.Equal(t, 0, b.Stops())
	assert.Error(t, r1.Ctx.Err(), "superseded request context should be cancelled")
}

func TestStaleResponseBeforeNewerResolves(t *testing.T) {
	m, acq, obs := newTestManager(t)

	m.Acquire(mic("mic-1"))
	r1, _ := acq.Next()
	a := mediatest.NewStream("A", false)
	r1.Resolve(a)
	obs.waitFor(t, a)

	m.Acquire(mic("mic-2"))
	r2, _ := acq.Next()
	m.Acquire(mic("mic-3"))
	r3, _ := acq.Next()

	stale := mediatest.NewStream("B", false)
	r2.Resolve(stale)
	require.Eventually(t, func() bool { return stale.Stops() == 1 }, time.Second, time.Millisecond)

	assert.Equal(t, a, m.Current(), "previous stream stays current until the newest request resolves")
	assert.Equal(t, 0, a.Stops())

	c := mediatest.NewStream("C", false)
	r3.Resolve(c)
	obs.waitFor(t, c)
	assert.Equal(t, 1, a.Stops(), "handoff must release the old stream")
	assert.Equal(t, 0, c.Stops())
}

func TestEquivalentConstraintsDoNotReacquire(t *testing.T) {
	m, acq, obs := newTestManager(t)

	m.Acquire(audio())
	req, _ := acq.Next()
	a := mediatest.NewStream("A", false)
	req.Resolve(a)
	obs.waitFor(t, a)

	gen := m.Generation()
	m.Acquire(mic(media.DefaultDevice))
	m.Acquire(&media.Constraints{Audio: media.Default(), Video: &media.TrackConstraint{}})

	assert.Equal(t, gen, m.Generation())
	assert.Equal(t, 0, acq.Pending())
	assert.Equal(t, a, m.Current())
}

func TestEmptyConstraintsReleaseSynchronously(t *testing.T) {
	m, acq, obs := newTestManager(t)

	m.Acquire(audio())
	req, _ := acq.Next()
	a := mediatest.NewStream("A", false)
	req.Resolve(a)
	obs.waitFor(t, a)

	m.Acquire(nil)
	assert.Nil(t, m.Current())
	assert.Equal(t, 1, a.Stops(), "release must not wait for anything")
	assert.Equal(t, StateStopped, m.State())
}

func TestEmptyConstraintsDiscardPending(t *testing.T) {
	m, acq, _ := newTestManager(t)

	m.Acquire(audio())
	req, _ := acq.Next()
	m.Acquire(&media.Constraints{})

	a := mediatest.NewStream("A", false)
	req.Resolve(a)
	m.Wait()

	assert.Nil(t, m.Current())
	assert.Equal(t, 1, a.Stops())
}

func TestAcquisitionFailure(t *testing.T) {
	m, acq, obs := newTestManager(t)

	m.Acquire(audio())
	req, _ := acq.Next()
	req.Reject(fmt.Errorf("open mic: %w", media.ErrPermissionDenied))
	m.Wait()

	assert.Nil(t, m.Current())
	assert.ErrorIs(t, m.Err(), media.ErrPermissionDenied)
	assert.Equal(t, StateFailed, m.State())
	errs := obs.errors()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], media.ErrPermissionDenied)

	// No automatic retry: the same constraints are not requested again.
	m.Acquire(audio())
	assert.Equal(t, 0, acq.Pending())

	// Changed constraints clear the error on success.
	m.Acquire(mic("mic-2"))
	req, _ = acq.Next()
	b := mediatest.NewStream("B", false)
	req.Resolve(b)
	obs.waitFor(t, b)
	assert.NoError(t, m.Err())
}

func TestStaleFailureIsSilent(t *testing.T) {
	m, acq, obs := newTestManager(t)

	m.Acquire(mic("mic-1"))
	r1, _ := acq.Next()
	m.Acquire(mic("mic-2"))
	r2, _ := acq.Next()

	r1.Reject(media.ErrDeviceBusy)
	b := mediatest.NewStream("B", false)
	r2.Resolve(b)
	m.Wait()

	assert.Empty(t, obs.errors())
	assert.NoError(t, m.Err())
	assert.Equal(t, b, m.Current())
}

func TestCloseIsIdempotent(t *testing.T) {
	m, acq, obs := newTestManager(t)

	m.Acquire(audio())
	req, _ := acq.Next()
	a := mediatest.NewStream("A", false)
	req.Resolve(a)
	obs.waitFor(t, a)

	assert.NotPanics(t, func() {
		m.Close()
		m.Close()
	})
	assert.Equal(t, 1, a.Stops())
	assert.Nil(t, m.Current())

	m.Acquire(mic("mic-2"))
	assert.Equal(t, 0, acq.Pending(), "closed manager must not acquire")
}

func TestCloseAfterRelease(t *testing.T) {
	m, acq, obs := newTestManager(t)

	m.Acquire(audio())
	req, _ := acq.Next()
	a := mediatest.NewStream("A", false)
	req.Resolve(a)
	obs.waitFor(t, a)

	m.Acquire(nil)
	m.Close()
	assert.Equal(t, 1, a.Stops())
}

func TestCloseStopsPendingOnArrival(t *testing.T) {
	m, acq, _ := newTestManager(t)

	m.Acquire(audio())
	req, _ := acq.Next()
	m.Close()

	a := mediatest.NewStream("A", true)
	req.Resolve(a)
	m.Wait()

	assert.Nil(t, m.Current())
	for _, tr := range a.Tracks() {
		assert.True(t, tr.Stopped(), "track %s left open", tr.ID())
	}
	assert.Equal(t, 1, a.Stops())
}

func TestSingleActiveStreamUnderRandomOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 20; round++ {
		t.Run(fmt.Sprintf("round-%d", round), func(t *testing.T) {
			m, acq, _ := newTestManager(t)

			var reqs []*mediatest.Request
			var streams []*mediatest.Stream
			for i := 0; i < 6; i++ {
				if rng.Intn(4) == 0 {
					m.Acquire(nil)
					continue
				}
				m.Acquire(mic(fmt.Sprintf("mic-%d", i)))
				req, err := acq.Next()
				require.NoError(t, err)
				reqs = append(reqs, req)
			}

			rng.Shuffle(len(reqs), func(i, j int) { reqs[i], reqs[j] = reqs[j], reqs[i] })
			for i, req := range reqs {
				s := mediatest.NewStream(fmt.Sprintf("S%d", i), false)
				streams = append(streams, s)
				req.Resolve(s)
			}
			m.Wait()

			current := m.Current()
			active := 0
			for _, s := range streams {
				if media.Active(s) {
					active++
					assert.Equal(t, current, media.Stream(s), "only the current stream may be live")
					continue
				}
				assert.Equal(t, 1, s.Stops(), "stream %s stopped %d times", s.ID(), s.Stops())
			}
			assert.LessOrEqual(t, active, 1)

			m.Close()
			m.Close()
			for _, s := range streams {
				assert.Equal(t, 1, s.Stops())
			}
		})
	}
}
