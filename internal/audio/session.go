// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"mime"
	"strconv"
	"sync"
	"time"

	"capture/internal/interval"
	"capture/internal/log"
	"capture/internal/media"

	"github.com/google/uuid"
)

// PCMMimeType is the media type of the chunks a session produces:
// interleaved signed 16-bit little-endian samples.
const PCMMimeType = "audio/pcm"

var errSessionStarted = errors.New("session already started")

// FormatMimeType returns the PCM mime type carrying f's parameters.
func FormatMimeType(f media.AudioFormat) string {
	return mime.FormatMediaType(PCMMimeType, map[string]string{
		"rate":     strconv.Itoa(int(f.SampleRate)),
		"channels": strconv.Itoa(f.Channels),
	})
}

// ParseMimeType recovers the audio format from a PCM mime type.
func ParseMimeType(s string) (media.AudioFormat, error) {
	mt, params, err := mime.ParseMediaType(s)
	if err != nil {
		return media.AudioFormat{}, fmt.Errorf("parse mime type %q: %w", s, err)
	}
	if mt != PCMMimeType {
		return media.AudioFormat{}, fmt.Errorf("%w: mime type %q", media.ErrUnsupported, mt)
	}
	rate, err := strconv.Atoi(params["rate"])
	if err != nil || rate <= 0 {
		return media.AudioFormat{}, fmt.Errorf("mime type %q: invalid rate", s)
	}
	channels, err := strconv.Atoi(params["channels"])
	if err != nil || channels <= 0 {
		return media.AudioFormat{}, fmt.Errorf("mime type %q: invalid channels", s)
	}
	return media.AudioFormat{SampleRate: float64(rate), Channels: channels}, nil
}

// NewSession returns a recorder session for the first audio track of s.
func (p *Platform) NewSession(s media.Stream, opts media.RecordOptions, events media.SessionEvents) (media.Session, error) {
	tracks := media.AudioTracks(s)
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: no audio track to record", media.ErrNoStream)
	}
	return newSession(tracks[0], opts, events), nil
}

type sessionState int

const (
	sessionIdle sessionState = iota
	sessionRecording
	sessionStopped
)

// session encodes a track's samples to PCM16 and hands the bytes out every
// time slice, or once when it stops.
type session struct {
	id        string
	track     media.AudioTrack
	mimeType  string
	timeSlice time.Duration
	events    media.SessionEvents
	clock     func() time.Time
	ticker    interval.Ticker

	mu          sync.Mutex
	state       sessionState
	buf         []byte
	unsubscribe func()
}

func newSession(track media.AudioTrack, opts media.RecordOptions, events media.SessionEvents) *session {
	mt := FormatMimeType(track.Format())
	if opts.MimeType != "" && opts.MimeType != mt {
		log.Debugf("audio: mime type %q unavailable, recording %q", opts.MimeType, mt)
	}
	return &session{
		id:        uuid.NewString(),
		track:     track,
		mimeType:  mt,
		timeSlice: opts.TimeSlice,
		events:    events,
		clock:     time.Now,
	}
}

func (s *session) ID() string       { return s.id }
func (s *session) MimeType() string { return s.mimeType }

func (s *session) Start() error {
	s.mu.Lock()
	if s.state != sessionIdle {
		s.mu.Unlock()
		return errSessionStarted
	}
	if s.track.Stopped() {
		s.mu.Unlock()
		return fmt.Errorf("%w: track %s ended", media.ErrNoStream, s.track.ID())
	}
	s.state = sessionRecording
	s.unsubscribe = s.track.Subscribe(s.write)
	s.mu.Unlock()

	if s.timeSlice > 0 {
		s.ticker.Set(s.timeSlice, func(time.Time) { s.flush() })
	}
	log.Debugf("audio: session %s recording %s", s.id, s.mimeType)
	if s.events.OnStart != nil {
		s.events.OnStart(s.clock())
	}
	return nil
}

// write appends samples as clamped PCM16 little-endian.
func (s *session) write(samples []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != sessionRecording {
		return
	}
	for _, v := range samples {
		s.buf = binary.LittleEndian.AppendUint16(s.buf, uint16(pcm16(v)))
	}
}

func pcm16(v float32) int16 {
	f := math.Max(-1, math.Min(1, float64(v)))
	return int16(math.Round(f * math.MaxInt16))
}

// flush hands buffered bytes to OnData.
func (s *session) flush() {
	s.mu.Lock()
	chunk := s.buf
	s.buf = nil
	s.mu.Unlock()
	if len(chunk) > 0 && s.events.OnData != nil {
		s.events.OnData(chunk)
	}
}

// Stop delivers the remaining data and then OnStop. Stopping a session that
// never started or already stopped does nothing.
func (s *session) Stop() error {
	s.mu.Lock()
	if s.state != sessionRecording {
		s.mu.Unlock()
		return nil
	}
	s.state = sessionStopped
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	unsubscribe()
	s.ticker.Stop()
	s.flush()
	log.Debugf("audio: session %s stopped", s.id)
	if s.events.OnStop != nil {
		s.events.OnStop()
	}
	return nil
}
