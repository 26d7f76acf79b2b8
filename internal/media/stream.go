// SPDX-License-Identifier: MIT
package media

// TrackKind is the media type carried by a track.
type TrackKind string

const (
	KindAudio TrackKind = "audio"
	KindVideo TrackKind = "video"
)

// Track is one hardware-backed input inside a stream. Stop releases the
// device; a stopped track never delivers data again.
type Track interface {
	ID() string
	Kind() TrackKind
	Label() string
	Stop()
	Stopped() bool
}

// AudioFormat describes the samples an AudioTrack delivers.
type AudioFormat struct {
	SampleRate float64
	Channels   int
}

// AudioTrack is a Track delivering interleaved float32 samples in [-1, 1].
// Subscribe registers fn for every buffer; the returned func unregisters it.
// Buffers passed to fn are only valid for the duration of the call.
type AudioTrack interface {
	Track
	Format() AudioFormat
	Subscribe(fn func(samples []float32)) (unsubscribe func())
}

// Stream is a live capture stream made of one or more tracks.
type Stream interface {
	ID() string
	Tracks() []Track
}

// AudioTracks returns the audio tracks of s.
func AudioTracks(s Stream) []AudioTrack {
	if s == nil {
		return nil
	}
	var out []AudioTrack
	for _, t := range s.Tracks() {
		if at, ok := t.(AudioTrack); ok && t.Kind() == KindAudio {
			out = append(out, at)
		}
	}
	return out
}

// StopStream stops every track of s. It is safe on a nil stream.
func StopStream(s Stream) {
	if s == nil {
		return
	}
	for _, t := range s.Tracks() {
		t.Stop()
	}
}

// Active reports whether s has at least one track that is still live.
func Active(s Stream) bool {
	if s == nil {
		return false
	}
	for _, t := range s.Tracks() {
		if !t.Stopped() {
			return true
		}
	}
	return false
}
