// SPDX-License-Identifier: MIT
package app

import (
	"time"

	"capture/internal/elapsed"
	"capture/internal/graph"
	"capture/internal/media"
	"capture/internal/recorder"
)

// StreamInfo describes the current stream for UI collaborators.
type StreamInfo struct {
	ID     string      `json:"id"`
	Tracks []TrackInfo `json:"tracks"`
}

// TrackInfo describes one track.
type TrackInfo struct {
	ID    string          `json:"id"`
	Kind  media.TrackKind `json:"kind"`
	Label string          `json:"label"`
}

func streamInfo(s media.Stream) *StreamInfo {
	if s == nil {
		return nil
	}
	info := &StreamInfo{ID: s.ID()}
	for _, t := range s.Tracks() {
		info.Tracks = append(info.Tracks, TrackInfo{ID: t.ID(), Kind: t.Kind(), Label: t.Label()})
	}
	return info
}

// ArtifactInfo describes one artifact without its data.
type ArtifactInfo struct {
	SessionID string        `json:"sessionId"`
	MimeType  string        `json:"mimeType"`
	Bytes     int           `json:"bytes"`
	Segments  int           `json:"segments"`
	Duration  time.Duration `json:"duration"`
}

// ResultInfo is the publishable form of a recorder.Result.
type ResultInfo struct {
	StartTime *time.Time     `json:"startTime,omitempty"`
	Artifacts []ArtifactInfo `json:"artifacts"`
}

func summarize(r recorder.Result) ResultInfo {
	out := ResultInfo{Artifacts: make([]ArtifactInfo, 0, len(r.Artifacts))}
	if r.Started() {
		t := r.StartTime
		out.StartTime = &t
	}
	for _, a := range r.Artifacts {
		out.Artifacts = append(out.Artifacts, ArtifactInfo{
			SessionID: a.SessionID,
			MimeType:  a.MimeType,
			Bytes:     a.Size(),
			Segments:  a.Segments,
			Duration:  a.Stopped.Sub(a.Started),
		})
	}
	return out
}

// Snapshot is the combined view of every observable output.
type Snapshot struct {
	Stream      *StreamInfo  `json:"stream"`
	StreamState string       `json:"streamState"`
	Recording   bool         `json:"recording"`
	Result      ResultInfo   `json:"result"`
	Elapsed     elapsed.View `json:"elapsed"`
	Level       graph.Level  `json:"level"`
	Error       string       `json:"error,omitempty"`
}

// Snapshot returns the current outputs.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	recording, lastErr := s.recording, s.lastErr
	s.mu.Unlock()

	snap := Snapshot{
		Stream:      streamInfo(s.streams.Current()),
		StreamState: s.streams.State().String(),
		Recording:   recording,
		Result:      summarize(s.recorder.Result()),
		Elapsed:     s.sampler.View(),
		Level:       s.meter.Level(),
	}
	if lastErr != nil {
		snap.Error = lastErr.Error()
	}
	return snap
}
