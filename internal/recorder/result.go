// SPDX-License-Identifier: MIT
package recorder

import "time"

// Artifact is one finalized recording segment: every chunk a session
// delivered, joined at the session's stop.
type Artifact struct {
	SessionID string    `json:"sessionId"`
	MimeType  string    `json:"mimeType"`
	Data      []byte    `json:"-"`
	Segments  int       `json:"segments"`
	Started   time.Time `json:"started"`
	Stopped   time.Time `json:"stopped"`
}

// Size returns the artifact length in bytes.
func (a Artifact) Size() int { return len(a.Data) }

// Result is the output of one logical recording. StartTime is zero until the
// first session of the recording starts and is kept across resumes.
type Result struct {
	StartTime time.Time  `json:"startTime"`
	Artifacts []Artifact `json:"artifacts"`
}

// Started reports whether the result carries a start marker.
func (r Result) Started() bool { return !r.StartTime.IsZero() }

func (r Result) clone() Result {
	out := Result{StartTime: r.StartTime}
	if len(r.Artifacts) > 0 {
		out.Artifacts = append([]Artifact(nil), r.Artifacts...)
	}
	return out
}
