// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"capture/internal/app"
	"capture/internal/audio"
	"capture/internal/config"
	"capture/internal/graph"
	"capture/internal/log"
	"capture/internal/recorder"
	"capture/internal/transport"
)

// rig is everything a capture command owns.
type rig struct {
	platform  *audio.Platform
	transport transport.Transport
	session   *app.Session
}

// openRig opens PortAudio, the configured transport and a session. The
// command line start counts as the user gesture that unlocks audio
// processing.
func openRig(cfg *config.Config) (*rig, error) {
	analyser, err := cfg.AnalyserOptions()
	if err != nil {
		return nil, err
	}

	p := audio.NewPlatform(cfg.AudioOptions())
	if err := p.Open(); err != nil {
		return nil, err
	}

	t, err := newTransport(cfg)
	if err != nil {
		p.Close()
		return nil, err
	}

	if _, err := graph.Unlock(cfg.Audio.SampleRate); err != nil {
		t.Close()
		p.Close()
		return nil, err
	}

	s := app.New(p, app.Options{
		Record:          cfg.RecordOptions(),
		Analyser:        analyser,
		ElapsedInterval: cfg.Elapsed.Interval,
		LevelInterval:   cfg.Analysis.LevelInterval,
		Provider:        graph.Shared(),
		Transport:       t,
	})
	return &rig{platform: p, transport: t, session: s}, nil
}

func newTransport(cfg *config.Config) (transport.Transport, error) {
	if !cfg.Transport.WebSocketEnabled {
		return transport.NewLoggingTransport(), nil
	}
	ws, err := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress)
	if err != nil {
		return nil, err
	}
	log.Infof("publishing on ws://%s/ws", ws.Addr())
	return ws, nil
}

// Close releases the session, the transport and PortAudio, in that order.
func (r *rig) Close() {
	r.session.Close()
	if err := r.transport.Close(); err != nil {
		log.Warnf("close transport: %v", err)
	}
	if err := r.platform.Close(); err != nil {
		log.Warnf("close audio: %v", err)
	}
}

// artifactPath names artifact n of a recording started at start.
func artifactPath(dir string, start time.Time, n int) string {
	name := fmt.Sprintf("recording-%s-%02d.wav", start.UTC().Format("02-01-2006-150405"), n)
	return filepath.Join(dir, name)
}

// saveArtifacts writes every artifact of r as a WAV file in dir.
func saveArtifacts(dir string, r recorder.Result) ([]string, error) {
	if len(r.Artifacts) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	start := r.StartTime
	if start.IsZero() {
		start = time.Now()
	}
	paths := make([]string, 0, len(r.Artifacts))
	for i, a := range r.Artifacts {
		path := artifactPath(dir, start, i+1)
		if err := audio.WriteWAV(path, a.Data, a.MimeType); err != nil {
			return paths, fmt.Errorf("save artifact %d: %w", i+1, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
