// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"capture/internal/audio"
	"capture/internal/graph"
	"capture/internal/log"
	"capture/internal/media"

	"gopkg.in/yaml.v3"
)

// Hardware limits accepted by Validate.
const (
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MaxBufferFrames = 8192
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	LogLevel  string          `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Audio     AudioConfig     `yaml:"audio"`     // Capture device and stream settings.
	Recording RecordingConfig `yaml:"recording"` // Recorder session settings.
	Analysis  AnalysisConfig  `yaml:"analysis"`  // Analyser and level meter settings.
	Elapsed   ElapsedConfig   `yaml:"elapsed"`   // Elapsed time sampling.
	Transport TransportConfig `yaml:"transport"` // Where observable outputs are published.
}

// AudioConfig holds settings related to audio input.
type AudioConfig struct {
	InputDevice     string  `yaml:"input_device"`      // Device id from `list`, "default" for the system default.
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 44100, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per PortAudio callback.
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	Channels        int     `yaml:"channels"`          // Number of input channels to capture.
}

// RecordingConfig holds settings related to recorder sessions.
type RecordingConfig struct {
	MimeType  string        `yaml:"mime_type"`  // Preferred chunk format; the platform may choose another.
	TimeSlice time.Duration `yaml:"time_slice"` // Chunk delivery cadence, 0 for one chunk per session.
	OutputDir string        `yaml:"output_dir"` // Directory to save recorded artifacts.
}

// AnalysisConfig holds analyser node and level meter settings.
type AnalysisConfig struct {
	FFTSize       int           `yaml:"fft_size"`       // Power of two between 32 and 32768.
	MinDecibels   float64       `yaml:"min_decibels"`   // Level floor.
	MaxDecibels   float64       `yaml:"max_decibels"`   // Level ceiling.
	Smoothing     float64       `yaml:"smoothing"`      // Time constant in [0, 1).
	Window        string        `yaml:"window"`         // Window function name (e.g., "Blackman", "Hann").
	LevelInterval time.Duration `yaml:"level_interval"` // Level sampling cadence, 0 pauses.
}

// ElapsedConfig holds the elapsed time sampler settings.
type ElapsedConfig struct {
	Interval time.Duration `yaml:"interval"` // Sampling cadence while recording, 0 pauses.
}

// TransportConfig holds settings related to publishing outputs to UI collaborators.
type TransportConfig struct {
	WebSocketEnabled bool   `yaml:"websocket_enabled"` // Serve outputs over WebSocket instead of the log.
	WebSocketAddress string `yaml:"websocket_address"` // Listen address (e.g., "127.0.0.1:8080").
}

// Default returns the built-in configuration.
func Default() Config {
	an := graph.DefaultAnalyserOptions()
	return Config{
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     media.DefaultDevice,
			SampleRate:      48000,
			FramesPerBuffer: 512,
			LowLatency:      true,
			Channels:        1,
		},
		Recording: RecordingConfig{
			MimeType:  audio.PCMMimeType,
			TimeSlice: time.Second,
			OutputDir: "./recordings",
		},
		Analysis: AnalysisConfig{
			FFTSize:       an.FFTSize,
			MinDecibels:   an.MinDecibels,
			MaxDecibels:   an.MaxDecibels,
			Smoothing:     an.Smoothing,
			Window:        an.Window.String(),
			LevelInterval: 50 * time.Millisecond,
		},
		Elapsed: ElapsedConfig{
			Interval: 100 * time.Millisecond,
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddress: "127.0.0.1:8080",
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{"config.yaml", "capture.yaml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		errs = append(errs, fmt.Errorf("audio.sample_rate %.0f outside [%d, %d]", c.Audio.SampleRate, MinSampleRate, MaxSampleRate))
	}
	if c.Audio.FramesPerBuffer <= 0 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		errs = append(errs, fmt.Errorf("audio.frames_per_buffer %d outside [1, %d]", c.Audio.FramesPerBuffer, MaxBufferFrames))
	}
	if c.Audio.Channels < 1 || c.Audio.Channels > 2 {
		errs = append(errs, fmt.Errorf("audio.channels must be 1 or 2, got %d", c.Audio.Channels))
	}
	if c.Recording.TimeSlice < 0 {
		errs = append(errs, fmt.Errorf("recording.time_slice must not be negative"))
	}
	if c.Recording.OutputDir == "" {
		errs = append(errs, fmt.Errorf("recording.output_dir must be set"))
	}
	if _, err := graph.ParseWindowFunc(c.Analysis.Window); err != nil {
		errs = append(errs, fmt.Errorf("analysis.window: %w", err))
	}
	if opts, err := c.AnalyserOptions(); err == nil {
		if err := opts.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("analysis: %w", err))
		}
	}
	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddress == "" {
		errs = append(errs, fmt.Errorf("transport.websocket_address must be set when the websocket is enabled"))
	}
	return errors.Join(errs...)
}

// AnalyserOptions converts the analysis section.
func (c *Config) AnalyserOptions() (graph.AnalyserOptions, error) {
	w, err := graph.ParseWindowFunc(c.Analysis.Window)
	if err != nil {
		return graph.AnalyserOptions{}, err
	}
	return graph.AnalyserOptions{
		FFTSize:     c.Analysis.FFTSize,
		MinDecibels: c.Analysis.MinDecibels,
		MaxDecibels: c.Analysis.MaxDecibels,
		Smoothing:   c.Analysis.Smoothing,
		Window:      w,
	}, nil
}

// AudioOptions converts the audio section.
func (c *Config) AudioOptions() audio.Options {
	return audio.Options{
		SampleRate:      c.Audio.SampleRate,
		Channels:        c.Audio.Channels,
		FramesPerBuffer: c.Audio.FramesPerBuffer,
		LowLatency:      c.Audio.LowLatency,
	}
}

// RecordOptions converts the recording section.
func (c *Config) RecordOptions() media.RecordOptions {
	return media.RecordOptions{
		MimeType:  c.Recording.MimeType,
		TimeSlice: c.Recording.TimeSlice,
	}
}

// Constraints returns the audio-only constraints for the configured input.
func (c *Config) Constraints() media.Constraints {
	if c.Audio.InputDevice == "" || c.Audio.InputDevice == media.DefaultDevice {
		return media.Constraints{Audio: media.Default()}
	}
	return media.Constraints{Audio: media.Exact(c.Audio.InputDevice)}
}

// applyEnvOverrides applies ENV_* variables on top of the file values.
// Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		c.LogLevel = val
		log.Infof("configuration: overriding log_level from env: %s", val)
	}

	// ENV_INPUT_DEVICE
	if val, ok := os.LookupEnv("ENV_INPUT_DEVICE"); ok {
		c.Audio.InputDevice = val
		log.Infof("configuration: overriding audio.input_device from env: %s", val)
	}
	// ENV_SAMPLE_RATE
	if val, ok := os.LookupEnv("ENV_SAMPLE_RATE"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Audio.SampleRate = f
			log.Infof("configuration: overriding audio.sample_rate from env: %.0f", f)
		}
	}

	// ENV_TIME_SLICE
	if val, ok := os.LookupEnv("ENV_TIME_SLICE"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Recording.TimeSlice = dur
			log.Infof("configuration: overriding recording.time_slice from env: %s", dur)
		}
	}
	// ENV_OUTPUT_DIR
	if val, ok := os.LookupEnv("ENV_OUTPUT_DIR"); ok {
		c.Recording.OutputDir = val
		log.Infof("configuration: overriding recording.output_dir from env: %s", val)
	}

	// ENV_LEVEL_INTERVAL
	if val, ok := os.LookupEnv("ENV_LEVEL_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			c.Analysis.LevelInterval = dur
			log.Infof("configuration: overriding analysis.level_interval from env: %s", dur)
		}
	}

	// ENV_WS_{...}
	// These are specific to the transport layer.

	// ENV_WS_ENABLED
	if val, ok := os.LookupEnv("ENV_WS_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.WebSocketEnabled = b
			log.Infof("configuration: overriding transport.websocket_enabled from env: %v", b)
		}
	}
	// ENV_WS_ADDRESS
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		c.Transport.WebSocketAddress = val
		log.Infof("configuration: overriding transport.websocket_address from env: %s", val)
	}
}
