// SPDX-License-Identifier: MIT
package graph

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"capture/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// FFT size limits of an AnalyserNode.
const (
	MinFFTSize = 32
	MaxFFTSize = 32768
)

// AnalyserOptions configure an AnalyserNode. A zero FFTSize or a zero
// decibel range takes the value from DefaultAnalyserOptions.
type AnalyserOptions struct {
	FFTSize     int     // Power of two, 32..32768.
	MinDecibels float64 // Maps to byte 0.
	MaxDecibels float64 // Maps to byte 255.
	Smoothing   float64 // Time constant in [0, 1).
	Window      WindowFunc
}

// DefaultAnalyserOptions match the defaults of browser analyser nodes.
func DefaultAnalyserOptions() AnalyserOptions {
	return AnalyserOptions{
		FFTSize:     2048,
		MinDecibels: -100,
		MaxDecibels: -30,
		Smoothing:   0.8,
		Window:      Blackman,
	}
}

func (o AnalyserOptions) withDefaults() AnalyserOptions {
	def := DefaultAnalyserOptions()
	if o.FFTSize == 0 {
		o.FFTSize = def.FFTSize
	}
	if o.MinDecibels == 0 && o.MaxDecibels == 0 {
		o.MinDecibels, o.MaxDecibels = def.MinDecibels, def.MaxDecibels
	}
	return o
}

// Validate reports option values an analyser cannot work with.
func (o AnalyserOptions) Validate() error {
	if o.FFTSize < MinFFTSize || o.FFTSize > MaxFFTSize || !bitint.IsPowerOfTwo(o.FFTSize) {
		suggest := min(MaxFFTSize, max(MinFFTSize, bitint.NearestPowerOfTwo(o.FFTSize)))
		return fmt.Errorf("fft size must be a power of 2 in [%d, %d], got %d (try %d)",
			MinFFTSize, MaxFFTSize, o.FFTSize, suggest)
	}
	if o.MinDecibels >= o.MaxDecibels {
		return fmt.Errorf("min decibels %.1f must be below max decibels %.1f", o.MinDecibels, o.MaxDecibels)
	}
	if o.Smoothing < 0 || o.Smoothing >= 1 {
		return fmt.Errorf("smoothing must be in [0, 1), got %.2f", o.Smoothing)
	}
	return nil
}

// AnalyserNode keeps the most recent FFTSize mono samples written to it and
// computes smoothed frequency data on demand.
type AnalyserNode struct {
	opts AnalyserOptions
	fft  *fourier.FFT

	mu       sync.Mutex
	ring     []float64 // Last FFTSize samples, oldest at pos.
	pos      int
	input    []float64
	window   []float64
	coeffs   []complex128
	smoothed []float64
}

func newAnalyser(opts AnalyserOptions) (*AnalyserNode, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	n := opts.FFTSize
	return &AnalyserNode{
		opts:     opts,
		fft:      fourier.NewFFT(n),
		ring:     make([]float64, n),
		input:    make([]float64, n),
		window:   opts.Window.coefficients(n),
		coeffs:   make([]complex128, n/2+1),
		smoothed: make([]float64, n/2),
	}, nil
}

// Options returns the effective options.
func (a *AnalyserNode) Options() AnalyserOptions { return a.opts }

// FrequencyBinCount is half the FFT size.
func (a *AnalyserNode) FrequencyBinCount() int { return a.opts.FFTSize / 2 }

// Write appends interleaved samples, averaging channels down to mono.
func (a *AnalyserNode) Write(samples []float32, channels int) {
	if channels < 1 {
		channels = 1
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := 0; i+channels <= len(samples); i += channels {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(samples[i+c])
		}
		a.ring[a.pos] = sum / float64(channels)
		a.pos = (a.pos + 1) % len(a.ring)
	}
}

// analyseLocked runs one windowed FFT over the ring and folds the result
// into the smoothed magnitudes.
func (a *AnalyserNode) analyseLocked() {
	n := len(a.ring)
	for i := 0; i < n; i++ {
		a.input[i] = a.ring[(a.pos+i)%n] * a.window[i]
	}
	a.fft.Coefficients(a.coeffs, a.input)

	tau := a.opts.Smoothing
	scale := 1.0 / float64(n)
	for k := range a.smoothed {
		mag := cmplx.Abs(a.coeffs[k]) * scale
		a.smoothed[k] = tau*a.smoothed[k] + (1-tau)*mag
	}
}

// FloatFrequencyData fills dst with per-bin magnitudes in decibels. Silent
// bins are -Inf. dst may be shorter than FrequencyBinCount.
func (a *AnalyserNode) FloatFrequencyData(dst []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.analyseLocked()
	for k := 0; k < len(dst) && k < len(a.smoothed); k++ {
		dst[k] = 20 * math.Log10(a.smoothed[k])
	}
}

// ByteFrequencyData fills dst with magnitudes mapped linearly from
// [MinDecibels, MaxDecibels] onto [0, 255].
func (a *AnalyserNode) ByteFrequencyData(dst []uint8) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.analyseLocked()
	lo, hi := a.opts.MinDecibels, a.opts.MaxDecibels
	for k := 0; k < len(dst) && k < len(a.smoothed); k++ {
		db := 20 * math.Log10(a.smoothed[k])
		v := 255 * (db - lo) / (hi - lo)
		switch {
		case math.IsNaN(v) || v <= 0:
			dst[k] = 0
		case v >= 255:
			dst[k] = 255
		default:
			dst[k] = uint8(v)
		}
	}
}
