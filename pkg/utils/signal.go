// SPDX-License-Identifier: MIT

// Package utils generates the synthetic float32 signals used to exercise
// capture streams, recorder sessions and analysers in tests.
package utils

import "math"

// SineWave returns n samples of a sine at frequency Hz with peak amplitude amp.
func SineWave(n int, sampleRate, frequency, amp float64) []float32 {
	buffer := make([]float32, n)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(amp * math.Sin(2*math.Pi*frequency*t))
	}
	return buffer
}

// ComplexWave returns a 440Hz fundamental with its 2nd and 3rd harmonics,
// scaled to a 0.9 peak.
func ComplexWave(n int, sampleRate float64) []float32 {
	buffer := make([]float32, n)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// Interleave joins equal length channel buffers frame by frame. Shorter
// channels are padded with silence.
func Interleave(channels ...[]float32) []float32 {
	frames := 0
	for _, c := range channels {
		frames = max(frames, len(c))
	}
	out := make([]float32, frames*len(channels))
	for ch, c := range channels {
		for i, v := range c {
			out[i*len(channels)+ch] = v
		}
	}
	return out
}

// RMS returns the root mean square of samples, 0 for an empty buffer.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// FindPeakBin returns the index of the largest magnitude within
// [startBin, endBin], clamped to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	startBin = max(startBin, 0)
	endBin = min(endBin, len(magnitudes)-1)
	if startBin > endBin {
		return startBin
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}
