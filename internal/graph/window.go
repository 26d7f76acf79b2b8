// SPDX-License-Identifier: MIT
package graph

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the window applied before the FFT.
type WindowFunc int

const (
	Blackman WindowFunc = iota
	BlackmanNuttall
	Hann
	Hamming
	Nuttall
)

// ParseWindowFunc converts a case-insensitive name to a WindowFunc. Unknown
// names return Blackman and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "", "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Blackman, fmt.Errorf("unknown window function %q", name)
	}
}

func (w WindowFunc) String() string {
	switch w {
	case BlackmanNuttall:
		return "BlackmanNuttall"
	case Hann:
		return "Hann"
	case Hamming:
		return "Hamming"
	case Nuttall:
		return "Nuttall"
	default:
		return "Blackman"
	}
}

// coefficients returns n window coefficients.
func (w WindowFunc) coefficients(n int) []float64 {
	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch w {
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		window.Blackman(coeffs)
	}
	return coeffs
}
