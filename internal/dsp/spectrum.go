// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/dsp/window"

	"chordscope/pkg/bitint"
)

// MaxSample is the clipping ceiling for magnitude output, matching the
// int16 sample range of the capture path.
const MaxSample = 32767

// DefaultScale is the reference magnitude scaling factor applied before
// clipping. Chosen so a strongly played note fills the display range
// without saturating at the reference FFT length.
const DefaultScale = 0.005

// Spectrum converts windows of raw samples to per-bin magnitudes. It hides
// the complex-domain representation from the rest of the pipeline and is
// the only transform entry point the analysis path uses.
//
// A Spectrum is not safe for concurrent use; each invocation reuses the
// pre-allocated workspace.
type Spectrum struct {
	size    int
	in, out []complex128
	window  []float64 // nil when no window function is configured
}

// NewSpectrum creates a Spectrum for power-of-two transform lengths.
// windowName selects a gonum window function ("hann", "hamming",
// "blackman", "nuttall", "lanczos") or "none"/"" for a rectangular window,
// which preserves raw magnitudes for pitch estimation.
func NewSpectrum(size int, windowName string) (*Spectrum, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}

	coeffs, err := windowCoeffs(size, windowName)
	if err != nil {
		return nil, err
	}

	return &Spectrum{
		size:   size,
		in:     make([]complex128, size),
		out:    make([]complex128, size),
		window: coeffs,
	}, nil
}

// Size returns the configured transform length.
func (s *Spectrum) Size() int { return s.size }

// Analyze fills dst with the scaled, clipped magnitude spectrum of src.
// Both slices must be s.Size() long. Magnitudes are multiplied by scale
// and saturate at MaxSample; saturation is defined behavior, not an error.
func (s *Spectrum) Analyze(dst, src []int16, scale float64) error {
	if len(src) != s.size || len(dst) != s.size {
		return fmt.Errorf("%w: want %d samples, got src=%d dst=%d", ErrInvalidSize, s.size, len(src), len(dst))
	}

	if s.window != nil {
		for i, v := range src {
			s.in[i] = complex(float64(v)*s.window[i], 0)
		}
	} else {
		for i, v := range src {
			s.in[i] = complex(float64(v), 0)
		}
	}

	if err := Transform(s.out, s.in); err != nil {
		return err
	}

	for i := range s.out {
		m := cmplx.Abs(s.out[i]) * scale
		if m > MaxSample {
			m = MaxSample
		}
		dst[i] = int16(m)
	}
	return nil
}

// windowCoeffs builds the coefficient table for the named window function.
func windowCoeffs(size int, name string) ([]float64, error) {
	switch strings.ToLower(name) {
	case "", "none", "rectangular":
		return nil, nil
	}

	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch strings.ToLower(name) {
	case "hann", "hanning":
		window.Hann(coeffs)
	case "hamming":
		window.Hamming(coeffs)
	case "blackman":
		window.Blackman(coeffs)
	case "nuttall":
		window.Nuttall(coeffs)
	case "lanczos":
		window.Lanczos(coeffs)
	default:
		return nil, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
	return coeffs, nil
}
