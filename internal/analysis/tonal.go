// SPDX-License-Identifier: MIT
/*
Package analysis derives musical information from magnitude spectra:
frequency/bin conversions, spectral peak extraction, approximate-GCD pitch
estimation, and pitch-class naming. The Analyzer type ties these together
into the refresh-driven pipeline behind the tuner and chord guesser.
*/
package analysis

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is returned when a queried value sits below its configured
// minimum or outside its valid domain.
var ErrOutOfRange = errors.New("value out of range")

// Mapper converts between FFT bin indices and frequencies for a fixed
// sample rate and transform length. The factor of two in Index2Freq
// reflects that only the first half of the bins carry independent
// information for a real input; Freq2Index is its exact inverse.
type Mapper struct {
	SampleRate float64
	FFTSize    int
}

// Index2Freq returns the frequency represented by bin index i.
func (m Mapper) Index2Freq(i int) float64 {
	return 2 * float64(i) * m.SampleRate / float64(m.FFTSize)
}

// Freq2Index returns the (fractional) bin index representing freq.
func (m Mapper) Freq2Index(freq float64) float64 {
	return 0.5 * freq * float64(m.FFTSize) / m.SampleRate
}

// MapLin2Log remaps a value from a linear index range onto a logarithmic
// display range, so low bins spread across more display buckets than high
// ones. Fails with ErrOutOfRange if linVal is below linMin.
func MapLin2Log(linMin, linRange, logMin, logRange, linVal float64) (float64, error) {
	if linVal < linMin {
		return 0, fmt.Errorf("%w: linear value %f below minimum %f", ErrOutOfRange, linVal, linMin)
	}
	return logMin + (math.Log(linVal+1-linMin)/math.Log(linRange+linMin))*logRange, nil
}
