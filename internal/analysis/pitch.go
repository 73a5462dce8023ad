// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"math"
)

// DefaultHCFThreshold is the largest pair ratio still considered related
// when estimating a common fundamental. Peaks further apart than this are
// treated as unrelated and yield no pitch.
const DefaultHCFThreshold = 5.0

var (
	// ErrTooFewInputs is returned when ApproxHCF gets fewer than two
	// frequencies.
	ErrTooFewInputs = errors.New("at least two inputs are required")
	// ErrNonPositiveFrequency is returned for frequencies <= 0.
	ErrNonPositiveFrequency = errors.New("frequency must be positive")
)

// semitone is the equal-tempered semitone ratio, 2^(1/12).
var semitone = math.Pow(2, 1.0/12.0)

// pitchNames are the twelve pitch classes starting at A.
var pitchNames = [12]string{"A", "A#", "B", "C", "C#", "D", "D#", "E", "F", "F#", "G", "G#"}

// ApproxHCF estimates the fundamental frequency shared by a set of
// spectral peaks by recursive pairwise approximate-GCD reduction. For two
// inputs the ratio of larger to smaller is taken: a ratio above threshold
// means the pair shares no usable common factor and contributes 0;
// otherwise the larger input divided by the rounded ratio approximates the
// common factor. A result of 0 means "no pitch detected" and is a valid
// value, not an error.
func ApproxHCF(inputs []float64, threshold float64) (float64, error) {
	if len(inputs) < 2 {
		return 0, fmt.Errorf("%w: got %d", ErrTooFewInputs, len(inputs))
	}

	if len(inputs) == 2 {
		return hcfPair(inputs[0], inputs[1], threshold), nil
	}

	tail, err := ApproxHCF(inputs[1:], threshold)
	if err != nil {
		return 0, err
	}
	if tail == 0 {
		return 0, nil
	}
	return hcfPair(inputs[0], tail, threshold), nil
}

func hcfPair(a, b float64, threshold float64) float64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	hi, lo := a, b
	if hi < lo {
		hi, lo = lo, hi
	}
	ratio := hi / lo
	if ratio > threshold {
		return 0
	}
	k := math.Round(ratio)
	if k < 1 {
		k = 1
	}
	return hi / k
}

// PitchClassOf folds freq into the A4-A5 reference octave [440, 880) and
// returns the nearest equal-tempered pitch class in [1,12] (1 = A) along
// with the signed cents deviation from that class.
func PitchClassOf(freq float64) (class int, cents float64, err error) {
	if freq <= 0 {
		return 0, 0, fmt.Errorf("%w: got %f", ErrNonPositiveFrequency, freq)
	}

	for freq < 440 {
		freq *= 2
	}
	for freq >= 880 {
		freq /= 2
	}

	idx := int(math.Round(math.Log(freq/440) / math.Log(semitone)))
	if idx < 0 {
		idx = 0
	}
	if idx > 11 {
		idx = 11
	}

	cents = 1200 * math.Log2(freq/(440*math.Pow(semitone, float64(idx))))
	return idx + 1, cents, nil
}

// PitchName returns the display name of a pitch class in [1,12].
func PitchName(class int) (string, error) {
	if class < 1 || class > 12 {
		return "", fmt.Errorf("%w: pitch class %d", ErrOutOfRange, class)
	}
	return pitchNames[class-1], nil
}
