// SPDX-License-Identifier: MIT
/*
Package dsp implements the spectral engine: a recursive radix-2
Cooley-Tukey transform and the magnitude-spectrum wrapper the rest of the
analysis pipeline consumes. The transform works on any power-of-two length;
the Spectrum type pre-allocates its complex workspace once so the analysis
loop never allocates.
*/
package dsp

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"chordscope/pkg/bitint"
)

// ErrInvalidSize is returned when a transform length is not a positive
// power of two.
var ErrInvalidSize = errors.New("transform size must be a power of two and greater than zero")

// Transform computes the discrete Fourier transform of src into dst using
// recursive even/odd decomposition. Both slices must have the same
// power-of-two length. The input is left untouched.
func Transform(dst, src []complex128) error {
	n := len(src)
	if !bitint.IsPowerOfTwo(n) {
		return fmt.Errorf("%w: got %d", ErrInvalidSize, n)
	}
	if len(dst) != n {
		return fmt.Errorf("%w: output length %d does not match input length %d", ErrInvalidSize, len(dst), n)
	}
	recurse(dst, src, n, 1)
	return nil
}

// recurse performs one level of the even/odd decomposition. The stride
// walk selects even- and odd-indexed elements of the original input
// without copying, so the recursion needs no scratch storage.
func recurse(dst, src []complex128, n, stride int) {
	if n == 1 {
		dst[0] = src[0]
		return
	}

	half := n / 2
	recurse(dst[:half], src, half, 2*stride)        // even-indexed half
	recurse(dst[half:], src[stride:], half, 2*stride) // odd-indexed half

	for k := 0; k < half; k++ {
		// Twiddle: unit rotation by -2*pi*k/n.
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		even := dst[k]
		odd := w * dst[k+half]
		dst[k] = even + odd
		dst[k+half] = even - odd
	}
}
