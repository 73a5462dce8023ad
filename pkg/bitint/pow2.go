// SPDX-License-Identifier: MIT

// Package bitint holds the power-of-two helpers the spectrum pipeline
// uses to validate and round transform lengths.
package bitint

import "math/bits"

// IsPowerOfTwo reports whether n is a positive power of two. A power of
// two has exactly one bit set, so n&(n-1) clears it to zero.
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// NextPowerOfTwo returns the smallest power of two >= size. Sizes below
// one round up to 1. The size-1 keeps exact powers of two from doubling.
func NextPowerOfTwo(size int) int {
	if size <= 0 {
		return 1
	}
	return 1 << bits.Len(uint(size-1))
}
