// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidSize is returned when peak extraction is asked to scan an
// empty spectrum.
var ErrInvalidSize = errors.New("input size must be greater than zero")

// FindNLargest returns the indices of the k largest magnitudes, sorted
// descending by magnitude. With declump set, a candidate adjacent (±1) to
// the previously selected index is skipped: energy from one physical peak
// spreads into neighboring bins, and reporting both would double-count it.
// Fewer than k indices are returned when de-clumping exhausts the input.
func FindNLargest(magnitudes []int16, k int, declump bool) ([]int, error) {
	n := len(magnitudes)
	if n <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, n)
	}
	if k > n {
		k = n
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return magnitudes[indices[a]] > magnitudes[indices[b]]
	})

	out := make([]int, 0, k)
	for _, idx := range indices {
		if len(out) == k {
			break
		}
		if declump && len(out) > 0 && abs(out[len(out)-1]-idx) == 1 {
			continue
		}
		out = append(out, idx)
	}
	return out, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
