// SPDX-License-Identifier: MIT
package bitint

import (
	"fmt"
	"testing"
)

func TestIsPowerOfTwo(t *testing.T) {
	tests := []struct {
		n    int
		want bool
	}{
		{-8, false},
		{0, false},
		{1, true},
		{2, true},
		{3, false},
		{64, true},
		{65536, true},
		{65537, false},
		{1 << 30, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.n), func(t *testing.T) {
			if got := IsPowerOfTwo(tt.n); got != tt.want {
				t.Errorf("IsPowerOfTwo(%d) = %v, want %v", tt.n, got, tt.want)
			}
		})
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{-10, 1},
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{4096, 4096},    // exact powers are preserved
		{5000, 8192},    // a typical hand-typed fft size
		{1000000, 1 << 20},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.n), func(t *testing.T) {
			if got := NextPowerOfTwo(tt.n); got != tt.want {
				t.Errorf("NextPowerOfTwo(%d) = %d, want %d", tt.n, got, tt.want)
			}
		})
	}
}

func TestNextPowerOfTwoResultValidates(t *testing.T) {
	for n := 1; n < 3000; n++ {
		p := NextPowerOfTwo(n)
		if !IsPowerOfTwo(p) {
			t.Fatalf("NextPowerOfTwo(%d) = %d is not a power of two", n, p)
		}
		if p < n {
			t.Fatalf("NextPowerOfTwo(%d) = %d is below the input", n, p)
		}
	}
}

func BenchmarkIsPowerOfTwo(b *testing.B) {
	var i int
	b.ReportAllocs()
	for bi := 0; bi < b.N; bi++ {
		IsPowerOfTwo(i % 100000)
		i++
	}
}

func BenchmarkNextPowerOfTwo(b *testing.B) {
	var i int
	b.ReportAllocs()
	for bi := 0; bi < b.N; bi++ {
		NextPowerOfTwo(i % 100000)
		i++
	}
}
