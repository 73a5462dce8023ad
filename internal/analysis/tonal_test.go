// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
	"testing"
)

const (
	testSampleRate = 44100
	testFFTSize    = 65536
)

var testMapper = Mapper{SampleRate: testSampleRate, FFTSize: testFFTSize}

func TestIndexFreqRoundTrip(t *testing.T) {
	for _, i := range []int{0, 1, 10, 100, 653, 4096, testFFTSize / 2} {
		freq := testMapper.Index2Freq(i)
		back := testMapper.Freq2Index(freq)
		if math.Abs(back-float64(i)) > 1e-9 {
			t.Errorf("round trip for bin %d: got %f", i, back)
		}
	}
}

func TestIndex2FreqKnownValues(t *testing.T) {
	// 2 * i * R / N with the reference configuration.
	tests := []struct {
		index int
		want  float64
	}{
		{0, 0},
		{1, 2 * 44100.0 / 65536},
		{1024, 2 * 1024 * 44100.0 / 65536},
	}
	for _, tt := range tests {
		if got := testMapper.Index2Freq(tt.index); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Index2Freq(%d) = %f, want %f", tt.index, got, tt.want)
		}
	}
}

func TestMapLin2Log(t *testing.T) {
	// The lower edge of the linear range maps to the lower edge of the
	// display range.
	got, err := MapLin2Log(10, 100, 0, 80, 10)
	if err != nil {
		t.Fatalf("MapLin2Log failed: %v", err)
	}
	if math.Abs(got) > 1e-9 {
		t.Errorf("lower edge should map to 0, got %f", got)
	}

	// Monotonically increasing across the range.
	prev := -1.0
	for v := 10.0; v <= 110; v += 10 {
		cur, err := MapLin2Log(10, 100, 0, 80, v)
		if err != nil {
			t.Fatalf("MapLin2Log(%f) failed: %v", v, err)
		}
		if cur <= prev {
			t.Errorf("mapping not increasing at %f: %f <= %f", v, cur, prev)
		}
		prev = cur
	}
}

func TestMapLin2LogOutOfRange(t *testing.T) {
	if _, err := MapLin2Log(10, 100, 0, 80, 9.5); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("value below minimum: got %v, want ErrOutOfRange", err)
	}
}
