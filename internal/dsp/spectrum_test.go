// SPDX-License-Identifier: MIT
package dsp

import (
	"errors"
	"math"
	"testing"

	"chordscope/pkg/utils"
)

const (
	testFFTSize    = 4096
	testSampleRate = 44100
)

func TestSpectrumInvalidSize(t *testing.T) {
	for _, n := range []int{0, -4, 6, 1000} {
		if _, err := NewSpectrum(n, "none"); !errors.Is(err, ErrInvalidSize) {
			t.Errorf("NewSpectrum(%d): got %v, want ErrInvalidSize", n, err)
		}
	}
}

func TestSpectrumUnknownWindow(t *testing.T) {
	if _, err := NewSpectrum(testFFTSize, "kaiserbessel"); err == nil {
		t.Error("expected error for unknown window name")
	}
}

func TestSpectrumMismatchedBuffers(t *testing.T) {
	s, err := NewSpectrum(64, "none")
	if err != nil {
		t.Fatalf("NewSpectrum failed: %v", err)
	}
	if err := s.Analyze(make([]int16, 64), make([]int16, 32), 1); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("short input: got %v, want ErrInvalidSize", err)
	}
}

func TestSpectrumPeakAtSignalFrequency(t *testing.T) {
	s, err := NewSpectrum(testFFTSize, "none")
	if err != nil {
		t.Fatalf("NewSpectrum failed: %v", err)
	}

	const freq = 440.0
	src := utils.GenerateSineWave(testFFTSize, testSampleRate, freq)
	dst := make([]int16, testFFTSize)
	if err := s.Analyze(dst, src, DefaultScale); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	// Only the first half carries independent bins for a real signal.
	peak := utils.FindPeakBin(dst, 1, testFFTSize/2)
	wantBin := int(math.Round(freq * testFFTSize / testSampleRate))
	if peak < wantBin-1 || peak > wantBin+1 {
		t.Errorf("peak bin: got %d, want about %d", peak, wantBin)
	}
}

func TestSpectrumClipsAtMaxSample(t *testing.T) {
	s, err := NewSpectrum(1024, "none")
	if err != nil {
		t.Fatalf("NewSpectrum failed: %v", err)
	}

	// DC block with a huge scale forces bin 0 past the ceiling.
	src := make([]int16, 1024)
	for i := range src {
		src[i] = 30000
	}
	dst := make([]int16, 1024)
	if err := s.Analyze(dst, src, 1000); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if dst[0] != MaxSample {
		t.Errorf("bin 0 should saturate at %d, got %d", MaxSample, dst[0])
	}
}

func TestSpectrumWindowedPeakSurvives(t *testing.T) {
	s, err := NewSpectrum(testFFTSize, "hann")
	if err != nil {
		t.Fatalf("NewSpectrum failed: %v", err)
	}

	src := utils.GenerateSineWave(testFFTSize, testSampleRate, 880)
	dst := make([]int16, testFFTSize)
	if err := s.Analyze(dst, src, DefaultScale); err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	peak := utils.FindPeakBin(dst, 1, testFFTSize/2)
	wantBin := int(math.Round(880.0 * testFFTSize / testSampleRate))
	if peak < wantBin-1 || peak > wantBin+1 {
		t.Errorf("windowed peak bin: got %d, want about %d", peak, wantBin)
	}
}

func TestAnalyzeZeroAllocs(t *testing.T) {
	s, err := NewSpectrum(1024, "none")
	if err != nil {
		t.Fatalf("NewSpectrum failed: %v", err)
	}
	src := utils.GenerateSineWave(1024, testSampleRate, 440)
	dst := make([]int16, 1024)

	// Warm-up.
	_ = s.Analyze(dst, src, DefaultScale)

	allocs := testing.AllocsPerRun(20, func() {
		_ = s.Analyze(dst, src, DefaultScale)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Analyze hot path, got %.1f", allocs)
	}
}

func BenchmarkAnalyze(b *testing.B) {
	s, err := NewSpectrum(testFFTSize, "none")
	if err != nil {
		b.Fatal(err)
	}
	src := utils.GenerateComplexWave(testFFTSize, testSampleRate)
	dst := make([]int16, testFFTSize)

	b.ReportAllocs()

	for bi := 0; bi < b.N; bi++ {
		_ = s.Analyze(dst, src, DefaultScale)
	}
}
