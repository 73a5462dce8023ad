// SPDX-License-Identifier: MIT
package tuner

import (
	"testing"

	"chordscope/internal/queue"
	"chordscope/pkg/utils"
)

func TestParseHistogramMode(t *testing.T) {
	tests := []struct {
		name    string
		want    HistogramMode
		wantErr bool
	}{
		{"semilog", Semilog, false},
		{"", Semilog, false},
		{"linear", Linear, false},
		{"loglog", LogLog, false},
		{"log-log", LogLog, false},
		{"octave", Octave, false},
		{"cubist", Semilog, true},
	}

	for _, tt := range tests {
		got, err := ParseHistogramMode(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHistogramMode(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseHistogramMode(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestHistogramModeString(t *testing.T) {
	tests := []struct {
		mode HistogramMode
		want string
	}{
		{Semilog, "semilog"},
		{Linear, "linear"},
		{LogLog, "log-log"},
		{Octave, "octave"},
		{HistogramMode(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", int(tt.mode), got, tt.want)
		}
	}
}

func TestHistogramInvalidArguments(t *testing.T) {
	a := newTestAnalyzer(t, make([]int16, testFFTSize))

	if _, _, err := a.Histogram(Semilog, 0, 55, 2000, false); err == nil {
		t.Error("expected error for zero bars")
	}
	if _, _, err := a.Histogram(HistogramMode(99), 32, 55, 2000, false); err == nil {
		t.Error("expected error for unknown mode")
	}
	if _, _, err := a.Histogram(Linear, 32, 2000, 55, false); err == nil {
		t.Error("expected error for inverted frequency range")
	}
}

func TestHistogramLogLogSingleTone(t *testing.T) {
	// Bin 82 carries the only energy. With lo=5 and hi=928 the
	// logarithmic remap places it at bar ln(78)/ln(928)*32 = 20, and
	// LogLog applies no gap smoothing, so every other bar stays zero.
	a := newTestAnalyzer(t, utils.GenerateSineWave(testFFTSize, testSampleRate, binFreq(82)))

	bars, scale, err := a.Histogram(LogLog, 32, 55, 10000, true)
	if err != nil {
		t.Fatalf("Histogram failed: %v", err)
	}
	if len(bars) != 32 {
		t.Fatalf("got %d bars, want 32", len(bars))
	}

	want := 32767 / 82 // peak magnitude weighted by 1/index
	for i, b := range bars {
		switch {
		case i == 20 && b != want:
			t.Errorf("bars[20] = %d, want %d", b, want)
		case i != 20 && b != 0:
			t.Errorf("bars[%d] = %d, want 0", i, b)
		}
	}
	if wantScale := 1 / float64(want); scale != wantScale {
		t.Errorf("adaptive scale = %f, want %f", scale, wantScale)
	}
}

func TestHistogramSemilogSmoothsGaps(t *testing.T) {
	a := newTestAnalyzer(t, utils.GenerateSineWave(testFFTSize, testSampleRate, binFreq(82)))

	bars, _, err := a.Histogram(Semilog, 32, 55, 10000, false)
	if err != nil {
		t.Fatalf("Histogram failed: %v", err)
	}

	peak := 32767 / 82
	if bars[20] != peak {
		t.Errorf("bars[20] = %d, want %d", bars[20], peak)
	}
	// Smoothing halves the peak into the empty neighbors.
	if bars[19] != peak/2 {
		t.Errorf("bars[19] = %d, want %d", bars[19], peak/2)
	}
	if bars[21] != peak/2 {
		t.Errorf("bars[21] = %d, want %d", bars[21], peak/2)
	}
}

func TestHistogramLinearSingleTone(t *testing.T) {
	a := newTestAnalyzer(t, utils.GenerateSineWave(testFFTSize, testSampleRate, binFreq(82)))

	bars, _, err := a.Histogram(Linear, 32, 0, testSampleRate/2, false)
	if err != nil {
		t.Fatalf("Histogram failed: %v", err)
	}

	// Bins 0..2047 spread over 32 bars puts bin 82 on bar 1, divided by
	// the full-spectrum bucket width of 256 bins.
	want := 32767 / 256
	if bars[1] != want {
		t.Errorf("bars[1] = %d, want %d", bars[1], want)
	}
	max := 0
	for _, b := range bars {
		if b > max {
			max = b
		}
	}
	if max != want {
		t.Errorf("max bar = %d, want %d at bar 1", max, want)
	}
}

func TestHistogramOctaveWrapsTone(t *testing.T) {
	// Bin 8 sits between the semitone edges for F and F# above A1, so
	// the twelfth-octave wrap lights up bar 8 and nothing else.
	a := newTestAnalyzer(t, utils.GenerateSineWave(testFFTSize, testSampleRate, binFreq(8)))

	bars, _, err := a.Histogram(Octave, 12, 0, 0, false)
	if err != nil {
		t.Fatalf("Histogram failed: %v", err)
	}
	if len(bars) != 12 {
		t.Fatalf("got %d bars, want 12", len(bars))
	}

	for i, b := range bars {
		if i == 8 && b == 0 {
			t.Error("bars[8] = 0, want the tone's energy")
		}
		if i != 8 && b != 0 {
			t.Errorf("bars[%d] = %d, want 0", i, b)
		}
	}
}

func TestHistogramSilenceAdaptiveScale(t *testing.T) {
	a := newTestAnalyzer(t, make([]int16, testFFTSize))

	bars, scale, err := a.Histogram(Semilog, 32, 55, 2000, true)
	if err != nil {
		t.Fatalf("Histogram failed: %v", err)
	}
	for i, b := range bars {
		if b != 0 {
			t.Errorf("bars[%d] = %d, want 0", i, b)
		}
	}
	if scale != 0 {
		t.Errorf("adaptive scale on silence = %f, want 0", scale)
	}
}

func BenchmarkHistogramSemilog(b *testing.B) {
	q, err := queue.New(2 * testFFTSize)
	if err != nil {
		b.Fatal(err)
	}
	if err := q.Push(utils.GenerateComplexWave(testFFTSize, testSampleRate), 1); err != nil {
		b.Fatal(err)
	}
	a, err := New(q, Config{FFTSize: testFFTSize, SampleRate: testSampleRate})
	if err != nil {
		b.Fatal(err)
	}
	if err := a.Refresh(); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	for bi := 0; bi < b.N; bi++ {
		if _, _, err := a.Histogram(Semilog, 64, 55, 10000, true); err != nil {
			b.Fatal(err)
		}
	}
}
