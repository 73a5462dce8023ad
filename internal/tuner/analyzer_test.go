// SPDX-License-Identifier: MIT
package tuner

import (
	"errors"
	"math"
	"testing"

	"chordscope/internal/queue"
	"chordscope/pkg/utils"
)

const (
	testFFTSize    = 8192
	testSampleRate = 44100
)

// binFreq returns the exact frequency of spectrum bin k, so generated
// tones land on a single bin with no leakage.
func binFreq(k int) float64 {
	return float64(k) * testSampleRate / testFFTSize
}

func newTestAnalyzer(t *testing.T, samples []int16) *Analyzer {
	t.Helper()

	q, err := queue.New(2 * testFFTSize)
	if err != nil {
		t.Fatalf("queue.New failed: %v", err)
	}
	if err := q.Push(samples, 1); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	a, err := New(q, Config{FFTSize: testFFTSize, SampleRate: testSampleRate})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := a.Refresh(); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	return a
}

func TestRefreshUnderflowBeforeEnoughAudio(t *testing.T) {
	q, err := queue.New(2 * testFFTSize)
	if err != nil {
		t.Fatalf("queue.New failed: %v", err)
	}
	a, err := New(q, Config{FFTSize: testFFTSize, SampleRate: testSampleRate})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := a.Refresh(); !errors.Is(err, queue.ErrUnderflow) {
		t.Errorf("Refresh on empty queue: got %v, want ErrUnderflow", err)
	}
}

func TestRefreshDoesNotConsumePlaybackData(t *testing.T) {
	q, err := queue.New(2 * testFFTSize)
	if err != nil {
		t.Fatalf("queue.New failed: %v", err)
	}
	wave := utils.GenerateSineWave(testFFTSize, testSampleRate, 440)
	if err := q.Push(wave, 1); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	a, err := New(q, Config{FFTSize: testFFTSize, SampleRate: testSampleRate})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := a.Refresh(); err != nil {
			t.Fatalf("Refresh %d failed: %v", i, err)
		}
	}

	// Playback still sees every pushed sample.
	if !q.DataAvailable(testFFTSize) {
		t.Error("analysis refresh must not consume queued playback data")
	}
}

func TestDetectPitchPureTone(t *testing.T) {
	freq := binFreq(82) // 441.43 Hz, an A a hair sharp
	a := newTestAnalyzer(t, utils.GenerateSineWave(testFFTSize, testSampleRate, freq))

	p, err := a.DetectPitch()
	if err != nil {
		t.Fatalf("DetectPitch failed: %v", err)
	}
	if !p.OK {
		t.Fatal("expected a detected pitch")
	}
	if p.Class != 1 || p.Name != "A" {
		t.Errorf("pitch: got class %d (%s), want 1 (A)", p.Class, p.Name)
	}

	wantCents := 1200 * math.Log2(freq/440)
	if math.Abs(p.Cents-wantCents) > 1.0 {
		t.Errorf("cents: got %f, want %f", p.Cents, wantCents)
	}
}

func TestDetectPitchSilence(t *testing.T) {
	a := newTestAnalyzer(t, make([]int16, testFFTSize))

	p, err := a.DetectPitch()
	if err != nil {
		t.Fatalf("DetectPitch failed: %v", err)
	}
	if p.OK {
		t.Errorf("silence must yield no pitch, got %+v", p)
	}
}

func TestDetectPitchBeforeFirstRefresh(t *testing.T) {
	q, err := queue.New(2 * testFFTSize)
	if err != nil {
		t.Fatalf("queue.New failed: %v", err)
	}
	a, err := New(q, Config{FFTSize: testFFTSize, SampleRate: testSampleRate})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	p, err := a.DetectPitch()
	if err != nil {
		t.Fatalf("DetectPitch failed: %v", err)
	}
	if p.OK {
		t.Error("no refresh yet: expected no pitch")
	}
}

func TestGuessChordMajorTriad(t *testing.T) {
	// A, C#, E on exact bins.
	wave := utils.GenerateChordWave(testFFTSize, testSampleRate,
		binFreq(82), binFreq(103), binFreq(122))
	a := newTestAnalyzer(t, wave)

	g, err := a.GuessChord(DefaultMaxChordNotes)
	if err != nil {
		t.Fatalf("GuessChord failed: %v", err)
	}
	if !g.OK {
		t.Fatalf("expected a chord match, detected notes %v", g.Notes)
	}
	if g.Name != "A Maj" {
		t.Errorf("chord: got %q, want %q", g.Name, "A Maj")
	}
}

func TestGuessChordSilence(t *testing.T) {
	a := newTestAnalyzer(t, make([]int16, testFFTSize))

	g, err := a.GuessChord(DefaultMaxChordNotes)
	if err != nil {
		t.Fatalf("GuessChord failed: %v", err)
	}
	if g.OK || len(g.Notes) != 0 {
		t.Errorf("silence must yield no chord, got %+v", g)
	}
}

func TestMagnitudesInto(t *testing.T) {
	a := newTestAnalyzer(t, utils.GenerateSineWave(testFFTSize, testSampleRate, binFreq(100)))

	dst := make([]int16, testFFTSize)
	if err := a.MagnitudesInto(dst); err != nil {
		t.Fatalf("MagnitudesInto failed: %v", err)
	}
	if peak := utils.FindPeakBin(dst, 1, testFFTSize/2); peak != 100 {
		t.Errorf("peak bin: got %d, want 100", peak)
	}

	if err := a.MagnitudesInto(make([]int16, 10)); err == nil {
		t.Error("expected error for mismatched destination length")
	}
}
