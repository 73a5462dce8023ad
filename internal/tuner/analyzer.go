// SPDX-License-Identifier: MIT
/*
Package tuner drives the analysis path: on every refresh tick it peeks the
freshest FFT-length window from the sample queue, computes its magnitude
spectrum, and derives the tuner and chord-guesser results from it.

The Analyzer sits between the real-time audio contexts and the display:
PeekFreshData never disturbs the playback cursor, so the analysis cadence
is fully decoupled from the audio block cadence.
*/
package tuner

import (
	"fmt"
	"sort"
	"sync"

	"chordscope/internal/analysis"
	"chordscope/internal/chord"
	"chordscope/internal/dsp"
	applog "chordscope/internal/log"
	"chordscope/internal/queue"
)

const (
	// pitchPeaks and chordPeaks are how many spectral spikes feed pitch
	// estimation and chord guessing respectively.
	pitchPeaks = 5
	chordPeaks = 10

	// DefaultMaxChordNotes caps how many distinct tones the chord
	// guesser collects before matching.
	DefaultMaxChordNotes = 4

	// peakFloorRatio discards spikes quieter than this fraction of the
	// loudest spike; below it they are indistinguishable from noise and
	// would poison the common-factor reduction.
	peakFloorRatio = 0.05

	// quartertone is the ratio between two tones half a semitone apart.
	// Spikes closer than this are treated as the same tone.
	quartertone = 1.0293022366 // 2^(1/24)
)

// Config carries the analysis parameters.
type Config struct {
	FFTSize    int     // transform length, power of two
	SampleRate float64 // capture rate in Hz
	Window     string  // FFT window function name, "" or "none" for rectangular
	Scale      float64 // magnitude scaling before clipping
}

// Pitch is the auto-tuner result. OK is false when no pitch was detected;
// that is a valid outcome, not an error.
type Pitch struct {
	OK    bool
	Freq  float64 // estimated fundamental, Hz
	Class int     // pitch class in [1,12], 1 = A
	Name  string
	Cents float64 // signed deviation from the named class
}

// Guess is the chord-guesser result. OK is false when the detected tones
// match no dictionary chord.
type Guess struct {
	OK    bool
	Name  string
	Notes []int // detected pitch classes, sorted ascending
}

// Analyzer owns the spectrum workspace and the latest magnitude snapshot.
// Refresh is meant to be driven by a single ticker; the result accessors
// are safe to call from other goroutines.
type Analyzer struct {
	q      *queue.Queue
	spec   *dsp.Spectrum
	mapper analysis.Mapper
	scale  float64

	mu     sync.RWMutex
	window []int16 // raw sample snapshot, guarded by mu
	mags   []int16 // magnitude spectrum, guarded by mu
	fresh  bool    // at least one successful Refresh
}

// New creates an Analyzer reading from q.
func New(q *queue.Queue, cfg Config) (*Analyzer, error) {
	if q == nil {
		return nil, fmt.Errorf("tuner: queue must not be nil")
	}
	if cfg.Scale <= 0 {
		cfg.Scale = dsp.DefaultScale
	}

	spec, err := dsp.NewSpectrum(cfg.FFTSize, cfg.Window)
	if err != nil {
		return nil, err
	}

	applog.Infof("Tuner: analyzer initialized (FFT: %d, Rate: %.0f Hz, Window: %q)",
		cfg.FFTSize, cfg.SampleRate, cfg.Window)

	return &Analyzer{
		q:      q,
		spec:   spec,
		mapper: analysis.Mapper{SampleRate: cfg.SampleRate, FFTSize: cfg.FFTSize},
		scale:  cfg.Scale,
		window: make([]int16, cfg.FFTSize),
		mags:   make([]int16, cfg.FFTSize),
	}, nil
}

// Mapper returns the bin/frequency converter for this analyzer's
// configuration.
func (a *Analyzer) Mapper() analysis.Mapper { return a.mapper }

// Size returns the transform length.
func (a *Analyzer) Size() int { return a.spec.Size() }

// Refresh snapshots the freshest FFT window from the queue and recomputes
// the magnitude spectrum. A queue underflow (not enough audio captured
// yet) is returned as-is so callers can skip the frame.
func (a *Analyzer) Refresh() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.q.PeekFreshData(a.window, 1); err != nil {
		return err
	}
	if err := a.spec.Analyze(a.mags, a.window, a.scale); err != nil {
		return err
	}
	a.fresh = true
	return nil
}

// MagnitudesInto copies the latest magnitude spectrum into dst, which must
// be Size() long.
func (a *Analyzer) MagnitudesInto(dst []int16) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(dst) != len(a.mags) {
		return fmt.Errorf("tuner: destination length %d does not match spectrum length %d", len(dst), len(a.mags))
	}
	copy(dst, a.mags)
	return nil
}

// DetectPitch estimates the fundamental of the current spectrum: the five
// largest de-clumped spikes are reduced to an approximate common factor,
// which is then folded to a pitch class with its cents deviation.
func (a *Analyzer) DetectPitch() (Pitch, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	freqs, err := a.spikeFrequencies(pitchPeaks)
	if err != nil {
		return Pitch{}, err
	}

	var f float64
	switch len(freqs) {
	case 0:
		return Pitch{}, nil // silence
	case 1:
		f = freqs[0] // a single clean spike is its own fundamental
	default:
		f, err = analysis.ApproxHCF(freqs, analysis.DefaultHCFThreshold)
		if err != nil {
			return Pitch{}, err
		}
	}
	if f <= 0 {
		return Pitch{}, nil // spikes share no usable common factor
	}

	class, cents, err := analysis.PitchClassOf(f)
	if err != nil {
		return Pitch{}, err
	}
	name, err := analysis.PitchName(class)
	if err != nil {
		return Pitch{}, err
	}
	return Pitch{OK: true, Freq: f, Class: class, Name: name, Cents: cents}, nil
}

// GuessChord collects up to maxNotes tonally distinct spikes (at least a
// quartertone apart), folds them to pitch classes, and matches the set
// against the chord dictionary.
func (a *Analyzer) GuessChord(maxNotes int) (Guess, error) {
	if maxNotes <= 0 {
		maxNotes = DefaultMaxChordNotes
	}

	a.mu.RLock()
	freqs, err := a.spikeFrequencies(chordPeaks)
	a.mu.RUnlock()
	if err != nil {
		return Guess{}, err
	}
	if len(freqs) == 0 {
		return Guess{}, nil
	}

	// Keep only tones at least a quartertone apart from every tone
	// already accepted.
	var tones []float64
	for _, f := range freqs {
		if len(tones) >= maxNotes {
			break
		}
		distinct := true
		for _, t := range tones {
			hi, lo := f, t
			if hi < lo {
				hi, lo = lo, hi
			}
			if hi/lo < quartertone {
				distinct = false
				break
			}
		}
		if distinct {
			tones = append(tones, f)
		}
	}

	notes := make([]int, 0, len(tones))
	for _, f := range tones {
		class, _, err := analysis.PitchClassOf(f)
		if err != nil {
			return Guess{}, err
		}
		notes = append(notes, class)
	}
	sort.Ints(notes)
	notes = dedupe(notes)

	c, ok, err := chord.Identify(notes)
	if err != nil {
		return Guess{}, err
	}
	if !ok {
		return Guess{Notes: notes}, nil
	}
	return Guess{OK: true, Name: c.Name, Notes: notes}, nil
}

// spikeFrequencies returns the frequencies of the k largest de-clumped
// spectral spikes, discarding spikes below the relative noise floor.
// Caller must hold at least a read lock.
func (a *Analyzer) spikeFrequencies(k int) ([]float64, error) {
	if !a.fresh {
		return nil, nil
	}

	half := a.mags[:len(a.mags)/2]
	indices, err := analysis.FindNLargest(half, k, true)
	if err != nil {
		return nil, err
	}
	if len(indices) == 0 || half[indices[0]] == 0 {
		return nil, nil
	}

	floor := int16(float64(half[indices[0]]) * peakFloorRatio)
	freqs := make([]float64, 0, len(indices))
	for _, idx := range indices {
		if idx == 0 || half[idx] <= floor {
			continue // DC carries no pitch; quiet spikes are noise
		}
		freqs = append(freqs, a.mapper.Index2Freq(idx))
	}
	return freqs, nil
}

func dedupe(sorted []int) []int {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}
