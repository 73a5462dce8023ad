// SPDX-License-Identifier: MIT
package tuner

import (
	"fmt"
	"math"

	"chordscope/internal/analysis"
)

// HistogramMode selects how spectrum bins are bucketed onto display bars.
type HistogramMode int

const (
	// Semilog spreads a fixed frequency range logarithmically across the
	// bars, dividing each bin's energy by its index.
	Semilog HistogramMode = iota
	// Linear spreads a fixed frequency range evenly across the bars.
	Linear
	// LogLog is Semilog without gap smoothing, for a denser look.
	LogLog
	// Octave wraps the whole spectrum into a single octave starting at
	// A1 (55 Hz), one bar range per semitone: the spectral guitar tuner.
	Octave
)

// String returns the display label for the mode.
func (m HistogramMode) String() string {
	switch m {
	case Semilog:
		return "semilog"
	case Linear:
		return "linear"
	case LogLog:
		return "log-log"
	case Octave:
		return "octave"
	default:
		return "unknown"
	}
}

// ParseHistogramMode converts a config string to a HistogramMode.
func ParseHistogramMode(name string) (HistogramMode, error) {
	switch name {
	case "semilog", "":
		return Semilog, nil
	case "linear":
		return Linear, nil
	case "loglog", "log-log":
		return LogLog, nil
	case "octave":
		return Octave, nil
	default:
		return Semilog, fmt.Errorf("unknown histogram mode: '%s'", name)
	}
}

// octaveBaseFreq is where the wrapped display starts: A1.
const octaveBaseFreq = 55.0

// Histogram buckets the current magnitude spectrum into bars display
// bars. minFreq and maxFreq bound the displayed range for the Semilog,
// Linear, and LogLog modes; Octave ignores them. The returned scale is
// 1/max(bars) when adaptive is set (0 when all bars are empty), otherwise 0
// meaning "use the configured fixed scale".
func (a *Analyzer) Histogram(mode HistogramMode, bars int, minFreq, maxFreq float64, adaptive bool) ([]int, float64, error) {
	if bars <= 0 {
		return nil, 0, fmt.Errorf("%w: got %d bars", analysis.ErrInvalidSize, bars)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]int, bars)
	var err error
	switch mode {
	case Semilog, LogLog:
		err = a.fillLog(out, minFreq, maxFreq)
		if err == nil && mode == Semilog {
			smooth(out)
		}
	case Linear:
		err = a.fillLinear(out, minFreq, maxFreq)
		if err == nil {
			smooth(out)
		}
	case Octave:
		a.fillOctave(out)
	default:
		err = fmt.Errorf("unknown histogram mode: %d", mode)
	}
	if err != nil {
		return nil, 0, err
	}

	if !adaptive {
		return out, 0, nil
	}
	return out, adaptiveScale(out), nil
}

// fillLog buckets bins [freq2index(min), freq2index(max)) onto a
// logarithmic bar axis, weighting each bin by 1/index so low and high
// ends carry comparable visual energy.
func (a *Analyzer) fillLog(bars []int, minFreq, maxFreq float64) error {
	lo := int(a.mapper.Freq2Index(minFreq))
	hi := int(a.mapper.Freq2Index(maxFreq))
	if lo < 1 {
		lo = 1
	}
	if hi > len(a.mags) {
		hi = len(a.mags)
	}

	n := float64(len(bars))
	for i := lo; i < hi; i++ {
		pos, err := analysis.MapLin2Log(float64(lo), float64(hi-lo), 0, n, float64(i))
		if err != nil {
			return err
		}
		idx := clampBar(int(pos), len(bars))
		bars[idx] += int(a.mags[i]) / i
	}
	return nil
}

// fillLinear buckets bins evenly across the bar axis.
func (a *Analyzer) fillLinear(bars []int, minFreq, maxFreq float64) error {
	lo := int(a.mapper.Freq2Index(minFreq))
	hi := int(a.mapper.Freq2Index(maxFreq))
	if lo < 0 {
		lo = 0
	}
	if hi > len(a.mags) {
		hi = len(a.mags)
	}
	if hi <= lo {
		return fmt.Errorf("%w: frequency range [%f, %f) maps to no bins", analysis.ErrInvalidSize, minFreq, maxFreq)
	}

	bucketWidth := len(a.mags) / len(bars)
	if bucketWidth < 1 {
		bucketWidth = 1
	}
	for i := lo; i < hi; i++ {
		idx := clampBar(len(bars)*(i-lo)/(hi-lo), len(bars))
		bars[idx] += int(a.mags[i]) / bucketWidth
	}
	return nil
}

// fillOctave lays the A1-A2 octave across the bar axis, one bar range per
// semitone from A to G#, normalizing each bucket by its bin width.
func (a *Analyzer) fillOctave(bars []int) {
	n := len(bars)
	edges := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		edges[i] = a.mapper.Freq2Index(octaveBaseFreq * math.Pow(2, float64(i)/float64(n)))
	}

	for i := 0; i < n; i++ {
		start, end := edges[i], edges[i+1]
		width := end - start
		if width <= 0 {
			continue
		}
		for j := int(math.Round(start)); j < int(math.Round(end)) && j < len(a.mags); j++ {
			if j < 0 {
				continue
			}
			bars[i] += int(float64(a.mags[j]) / width)
		}
	}
}

// smooth fills single-bar gaps with the average of the neighbors, hiding
// the holes a logarithmic remap leaves between sparse low bins.
func smooth(bars []int) {
	for i := 1; i < len(bars)-1; i++ {
		if bars[i] == 0 {
			bars[i] = (bars[i-1] + bars[i+1]) / 2
		}
	}
}

// adaptiveScale returns 1/max so the tallest bar exactly fills the graph.
func adaptiveScale(bars []int) float64 {
	max := 0
	for _, b := range bars {
		if b > max {
			max = b
		}
	}
	if max == 0 {
		return 0
	}
	return 1 / float64(max)
}

func clampBar(idx, n int) int {
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}
