package utils

import "math"

// SampleMax is the peak amplitude used by the generators, slightly below
// the int16 ceiling to avoid clipping artifacts in tests.
const SampleMax = 32767 * 0.9

// GenerateComplexWave produces a 440Hz fundamental plus two harmonics,
// useful for exercising pitch estimation.
func GenerateComplexWave(size int, sampleRate float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2 // 440Hz fundamental + harmonics
		buffer[i] = int16(signal * SampleMax)
	}
	return buffer
}

// GenerateSineWave produces a pure tone at the given frequency.
func GenerateSineWave(size int, sampleRate, frequency float64) []int16 {
	buffer := make([]int16, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = int16(math.Sin(2*math.Pi*frequency*t) * SampleMax)
	}
	return buffer
}

// GenerateChordWave mixes pure tones at the given frequencies with equal
// weight, for exercising chord identification.
func GenerateChordWave(size int, sampleRate float64, frequencies ...float64) []int16 {
	buffer := make([]int16, size)
	if len(frequencies) == 0 {
		return buffer
	}
	weight := 1.0 / float64(len(frequencies))
	for i := range buffer {
		t := float64(i) / sampleRate
		var signal float64
		for _, f := range frequencies {
			signal += math.Sin(2*math.Pi*f*t) * weight
		}
		buffer[i] = int16(signal * SampleMax)
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude in
// [startBin, endBin], clamped to the slice bounds.
func FindPeakBin(magnitudes []int16, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
