package core

import "math"

// MillisecondsToSamples converts a duration in milliseconds to a whole
// number of samples, rounding to nearest.
func MillisecondsToSamples(ms, sampleRate float64) int {
	return int(math.Round(ms * sampleRate / 1000))
}

// SamplesToMilliseconds converts a sample count to milliseconds.
func SamplesToMilliseconds(samples int, sampleRate float64) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(samples) * 1000 / sampleRate
}
