package drive

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const maxHarmonic = 20

// Harmonics returns the amplitudes of harmonics 1 to n of f0 in samples taken at fs, evaluated by
// direct DFT after removing the DC level. Index 0 is the fundamental.
func Harmonics(samples []float64, f0, fs float64, n int) []float64 {
	mean := stat.Mean(samples, nil)
	retVal := make([]float64, n)
	for h := 1; h <= n; h++ {
		w := twoPi * float64(h) * f0 / fs
		var re, im float64
		for i, s := range samples {
			sin, cos := math.Sincos(w * float64(i))
			re += (s - mean) * cos
			im += (s - mean) * sin
		}
		retVal[h-1] = 2 * math.Hypot(re, im) / float64(len(samples))
	}
	return retVal
}

// THD returns the total harmonic distortion in percent of samples taken at fs, relative to the
// fundamental f0, over harmonics 2 to 20.
// Fewer than 10 samples or a vanishing fundamental give 0.
func THD(samples []float64, f0, fs float64) float64 {
	if len(samples) < 10 || f0 <= 0 || fs <= 0 {
		return 0
	}
	mags := Harmonics(samples, f0, fs, maxHarmonic)
	if mags[0] < 1e-10 {
		return 0
	}
	var harm float64
	for _, m := range mags[1:] {
		harm += m * m
	}
	return math.Sqrt(harm) / mags[0] * 100
}
