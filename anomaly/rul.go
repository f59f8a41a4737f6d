package anomaly

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const minObservations = 5

// RUL extrapolates the time at which the anomaly score reaches FailureScore from a linear fit of
// the most recent half of its history.
type RUL struct {
	FailureScore float64

	times, scores []float64
}

func NewRUL(failureScore float64) *RUL { return &RUL{FailureScore: failureScore} }

func (r *RUL) Add(t, score float64) {
	r.times = append(r.times, t)
	r.scores = append(r.scores, score)
}

func (r *RUL) Len() int { return len(r.times) }

// Estimate returns the remaining time to failure, 0 if it is already due, or -1 when there are
// fewer than five observations or the trend is flat or falling.
func (r *RUL) Estimate() float64 {
	n := len(r.times)
	if n < minObservations {
		return -1
	}
	ts, ss := r.times[n/2:], r.scores[n/2:]
	m := float64(len(ts))
	den := stat.Variance(ts, nil) * (m - 1)
	num := stat.Covariance(ts, ss, nil) * (m - 1)
	if math.Abs(den) < 1e-12 || math.Abs(num) < 1e-12 {
		return -1
	}
	intercept, slope := stat.LinearRegression(ts, ss, nil, false)
	if slope <= 0 {
		return -1
	}
	tFail := (r.FailureScore - intercept) / slope
	return math.Max(tFail-r.times[n-1], 0)
}

func (r *RUL) Reset() {
	r.times = r.times[:0]
	r.scores = r.scores[:0]
}
