package nn

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// stdFloor keeps near-constant dimensions from blowing up the normalised values.
const stdFloor = 1e-8

// Normalizer standardises vectors with per-dimension statistics computed once from a training set.
type Normalizer struct {
	Mean []float64
	Std  []float64
}

// Fit computes the population mean and standard deviation of every column of rows.
// A column with zero variance gets a standard deviation of 1.
func Fit(rows [][]float64) (Normalizer, error) {
	if len(rows) == 0 {
		return Normalizer{}, errors.New("cannot fit a normalizer on zero rows")
	}
	width := len(rows[0])
	retVal := Normalizer{
		Mean: make([]float64, width),
		Std:  make([]float64, width),
	}
	col := make([]float64, len(rows))
	for d := 0; d < width; d++ {
		for i, row := range rows {
			if len(row) != width {
				return Normalizer{}, errors.Errorf("row %d has width %d, want %d", i, len(row), width)
			}
			col[i] = row[d]
		}
		mean, variance := stat.PopMeanVariance(col, nil)
		retVal.Mean[d] = mean
		retVal.Std[d] = 1
		if variance > 0 {
			retVal.Std[d] = math.Sqrt(variance)
		}
	}
	return retVal, nil
}

// FitScalar fits a one-dimensional normalizer.
func FitScalar(vals []float64) (Normalizer, error) {
	rows := make([][]float64, len(vals))
	for i := range vals {
		rows[i] = vals[i : i+1]
	}
	return Fit(rows)
}

// Width is the number of dimensions.
func (n Normalizer) Width() int { return len(n.Mean) }

// Apply returns the standardised copy of x.
func (n Normalizer) Apply(x []float64) []float64 {
	if len(x) != len(n.Mean) {
		panic(errors.Errorf("normalizer expects %d values, got %d", len(n.Mean), len(x)))
	}
	retVal := make([]float64, len(x))
	for i, v := range x {
		retVal[i] = (v - n.Mean[i]) / math.Max(n.Std[i], stdFloor)
	}
	return retVal
}

// ApplyAll standardises every row.
func (n Normalizer) ApplyAll(rows [][]float64) [][]float64 {
	retVal := make([][]float64, len(rows))
	for i, row := range rows {
		retVal[i] = n.Apply(row)
	}
	return retVal
}

// Denorm maps a standardised value of dimension d back to its original scale.
func (n Normalizer) Denorm(d int, v float64) float64 { return v*n.Std[d] + n.Mean[d] }

// Clone returns a deep copy.
func (n Normalizer) Clone() Normalizer {
	return Normalizer{
		Mean: append([]float64(nil), n.Mean...),
		Std:  append([]float64(nil), n.Std...),
	}
}
