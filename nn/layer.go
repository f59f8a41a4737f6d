package nn

import (
	"fmt"
	"math"
	"math/rand"
)

// Layer is a dense layer: a = act(W·x + b).
//
// W is laid out row-major with the output index first, so W[i][j] connects input j to output i.
type Layer struct {
	In, Out int
	Act     Activation

	W [][]float64
	B []float64

	// gradients of the most recent Backward call
	DW [][]float64
	DB []float64

	// forward cache
	x, z, a []float64
}

func matrix(rows, cols int) [][]float64 {
	backing := make([]float64, rows*cols)
	retVal := make([][]float64, rows)
	for i := range retVal {
		retVal[i] = backing[i*cols : (i+1)*cols : (i+1)*cols]
	}
	return retVal
}

// NewLayer creates a layer with Xavier-uniform weights and zero biases.
func NewLayer(in, out int, act Activation, r *rand.Rand) *Layer {
	if in < 1 || out < 1 {
		panic(fmt.Sprintf("invalid layer shape %d→%d", in, out))
	}
	l := &Layer{
		In:  in,
		Out: out,
		Act: act,
		W:   matrix(out, in),
		B:   make([]float64, out),
		DW:  matrix(out, in),
		DB:  make([]float64, out),
		x:   make([]float64, in),
		z:   make([]float64, out),
		a:   make([]float64, out),
	}
	limit := math.Sqrt(6 / float64(in+out))
	for i := range l.W {
		for j := range l.W[i] {
			l.W[i][j] = (2*r.Float64() - 1) * limit
		}
	}
	return l
}

// Forward computes the activations for x. The returned slice is owned by the layer and is
// overwritten by the next call.
func (l *Layer) Forward(x []float64) []float64 {
	if len(x) != l.In {
		panic(fmt.Sprintf("layer expects %d inputs, got %d", l.In, len(x)))
	}
	copy(l.x, x)
	for i, row := range l.W {
		z := l.B[i]
		for j, w := range row {
			z += w * x[j]
		}
		l.z[i] = z
		l.a[i] = l.Act.apply(z)
	}
	return l.a
}

// Backward takes the gradient of the loss w.r.t. this layer's output and returns the gradient w.r.t.
// its input. DW and DB are overwritten, never accumulated.
func (l *Layer) Backward(dOut []float64) []float64 {
	if len(dOut) != l.Out {
		panic(fmt.Sprintf("layer expects %d output gradients, got %d", l.Out, len(dOut)))
	}
	dIn := make([]float64, l.In)
	for i := 0; i < l.Out; i++ {
		delta := dOut[i] * l.Act.deriv(l.z[i], l.a[i])
		l.DB[i] = delta
		row, drow := l.W[i], l.DW[i]
		for j := 0; j < l.In; j++ {
			drow[j] = delta * l.x[j]
			dIn[j] += row[j] * delta
		}
	}
	return dIn
}

// Update applies one plain gradient descent step.
func (l *Layer) Update(lr float64) {
	for i := range l.W {
		row, drow := l.W[i], l.DW[i]
		for j := range row {
			row[j] -= lr * drow[j]
		}
		l.B[i] -= lr * l.DB[i]
	}
}

// NumParams is the number of weights and biases.
func (l *Layer) NumParams() int { return l.In*l.Out + l.Out }

func (l *Layer) copyTo(dst *Layer) {
	for i := range l.W {
		copy(dst.W[i], l.W[i])
	}
	copy(dst.B, l.B)
}
