package nn

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
)

// Dataset holds training inputs and targets as dense row-major matrices.
type Dataset struct {
	X, Y *tensor.Dense

	xs, ys [][]float64 // row views into X and Y
}

// NewDataset copies xs and ys into a Dataset. Every row of xs must have the same width, and so must
// every row of ys.
func NewDataset(xs, ys [][]float64) (*Dataset, error) {
	if len(xs) == 0 {
		return nil, errors.New("empty dataset")
	}
	if len(xs) != len(ys) {
		return nil, errors.Errorf("%d inputs but %d targets", len(xs), len(ys))
	}
	var errs manyErr
	xw, yw := len(xs[0]), len(ys[0])
	if xw == 0 || yw == 0 {
		return nil, errors.Errorf("zero-width rows: %d inputs, %d targets", xw, yw)
	}
	xback := make([]float64, 0, len(xs)*xw)
	yback := make([]float64, 0, len(ys)*yw)
	for i := range xs {
		if len(xs[i]) != xw {
			errs = append(errs, errors.Errorf("input row %d has width %d, want %d", i, len(xs[i]), xw))
			continue
		}
		if len(ys[i]) != yw {
			errs = append(errs, errors.Errorf("target row %d has width %d, want %d", i, len(ys[i]), yw))
			continue
		}
		xback = append(xback, xs[i]...)
		yback = append(yback, ys[i]...)
	}
	if len(errs) > 0 {
		return nil, errs
	}

	retVal := &Dataset{
		X: tensor.New(tensor.WithShape(len(xs), xw), tensor.WithBacking(xback)),
		Y: tensor.New(tensor.WithShape(len(ys), yw), tensor.WithBacking(yback)),
	}
	var err error
	if retVal.xs, err = native.MatrixF64(retVal.X); err != nil {
		return nil, errors.Wrapf(err, "dataset inputs")
	}
	if retVal.ys, err = native.MatrixF64(retVal.Y); err != nil {
		return nil, errors.Wrapf(err, "dataset targets")
	}
	return retVal, nil
}

// Len is the number of samples.
func (d *Dataset) Len() int { return len(d.xs) }

// Row returns the i-th sample. The slices alias the dataset.
func (d *Dataset) Row(i int) (x, y []float64) { return d.xs[i], d.ys[i] }

// InWidth is the input width.
func (d *Dataset) InWidth() int { return d.X.Shape()[1] }

// OutWidth is the target width.
func (d *Dataset) OutWidth() int { return d.Y.Shape()[1] }

// Inputs returns the row views of the inputs.
func (d *Dataset) Inputs() [][]float64 { return d.xs }

type manyErr []error

func (err manyErr) Error() string {
	var buf bytes.Buffer
	for _, e := range err {
		fmt.Fprintln(&buf, e.Error())
	}
	return buf.String()
}
