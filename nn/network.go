package nn

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
)

// Network is an ordered stack of dense layers.
type Network struct {
	Config
	Layers []*Layer
}

// New creates a network. It panics if the config is invalid.
func New(conf Config, r *rand.Rand) *Network {
	if !conf.IsValid() {
		panic(fmt.Sprintf("invalid network config %v", conf.Sizes))
	}
	retVal := &Network{
		Config: conf,
		Layers: make([]*Layer, len(conf.Acts)),
	}
	for i := range retVal.Layers {
		retVal.Layers[i] = NewLayer(conf.Sizes[i], conf.Sizes[i+1], conf.Acts[i], r)
	}
	return retVal
}

// Forward runs x through every layer. The returned slice belongs to the output layer.
func (n *Network) Forward(x []float64) []float64 {
	h := x
	for _, l := range n.Layers {
		h = l.Forward(h)
	}
	return h
}

// Predict is Forward with a copied output.
func (n *Network) Predict(x []float64) []float64 {
	out := n.Forward(x)
	retVal := make([]float64, len(out))
	copy(retVal, out)
	return retVal
}

// Backward backpropagates the summed squared error Σ(y-t)² and returns it.
func (n *Network) Backward(pred, target []float64) float64 {
	loss, grad := SquaredError(pred, target)
	n.BackwardGrad(grad)
	return loss
}

// BackwardGrad backpropagates an arbitrary output gradient.
func (n *Network) BackwardGrad(dOut []float64) {
	d := dOut
	for i := len(n.Layers) - 1; i >= 0; i-- {
		d = n.Layers[i].Backward(d)
	}
}

// Update applies an SGD step to every layer.
func (n *Network) Update(lr float64) {
	for _, l := range n.Layers {
		l.Update(lr)
	}
}

// NumParams is the total number of weights and biases.
func (n *Network) NumParams() int {
	var retVal int
	for _, l := range n.Layers {
		retVal += l.NumParams()
	}
	return retVal
}

// MemoryBytes estimates the float32 deployment footprint.
func (n *Network) MemoryBytes() int { return 4 * n.NumParams() }

// CopyTo copies the parameters into a network of the same shape.
func (n *Network) CopyTo(dst *Network) error {
	if len(dst.Layers) != len(n.Layers) {
		return errors.Errorf("cannot copy %d layers into %d layers", len(n.Layers), len(dst.Layers))
	}
	for i, l := range n.Layers {
		d := dst.Layers[i]
		if d.In != l.In || d.Out != l.Out {
			return errors.Errorf("layer %d: cannot copy %d→%d into %d→%d", i, l.In, l.Out, d.In, d.Out)
		}
		l.copyTo(d)
	}
	return nil
}

// Clone returns a deep copy.
func (n *Network) Clone() *Network {
	conf := Config{
		Sizes: append([]int(nil), n.Sizes...),
		Acts:  append([]Activation(nil), n.Acts...),
	}
	retVal := &Network{
		Config: conf,
		Layers: make([]*Layer, len(n.Layers)),
	}
	for i, l := range n.Layers {
		c := &Layer{
			In:  l.In,
			Out: l.Out,
			Act: l.Act,
			W:   matrix(l.Out, l.In),
			B:   make([]float64, l.Out),
			DW:  matrix(l.Out, l.In),
			DB:  make([]float64, l.Out),
			x:   make([]float64, l.In),
			z:   make([]float64, l.Out),
			a:   make([]float64, l.Out),
		}
		l.copyTo(c)
		retVal.Layers[i] = c
	}
	return retVal
}

func (n *Network) String() string {
	return fmt.Sprintf("%v (%d params)", n.Sizes, n.NumParams())
}
