package nn

import (
	"fmt"

	"github.com/chewxy/math32"
	"gorgonia.org/vecf32"
)

// Net32 is a float32, inference-only copy of a Network, laid out the way a microcontroller
// deployment would hold it.
type Net32 struct {
	Sizes  []int
	layers []layer32
}

type layer32 struct {
	in, out int
	act     Activation
	w       []float32 // row-major out×in
	b       []float32
	tmp     []float32
}

// Quantize converts n to float32.
func Quantize(n *Network) *Net32 {
	retVal := &Net32{
		Sizes:  append([]int(nil), n.Sizes...),
		layers: make([]layer32, len(n.Layers)),
	}
	for i, l := range n.Layers {
		q := layer32{
			in:  l.In,
			out: l.Out,
			act: l.Act,
			w:   make([]float32, l.In*l.Out),
			b:   make([]float32, l.Out),
			tmp: make([]float32, l.In),
		}
		for r, row := range l.W {
			for c, w := range row {
				q.w[r*l.In+c] = float32(w)
			}
			q.b[r] = float32(l.B[r])
		}
		retVal.layers[i] = q
	}
	return retVal
}

// Forward runs inference in float32.
func (n *Net32) Forward(x []float32) []float32 {
	if len(x) != n.Sizes[0] {
		panic(fmt.Sprintf("Net32 expects %d inputs, got %d", n.Sizes[0], len(x)))
	}
	h := x
	for i := range n.layers {
		h = n.layers[i].forward(h)
	}
	return h
}

func (l *layer32) forward(x []float32) []float32 {
	out := make([]float32, l.out)
	for r := 0; r < l.out; r++ {
		copy(l.tmp, l.w[r*l.in:(r+1)*l.in])
		vecf32.Mul(l.tmp, x)
		var acc float32
		for _, v := range l.tmp {
			acc += v
		}
		out[r] = acc
	}
	vecf32.Add(out, l.b)
	switch l.act {
	case Tanh:
		for i := range out {
			out[i] = math32.Tanh(out[i])
		}
	case ReLU:
		for i := range out {
			out[i] = math32.Max(out[i], 0)
		}
	}
	return out
}

// MemoryBytes is the size of the float32 parameters.
func (n *Net32) MemoryBytes() int {
	var retVal int
	for _, l := range n.layers {
		retVal += 4 * (len(l.w) + len(l.b))
	}
	return retVal
}
