package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	for _, conf := range []Config{ThermalConf(), ObserverConf(), AutoencoderConf()} {
		if !conf.IsValid() {
			t.Errorf("Expected %v to be valid", conf.Sizes)
		}
	}
	bad := []Config{
		{},
		{Sizes: []int{3}},
		{Sizes: []int{3, 0}, Acts: []Activation{Linear}},
		{Sizes: []int{3, 2}, Acts: []Activation{Linear, Tanh}},
		{Sizes: []int{3, 2}, Acts: []Activation{maxActivation}},
	}
	for i, conf := range bad {
		if conf.IsValid() {
			t.Errorf("%d: Expected %+v to be invalid", i, conf)
		}
	}
}

var paramCounts = []struct {
	conf   Config
	params int
}{
	{ThermalConf(), 81},
	{ObserverConf(), 371},
	{AutoencoderConf(), 288},
}

func TestNumParams(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, c := range paramCounts {
		n := New(c.conf, r)
		if got := n.NumParams(); got != c.params {
			t.Errorf("%v: expected %d params. Got %d instead", c.conf.Sizes, c.params, got)
		}
		if got := n.MemoryBytes(); got != 4*c.params {
			t.Errorf("%v: expected %d bytes. Got %d instead", c.conf.Sizes, 4*c.params, got)
		}
	}
}

func TestXavierInit(t *testing.T) {
	assert := assert.New(t)
	r := rand.New(rand.NewSource(7))
	l := NewLayer(12, 16, Tanh, r)
	limit := math.Sqrt(6.0 / 28.0)
	for i := range l.W {
		for j := range l.W[i] {
			assert.True(math.Abs(l.W[i][j]) <= limit, "W[%d][%d] = %v outside ±%v", i, j, l.W[i][j], limit)
		}
	}
	assert.Equal(make([]float64, 16), l.B)
}

func TestLayerForward(t *testing.T) {
	assert := assert.New(t)
	l := NewLayer(2, 2, ReLU, rand.New(rand.NewSource(1)))
	l.W[0][0], l.W[0][1] = 1, 2
	l.W[1][0], l.W[1][1] = -1, -1
	l.B[0], l.B[1] = 0.5, 0

	out := l.Forward([]float64{1, 1})
	assert.Equal([]float64{3.5, 0}, out)

	l.Act = Tanh
	out = l.Forward([]float64{1, 1})
	assert.InDelta(math.Tanh(3.5), out[0], 1e-12)
	assert.InDelta(math.Tanh(-2), out[1], 1e-12)
}

func TestLayerShapeMismatchPanics(t *testing.T) {
	l := NewLayer(3, 2, Linear, rand.New(rand.NewSource(1)))
	assert.Panics(t, func() { l.Forward([]float64{1, 2}) })
	l.Forward([]float64{1, 2, 3})
	assert.Panics(t, func() { l.Backward([]float64{1}) })
}

func TestLayerBackward(t *testing.T) {
	assert := assert.New(t)
	l := NewLayer(3, 2, Linear, rand.New(rand.NewSource(3)))
	x := []float64{0.5, -1, 2}
	l.Forward(x)
	dOut := []float64{1, -2}
	dIn := l.Backward(dOut)

	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(dOut[i]*x[j], l.DW[i][j], 1e-12)
		}
		assert.InDelta(dOut[i], l.DB[i], 1e-12)
	}
	for j := 0; j < 3; j++ {
		want := l.W[0][j]*dOut[0] + l.W[1][j]*dOut[1]
		assert.InDelta(want, dIn[j], 1e-12)
	}

	// gradients are overwritten, not accumulated
	l.Forward(x)
	l.Backward(dOut)
	assert.InDelta(dOut[0]*x[0], l.DW[0][0], 1e-12)
}

// numerical check of the full network gradient against central differences.
func TestNetworkGradient(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	conf := Config{Sizes: []int{3, 4, 2}, Acts: []Activation{Tanh, Linear}}
	n := New(conf, r)
	x := []float64{0.3, -0.7, 1.1}
	target := []float64{0.2, -0.4}

	n.Backward(n.Forward(x), target)
	lossAt := func() float64 {
		l, _ := SquaredError(n.Forward(x), target)
		return l
	}

	const h = 1e-6
	for li, l := range n.Layers {
		analytic := make([][]float64, len(l.DW))
		for i := range l.DW {
			analytic[i] = append([]float64(nil), l.DW[i]...)
		}
		for i := range l.W {
			for j := range l.W[i] {
				orig := l.W[i][j]
				l.W[i][j] = orig + h
				up := lossAt()
				l.W[i][j] = orig - h
				down := lossAt()
				l.W[i][j] = orig
				numeric := (up - down) / (2 * h)
				if math.Abs(numeric-analytic[i][j]) > 1e-5 {
					t.Errorf("layer %d W[%d][%d]: numeric %v, analytic %v", li, i, j, numeric, analytic[i][j])
				}
			}
		}
	}
}

func TestUpdate(t *testing.T) {
	l := NewLayer(2, 1, Linear, rand.New(rand.NewSource(1)))
	l.W[0][0], l.W[0][1], l.B[0] = 1, 1, 1
	l.Forward([]float64{1, 2})
	l.Backward([]float64{1})
	l.Update(0.1)
	want := [][]float64{{0.9, 0.8}}
	if diff := cmp.Diff(want, l.W, cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) < 1e-12 })); diff != "" {
		t.Errorf("weights after update (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 0.9, l.B[0], 1e-12)
}

func TestNewPanicsOnInvalidConfig(t *testing.T) {
	assert.Panics(t, func() { New(Config{Sizes: []int{2}}, rand.New(rand.NewSource(1))) })
}

func TestCloneAndCopy(t *testing.T) {
	assert := assert.New(t)
	r := rand.New(rand.NewSource(5))
	a := New(ObserverConf(), r)
	b := a.Clone()
	x := make([]float64, 12)
	for i := range x {
		x[i] = float64(i) / 12
	}
	assert.Equal(a.Predict(x), b.Predict(x))

	// mutating the clone leaves the original untouched
	b.Layers[0].W[0][0] += 1
	assert.NotEqual(a.Predict(x), b.Predict(x))

	c := New(ObserverConf(), r)
	assert.NoError(a.CopyTo(c))
	assert.Equal(a.Predict(x), c.Predict(x))

	d := New(ThermalConf(), r)
	assert.Error(a.CopyTo(d))
}
