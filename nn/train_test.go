package nn

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(new(bytes.Buffer))
	return l
}

func sineData(r *rand.Rand, n int) (xs, ys [][]float64) {
	for i := 0; i < n; i++ {
		x := r.Float64()*2 - 1
		xs = append(xs, []float64{x})
		ys = append(ys, []float64{math.Sin(2 * x)})
	}
	return
}

func TestTrainReducesLoss(t *testing.T) {
	assert := assert.New(t)
	r := rand.New(rand.NewSource(42))
	xs, ys := sineData(r, 200)
	data, err := NewDataset(xs, ys)
	if err != nil {
		t.Fatal(err)
	}
	n := New(DefaultConf(1, 8, 1), r)
	conf := DefaultTrainConf()
	conf.Epochs = 60

	res, err := Train(n, data, conf, r, quietLogger())
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Len(res.Losses, 60)
	assert.True(res.Best <= res.Final)
	assert.True(res.Final < res.Losses[0]/2, "loss should drop: first %v, final %v", res.Losses[0], res.Final)
}

func TestTrainIsReproducible(t *testing.T) {
	run := func() []float64 {
		r := rand.New(rand.NewSource(9))
		xs, ys := sineData(r, 50)
		data, _ := NewDataset(xs, ys)
		n := New(DefaultConf(1, 4, 1), r)
		conf := DefaultTrainConf()
		conf.Epochs = 5
		res, err := Train(n, data, conf, r, quietLogger())
		if err != nil {
			t.Fatal(err)
		}
		return res.Losses
	}
	assert.Equal(t, run(), run())
}

func TestTrainErrors(t *testing.T) {
	assert := assert.New(t)
	r := rand.New(rand.NewSource(1))
	n := New(DefaultConf(2, 1), r)

	data, err := NewDataset([][]float64{{1, 2, 3}}, [][]float64{{1}})
	assert.NoError(err)
	_, err = Train(n, data, DefaultTrainConf(), r, quietLogger())
	assert.Error(err, "width mismatch")

	_, err = Train(n, nil, DefaultTrainConf(), r, quietLogger())
	assert.Error(err, "nil dataset")

	data, _ = NewDataset([][]float64{{1, 2}}, [][]float64{{1}})
	bad := DefaultTrainConf()
	bad.Epochs = 0
	_, err = Train(n, data, bad, r, quietLogger())
	assert.Error(err, "invalid config")
}

func TestTrainDivergence(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	n := New(DefaultConf(1, 1), r)
	data, _ := NewDataset([][]float64{{1e3}, {-1e3}}, [][]float64{{1e3}, {-1e3}})
	conf := DefaultTrainConf()
	conf.LearnRate = 10
	conf.Epochs = 50
	_, err := Train(n, data, conf, r, quietLogger())
	assert.Error(t, err)
}

var rates = []struct {
	epoch int
	lr    float64
}{
	{0, 0.01},
	{24, 0.01},
	{25, 0.005},
	{49, 0.005},
	{50, 0.0025},
	{79, 0.00125},
}

func TestLearnRateSchedule(t *testing.T) {
	conf := DefaultTrainConf()
	for _, c := range rates {
		if got := conf.rateAt(c.epoch); math.Abs(got-c.lr) > 1e-15 {
			t.Errorf("epoch %d: expected lr %v. Got %v instead", c.epoch, c.lr, got)
		}
	}
	conf.DecayEvery = 0
	if got := conf.rateAt(100); got != conf.LearnRate {
		t.Errorf("no decay: expected %v. Got %v", conf.LearnRate, got)
	}
}

func TestMeanSquaredError(t *testing.T) {
	assert := assert.New(t)
	loss, grad := MeanSquaredError([]float64{1, 3}, []float64{0, 1})
	assert.InDelta(2.5, loss, 1e-12)
	assert.Equal([]float64{1, 2}, grad)

	loss, grad = SquaredError([]float64{1, 3}, []float64{0, 1})
	assert.InDelta(5.0, loss, 1e-12)
	assert.Equal([]float64{2, 4}, grad)
}

func TestDataset(t *testing.T) {
	assert := assert.New(t)
	d, err := NewDataset([][]float64{{1, 2}, {3, 4}}, [][]float64{{5}, {6}})
	assert.NoError(err)
	assert.Equal(2, d.Len())
	assert.Equal(2, d.InWidth())
	assert.Equal(1, d.OutWidth())
	x, y := d.Row(1)
	assert.Equal([]float64{3, 4}, x)
	assert.Equal([]float64{6}, y)

	_, err = NewDataset(nil, nil)
	assert.Error(err)
	_, err = NewDataset([][]float64{{1, 2}, {3}, {4, 5}}, [][]float64{{1}, {2}, {2, 3}})
	if assert.Error(err) {
		me, ok := err.(manyErr)
		assert.True(ok)
		assert.Len(me, 2)
	}
}
