package anomaly

import (
	"io"
	"math"
	"math/rand"
	"testing"

	"github.com/evdrive/aiinverter/drive"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

var (
	speeds  = []float64{500, 1000, 1500, 2000, 3000}
	torques = []float64{2, 5, 8, 12, 15}
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestGenerate(t *testing.T) {
	assert := assert.New(t)
	f := NewFeatures(drive.DefaultParams())
	xs := f.Generate(speeds, torques, 4, rand.New(rand.NewSource(1)))
	assert.Len(xs, 100)
	for _, x := range xs {
		assert.Len(x, NumFeatures)
		// |i| is the q current up to noise
		iq := x[Iq]
		assert.InDelta(iq, math.Hypot(x[IAlpha], x[IBeta]), 0.05)
		assert.True(x[Speed] > 0 && x[Speed] < 1.1)
		assert.InDelta(400.0/450, x[Vdc], 0.05)
	}
}

func TestInject(t *testing.T) {
	assert := assert.New(t)
	r := rand.New(rand.NewSource(3))
	base := make([]float64, NumFeatures)
	for _, f := range Faults {
		assert.Equal(base, Inject(base, f, 0, 0.5, r), "%v at zero severity", f)
		s := Inject(base, f, 1, 0.5, r)
		assert.NotEqual(base, s, "%v at full severity", f)
	}
	assert.Equal(make([]float64, NumFeatures), base, "the input is not modified")

	s := Inject(base, SiCDegradation, 0.5, 0, r)
	assert.InDelta(0.2, s[Tj], 1e-12)
	assert.InDelta(-0.075, s[Vdc], 1e-12)

	assert.Panics(func() { Inject(base[:3], BearingWear, 1, 0, r) })
	assert.Panics(func() { Inject(base, MaxFault, 1, 0, r) })
	assert.Equal("winding short", WindingShort.String())
}

func TestDetector(t *testing.T) {
	if testing.Short() {
		t.Skip("trains an autoencoder")
	}
	assert := assert.New(t)
	r := rand.New(rand.NewSource(42))
	f := NewFeatures(drive.DefaultParams())
	normal := f.Generate(speeds, torques, 40, r)

	d := NewDetector(r, quietLogger())
	assert.False(d.Trained())
	res, err := d.Train(normal, DefaultConf())
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.True(d.Trained())
	assert.True(res.Final < res.Losses[0])
	assert.InDelta(d.Mean+3*d.Std, d.Threshold, 1e-12)

	// fresh healthy data never seen in training
	fresh := f.Generate(speeds, torques, 20, rand.New(rand.NewSource(99)))
	fp := FalsePositiveRate(d, fresh, 500, 0, r)
	assert.True(fp < 5, "false positive rate %v%%", fp)

	for _, fault := range Faults {
		pts, at := Sweep(d, normal, fault, DefaultSweepConf(), r)
		assert.Len(pts, 21)
		assert.False(pts[0].Detected, "%v at zero severity", fault)
		if at < 0 || at > 1 {
			t.Errorf("%v was never detected", fault)
		}
		assert.True(pts[20].MeanScore > pts[0].MeanScore)
	}

	trace, _ := Degradation(d, normal, DefaultDegradationConf(), r)
	assert.Len(trace, 100)
	assert.Equal(-1.0, trace[3].RUL)
	assert.True(trace[99].Score > trace[0].Score)
}

func TestDetectorErrors(t *testing.T) {
	assert := assert.New(t)
	d := NewDetector(rand.New(rand.NewSource(1)), quietLogger())
	_, err := d.Train(nil, DefaultConf())
	assert.Error(err)
	_, err = d.Train([][]float64{{1, 2, 3}}, DefaultConf())
	assert.Error(err)
	_, err = d.Train([][]float64{make([]float64, NumFeatures)}, Conf{})
	assert.Error(err)
	assert.False(d.Trained())
	assert.True(math.IsInf(d.Threshold, 1))
}
