package drive

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTHD(t *testing.T) {
	assert := assert.New(t)
	const f0, fs = 50.0, 10000.0
	n := int(2 * fs / f0)
	pure := make([]float64, n)
	distorted := make([]float64, n)
	for i := range pure {
		ph := 2 * math.Pi * f0 * float64(i) / fs
		pure[i] = 3 + 10*math.Sin(ph)
		distorted[i] = 10*math.Sin(ph) + math.Sin(3*ph) + 0.5*math.Sin(5*ph)
	}
	assert.InDelta(0, THD(pure, f0, fs), 1e-6)
	assert.InDelta(math.Sqrt(1+0.25)/10*100, THD(distorted, f0, fs), 1e-6)

	assert.Equal(0.0, THD(pure[:9], f0, fs))
	assert.Equal(0.0, THD(make([]float64, 100), f0, fs))
}

func TestSimulate(t *testing.T) {
	if testing.Short() {
		t.Skip("closed-loop simulation")
	}
	assert := assert.New(t)
	p := DefaultParams()
	conf := DefaultSimConf()
	res, err := Simulate(conf, p)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.InDelta(500, len(res.Trace), 10)
	assert.True(res.PostLoadSpeedErr < 0.02*conf.SpeedRefRPM, "post load error %v rpm", res.PostLoadSpeedErr)
	assert.InDelta(0, res.PostLoadId, 0.5)
	assert.InDelta((conf.LoadTorque+p.B*RPMToRadS(conf.SpeedRefRPM))/p.Kt(), res.PostLoadIq, 0.5)
	assert.False(math.IsNaN(res.RiseTime))
	assert.True(res.RiseTime > 0)
	assert.True(res.Overshoot >= 0)
	assert.True(res.SpeedDip > 0)
	assert.True(res.THD < 5, "THD %v", res.THD)
	assert.InDelta(18.2, res.VoltageUtil, 0.5)
	// the rms window is shorter than a period
	assert.InDelta(res.IaPeak/math.Sqrt2, res.IaRMS, 0.2*res.IaRMS)

	for _, s := range res.Trace {
		for _, d := range []float64{s.Duty.A, s.Duty.B, s.Duty.C} {
			if d < 0 || d > 1 {
				t.Fatalf("t=%v: duty %v outside [0, 1]", s.T, d)
			}
		}
	}
}

func TestSimulateInvalid(t *testing.T) {
	_, err := Simulate(SimConf{}, DefaultParams())
	assert.Error(t, err)
	_, err = Simulate(DefaultSimConf(), Params{})
	assert.Error(t, err)
}
