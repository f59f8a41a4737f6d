package drive

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFOCTuning(t *testing.T) {
	assert := assert.New(t)
	f := NewFOC(DefaultParams(), DefaultFOCConf())
	assert.InDelta(1.0, f.D.Kp, 1e-12)
	assert.InDelta(20.0, f.D.Ki, 1e-12)
	assert.InDelta(0.01*50/0.6, f.Speed.Kp, 1e-12)
	assert.InDelta(10*f.Speed.Kp, f.Speed.Ki, 1e-12)
	assert.Equal(15.0, f.Speed.Max)
	assert.Equal(-200.0, f.Q.Min)

	assert.Panics(func() { NewFOC(DefaultParams(), FOCConf{}) })
}

func TestFOCDecoupling(t *testing.T) {
	assert := assert.New(t)
	p := DefaultParams()
	f := NewFOC(p, DefaultFOCConf())
	we := 400.0
	vd, vq := f.CurrentStep(2, 5, 2, 5, we, 1e-5)
	assert.InDelta(-we*p.Lq*5, vd, 1e-12)
	assert.InDelta(we*(p.Ld*2+p.Lambda), vq, 1e-12)
}

func TestLimitVoltage(t *testing.T) {
	assert := assert.New(t)
	vd, vq := LimitVoltage(300, 400, 400)
	assert.InDelta(400/math.Sqrt(3), math.Hypot(vd, vq), 1e-9)
	assert.InDelta(0.75, vd/vq, 1e-12)

	vd, vq = LimitVoltage(10, -20, 400)
	assert.Equal(10.0, vd)
	assert.Equal(-20.0, vq)
}
