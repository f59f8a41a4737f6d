package drive

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClarkeBalanced(t *testing.T) {
	for deg := 0.0; deg < 360; deg += 15 {
		th := deg * math.Pi / 180
		a := math.Cos(th)
		b := math.Cos(th - 2*math.Pi/3)
		c := math.Cos(th + 2*math.Pi/3)
		alpha, beta := Clarke(a, b, c)
		if math.Abs(alpha-math.Cos(th)) > 1e-12 || math.Abs(beta-math.Sin(th)) > 1e-12 {
			t.Errorf("θ=%v: expected (%v, %v). Got (%v, %v)", deg, math.Cos(th), math.Sin(th), alpha, beta)
		}
		d, q := Park(alpha, beta, th)
		if math.Abs(d-1) > 1e-12 || math.Abs(q) > 1e-12 {
			t.Errorf("θ=%v: a synchronous vector should be (1, 0) in dq. Got (%v, %v)", deg, d, q)
		}
	}
}

func TestRoundTrips(t *testing.T) {
	assert := assert.New(t)
	for _, tc := range []struct{ x, y, theta float64 }{
		{1, 0, 0},
		{0.3, -2.1, 1.1},
		{-5, 4, 4.5},
		{12, 7, -0.7},
	} {
		alpha, beta := InvPark(tc.x, tc.y, tc.theta)
		d, q := Park(alpha, beta, tc.theta)
		assert.InDelta(tc.x, d, 1e-12)
		assert.InDelta(tc.y, q, 1e-12)

		a, b, c := InvClarke(tc.x, tc.y)
		assert.InDelta(0, a+b+c, 1e-12)
		alpha, beta = Clarke(a, b, c)
		assert.InDelta(tc.x, alpha, 1e-12)
		assert.InDelta(tc.y, beta, 1e-12)
	}
}

func TestWrap(t *testing.T) {
	assert := assert.New(t)
	assert.InDelta(0.5, WrapAngle(0.5+4*math.Pi), 1e-12)
	assert.InDelta(2*math.Pi-0.5, WrapAngle(-0.5), 1e-12)
	assert.InDelta(-0.1, WrapError(2*math.Pi-0.1), 1e-12)
	assert.InDelta(0.1, WrapError(-2*math.Pi+0.1), 1e-12)
	assert.InDelta(1000.0, RadSToRPM(RPMToRadS(1000)), 1e-9)
}

func TestPI(t *testing.T) {
	assert := assert.New(t)
	pi := NewPI(1, 10, -1, 1)

	out := pi.Compute(0.01, 0.1)
	assert.InDelta(0.01+10*0.001, out, 1e-12)
	assert.InDelta(0.001, pi.Integral(), 1e-12)

	// saturated: the step is undone so the integral plateaus
	plateau := pi.Integral()
	for i := 0; i < 1000; i++ {
		if out = pi.Compute(5, 0.1); out != 1 {
			t.Fatalf("step %d: output %v, want the upper limit", i, out)
		}
		if pi.Integral() != plateau {
			t.Fatalf("step %d: integral wound up to %v", i, pi.Integral())
		}
	}
	for i := 0; i < 1000; i++ {
		if out = pi.Compute(-5, 0.1); out != -1 {
			t.Fatalf("step %d: output %v, want the lower limit", i, out)
		}
	}
	assert.Equal(plateau, pi.Integral())

	// no windup to unwind: the first unsaturated step responds at once
	out = pi.Compute(0.01, 0.1)
	assert.InDelta(0.01+10*0.002, out, 1e-12)

	pi.Inject(0.5)
	assert.InDelta(0.502, pi.Integral(), 1e-12)
	pi.Reset()
	assert.Equal(0.0, pi.Integral())
}
