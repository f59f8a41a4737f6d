package twin

import (
	"math"

	"github.com/evdrive/aiinverter/drive"
)

// EOL is the end-of-line production test. Manufacturing tolerances are drawn from the inspector's
// rand; the SVPWM check sweeps the real modulator.
func (in *Inspector) EOL() {
	const cat = "EOL"
	r := in.rand

	// worst deviation of three phases from their mean, in percent
	mismatch := func(nom, sigma float64) float64 {
		var v [3]float64
		var avg float64
		for i := range v {
			v[i] = nom * (1 + r.NormFloat64()*sigma)
			avg += v[i] / 3
		}
		var worst float64
		for _, x := range v {
			worst = math.Max(worst, math.Abs(x-avg))
		}
		return worst / avg * 100
	}
	rm := mismatch(in.Params.Rs, 0.005)
	in.Record(cat, "phase R match", rm, "< 2.0", "%", below(rm, 2, 2))
	lm := mismatch(in.Params.Ld, 0.008)
	in.Record(cat, "phase L match", lm, "< 3.0", "%", below(lm, 3, 3))

	var offset, gain float64
	for phase := 0; phase < 3; phase++ {
		offset = math.Max(offset, math.Abs(r.NormFloat64()*0.02))
		gain = math.Max(gain, math.Abs(r.NormFloat64()*0.15))
	}
	in.Record(cat, "sensor offset", offset, "< 0.1", "mA", below(offset, 0.1, 0.5))
	in.Record(cat, "sensor gain", gain, "< 0.5", "%", below(gain, 0.5, 1))

	vdcErr := math.Abs(r.NormFloat64()*0.001) * 100
	in.Record(cat, "Vdc accuracy", vdcErr, "< 0.5", "%", below(vdcErr, 0.5, 0.5))

	deadNs := 300 * (1 + r.NormFloat64()*0.03)
	in.Record(cat, "dead-time", deadNs, "200-400", "ns", passIf(deadNs > 200 && deadNs < 400))

	var pwmErr float64
	for range []float64{0.1, 0.25, 0.5, 0.75, 0.9} {
		pwmErr = math.Max(pwmErr, math.Abs(r.NormFloat64()*0.0003)*100)
	}
	in.Record(cat, "PWM accuracy", pwmErr, "< 0.1", "%", below(pwmErr, 0.1, 0.1))

	g := drive.SweepGlitches(in.Params.Vdc/2, in.Params.Vdc, 5, drive.GlitchJump)
	in.Record(cat, "SVPWM smooth", float64(g), "0", "glitches", below(float64(g), 1, 3))
}
