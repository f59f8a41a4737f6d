package twin

import (
	"math"

	"github.com/evdrive/aiinverter/drive"
	"gonum.org/v1/gonum/stat"
)

// Control validates the current and speed loops, their decoupling, the torque linearity and the
// top speed reachable at the DC link voltage.
func (in *Inspector) Control() {
	const cat = "FOC"
	p := in.Params
	m := drive.NewMotor(p)
	wm := drive.RPMToRadS(1000)

	// current loop: 5 A steps on both axes with the shaft held by a dynamometer
	f := drive.NewFOC(p, in.FOC)
	const iStep = 5.0
	t63 := math.NaN()
	for s := 0; s < 2000; s++ {
		m.OmegaM = wm
		vd, vq := f.CurrentStep(iStep, iStep, m.Id, m.Iq, m.OmegaE(), in.Dt)
		vd, vq = drive.LimitVoltage(vd, vq, p.Vdc)
		m.Update(vd, vq, 0, in.Dt)
		if m.Id >= iStep*(1-math.Exp(-1)) {
			t63 = float64(s+1) * in.Dt
			break
		}
	}
	bw := bandwidth(t63)
	in.Record(cat, "current loop BW", bw, "~2000", "rad/s", below(relErr(bw, in.FOC.CurrentBW), 20, 50))

	// speed loop: small signal step of 2 % from steady state so the current limit stays out of it
	m.Reset()
	f = drive.NewFOC(p, in.FOC)
	in.loop(m, f, hold(wm), 0, 50000, nil)
	w0 := m.OmegaM
	ref := wm * 1.02
	t63 = math.NaN()
	in.loop(m, f, hold(ref), 0, 50000, func(s int) {
		if math.IsNaN(t63) && m.OmegaM-w0 >= (ref-w0)*(1-math.Exp(-1)) {
			t63 = float64(s+1) * in.Dt
		}
	})
	bw = bandwidth(t63)
	in.Record(cat, "speed loop BW", bw, "~50", "rad/s", below(relErr(bw, in.FOC.SpeedBW), 30, 60))

	// decoupling: disturb the q axis through the speed integrator and watch id
	m.Reset()
	m.OmegaM = wm
	f = drive.NewFOC(p, in.FOC)
	in.loop(m, f, hold(wm), 0, 20000, nil)
	idBefore := m.Id
	f.Speed.Inject(0.5)
	in.loop(m, f, hold(wm), 0, 5000, nil)
	db := -20 * math.Log10(math.Abs(m.Id-idBefore)+1e-6)
	in.Record(cat, "decoupling", db, "> 20", "dB", above(db, 20, 10))

	// torque linearity under current control at constant speed
	cmd := []float64{1, 3, 5, 7, 9}
	meas := make([]float64, len(cmd))
	for i, tq := range cmd {
		m.Reset()
		f = drive.NewFOC(p, in.FOC)
		for s := 0; s < 5000; s++ {
			m.OmegaM = wm
			vd, vq := f.CurrentStep(0, tq/p.Kt(), m.Id, m.Iq, m.OmegaE(), in.Dt)
			vd, vq = drive.LimitVoltage(vd, vq, p.Vdc)
			m.Update(vd, vq, 0, in.Dt)
		}
		meas[i] = m.Te
	}
	r2 := stat.RSquaredFrom(meas, cmd, nil)
	in.Record(cat, "torque linearity", r2, "> 0.999", "R^2", above(r2, 0.999, 0.99))

	// top speed: ramp the reference from 3000 to 6000 rpm under a 2 N·m load
	m.Reset()
	f = drive.NewFOC(p, in.FOC)
	base, top := drive.RPMToRadS(3000), drive.RPMToRadS(6000)
	const rampSteps = 50000
	var maxW float64
	in.loop(m, f, func(s int) float64 {
		return base + (top-base)*math.Min(1, float64(s)/rampSteps)
	}, 2, 2*rampSteps, func(int) {
		maxW = math.Max(maxW, m.OmegaM)
	})
	topRPM := drive.RadSToRPM(maxW)
	in.Record(cat, "field weakening", topRPM, "> 4000", "RPM", above(topRPM, 4000, 3500))
}

// bandwidth of a first order response is the inverse of its 63 % time.
func bandwidth(t63 float64) float64 {
	if math.IsNaN(t63) || t63 <= 0 {
		return 0
	}
	return 1 / t63
}
