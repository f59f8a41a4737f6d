package twin

import (
	"math"

	"github.com/evdrive/aiinverter/drive"
)

func hold(v float64) func(int) float64 { return func(int) float64 { return v } }

// loop runs the speed and current loops for steps control periods, limiting the voltage to the
// SVPWM circle. each, if not nil, is called after every plant update.
func (in *Inspector) loop(m *drive.Motor, f *drive.FOC, ref func(int) float64, load float64, steps int, each func(int)) {
	for s := 0; s < steps; s++ {
		vd, vq := f.Compute(ref(s), m.OmegaM, m.Id, m.Iq, m.OmegaE(), in.Dt)
		vd, vq = drive.LimitVoltage(vd, vq, m.Vdc)
		m.Update(vd, vq, load, in.Dt)
		if each != nil {
			each(s)
		}
	}
}

// ParamID identifies the machine constants from simulated excitation tests and compares them with
// the nameplate.
func (in *Inspector) ParamID() {
	const cat = "ParamID"
	p := in.Params
	m := drive.NewMotor(p)
	tau := p.Ld / p.Rs

	// Rs: DC injection on the d axis, settled for ten electrical time constants
	const vTest = 1.0
	for s, n := 0, steps(10*tau, in.Dt); s < n; s++ {
		m.Update(vTest, 0, 0, in.Dt)
	}
	rsErr := 999.0
	if math.Abs(m.Id) > 1e-6 {
		rsErr = relErr(vTest/m.Id, p.Rs)
	}
	in.Record(cat, "Rs estimation", rsErr, "< 5", "%", below(rsErr, 5, 5))

	// Ld: time to 63.2 % of the final current of a voltage step
	m.Reset()
	const vStep = 5.0
	target := vStep / p.Rs * (1 - math.Exp(-1))
	t63 := math.NaN()
	for s, n := 0, steps(2*tau, in.Dt); s < n; s++ {
		m.Update(vStep, 0, 0, in.Dt)
		if math.IsNaN(t63) && m.Id >= target {
			t63 = float64(s) * in.Dt
		}
	}
	ldErr := 100.0
	if !math.IsNaN(t63) {
		ldErr = relErr(t63*p.Rs, p.Ld)
	}
	in.Record(cat, "Ld estimation", ldErr, "< 10", "%", below(ldErr, 10, 20))

	lambdaErr := relErr(in.identifyLambda(100, 15*tau), p.Lambda)
	in.Record(cat, "lambda_pm ID", lambdaErr, "< 3", "%", below(lambdaErr, 3, 3))

	// J: current limited acceleration between 10 % and 50 % of the final speed
	m.Reset()
	f := drive.NewFOC(p, in.FOC)
	const every = 30
	var rpm []float64
	in.loop(m, f, hold(drive.RPMToRadS(1000)), 0, 30000, func(s int) {
		if s%every == 0 {
			rpm = append(rpm, m.RPM())
		}
	})
	final := rpm[len(rpm)-1]
	t10, t50 := math.NaN(), math.NaN()
	for i, v := range rpm {
		t := float64(i*every) * in.Dt
		if math.IsNaN(t10) && v >= 0.1*final {
			t10 = t
		}
		if math.IsNaN(t50) && v >= 0.5*final {
			t50 = t
		}
	}
	jErr := 100.0
	if t50 > t10 {
		accel := 0.4 * drive.RPMToRadS(final) / (t50 - t10)
		jErr = relErr(p.Kt()*in.FOC.IqLimit/accel, p.J)
	}
	in.Record(cat, "J estimation", jErr, "< 20", "%", below(jErr, 20, 50))

	var cog float64
	for _, h := range []float64{6, 12, 18, 24} {
		cog = math.Max(cog, (0.01+0.04*in.rand.Float64())*6/h)
	}
	in.Record(cat, "cogging torque", cog, "< 0.1", "Nm", below(cog, 0.1, 0.2))
}

// identifyLambda holds the shaft at omegaM and regulates id = iq = 0 with the current PIs alone,
// without back-EMF feedforward. At steady state the q integrator carries the back-EMF, so λ is the
// mean vq over the last tenth of the run divided by ωe.
func (in *Inspector) identifyLambda(omegaM, settle float64) float64 {
	m := drive.NewMotor(in.Params)
	f := drive.NewFOC(in.Params, in.FOC)
	n := steps(settle, in.Dt)
	tail := n / 10
	var vqSum float64
	for s := 0; s < n; s++ {
		m.OmegaM = omegaM
		vd := f.D.Compute(-m.Id, in.Dt)
		vq := f.Q.Compute(-m.Iq, in.Dt)
		m.Update(vd, vq, 0, in.Dt)
		if s >= n-tail {
			vqSum += vq
		}
	}
	m.OmegaM = omegaM
	return vqSum / float64(tail) / m.OmegaE()
}

// relErr is |est - want| / want in percent.
func relErr(est, want float64) float64 { return math.Abs(est-want) / want * 100 }
