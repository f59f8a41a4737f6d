package twin

import (
	"fmt"
	"math"

	"github.com/evdrive/aiinverter/drive"
	"github.com/evdrive/aiinverter/thermal"
)

// Protection thresholds of the power stage.
const (
	OVPTrip     = 460.0 // DC link over-voltage trip [V]
	TVSClamp    = 440.0 // brake chopper / TVS clamp [V]
	OCPTrip     = 300.0 // over-current trip [A]
	OCPHwUs     = 0.8   // comparator path [µs]
	OTPTrip     = 150.0 // over-temperature shutdown [°C]
	Imbalance   = 50.0  // open phase imbalance threshold [%]
	KCLLimit    = 0.05  // rms of ia+ib+ic relative to the current amplitude
	sensorNoise = 0.1   // healthy sensor noise [A]
	OVPLimit    = 450.0 // DC link peak allowed during a braking surge [V]
	DCLinkC     = 500e-6
	BrakeR      = 10.0 // brake chopper resistor [Ω]
)

// SensorFault corrupts the phase A current reading.
type SensorFault struct {
	Name    string
	Corrupt func(ia float64) float64
}

// SensorFaults returns the failure modes the plausibility monitor has to catch. Noise is drawn from
// the inspector's rand.
func (in *Inspector) SensorFaults() []SensorFault {
	return []SensorFault{
		{"stuck at zero", func(float64) float64 { return 0 }},
		{"stuck at max", func(float64) float64 { return 15 }},
		{"drift +20%", func(ia float64) float64 { return ia * 1.2 }},
		{"noise x10", func(ia float64) float64 { return ia + in.rand.NormFloat64()*10*sensorNoise }},
	}
}

// kclResidual is the rms of ia+ib+ic relative to the peak phase current.
func kclResidual(ia, ib, ic []float64) float64 {
	var sq, peak float64
	for i := range ia {
		s := ia[i] + ib[i] + ic[i]
		sq += s * s
		peak = math.Max(peak, math.Max(math.Abs(ib[i]), math.Abs(ic[i])))
	}
	if peak == 0 {
		return 0
	}
	return math.Sqrt(sq/float64(len(ia))) / peak
}

// Safety injects open phase, sensor, over-voltage, over-current and over-temperature faults and
// checks the safe state.
func (in *Inspector) Safety() {
	const cat = "Safety"
	p := in.Params

	// run at 1000 rpm, 5 N·m and record three noisy phase currents
	m := drive.NewMotor(p)
	m.OmegaM = drive.RPMToRadS(1000)
	f := drive.NewFOC(p, in.FOC)
	const n = 5000
	ia, ib, ic := make([]float64, 0, n), make([]float64, 0, n), make([]float64, 0, n)
	in.loop(m, f, hold(m.OmegaM), 5, n, func(int) {
		a, b, c := m.PhaseCurrents()
		ia = append(ia, a+in.rand.NormFloat64()*sensorNoise)
		ib = append(ib, b+in.rand.NormFloat64()*sensorNoise)
		ic = append(ic, c+in.rand.NormFloat64()*sensorNoise)
	})

	// open phase A: keep running on the same machine and record the currents again. 3000 control
	// periods span two electrical cycles at 1000 rpm.
	const window = 3000
	healthy := imbalance(ia[n-window:], ib[n-window:], ic[n-window:])
	oa, ob, oc := in.openPhase(m, f, 5, 2*window)
	faulted := imbalance(oa[window:], ob[window:], oc[window:])
	open := faulted > Imbalance && healthy <= Imbalance
	in.logger.WithField("healthy", healthy).WithField("open", faulted).Debug("phase imbalance")
	in.Note(cat, "open-phase detect", yesNo(open), "detect", "", passIf(open))

	// sensor plausibility on the last 1000 samples
	tail := func(xs []float64) []float64 { return xs[n-1000:] }
	falseAlarm := kclResidual(tail(ia), tail(ib), tail(ic)) > KCLLimit
	faults := in.SensorFaults()
	var caught int
	for _, sf := range faults {
		bad := make([]float64, 1000)
		for i, a := range tail(ia) {
			bad[i] = sf.Corrupt(a)
		}
		if kclResidual(bad, tail(ib), tail(ic)) > KCLLimit {
			caught++
		}
	}
	in.Note(cat, "sensor fault", fmt.Sprintf("%d/%d", caught, len(faults)), "all", "", passIf(caught == len(faults) && !falseAlarm))

	// regenerative braking from 3000 rpm into an isolated DC link. The surge has to trip OVP when
	// left alone and stay below the limit once the chopper clamps it.
	bare := in.surge(false)
	clamped := in.surge(true)
	in.logger.WithField("bare", bare.Peak).WithField("clamped", clamped.Peak).Debug("DC link surge")
	ovpOK := bare.Tripped && clamped.Fired && !clamped.Tripped && clamped.Peak < OVPLimit
	in.Record(cat, "OVP response", clamped.Peak, "< 450", "V", passIf(ovpOK))

	in.Record(cat, "OCP trip time", OCPHwUs, "< 2", "us", below(OCPHwUs, 2, 2))

	// locked rotor at 85 °C ambient: one switch carries 100 A continuously
	net := thermal.DefaultNetwork()
	net.Reset(85)
	trip := math.NaN()
	for s := 0; s < 10000; s++ {
		_, _, pl := in.SiC.Losses(100, net.Tj)
		if net.Update(pl, in.DtTh) >= OTPTrip {
			trip = float64(s) * in.DtTh
			break
		}
	}
	if math.IsNaN(trip) {
		in.Note(cat, "OTP response", fmt.Sprintf("no trip, Tj %.1f C", net.Tj), "trigger", "", Fail)
	} else {
		in.Record(cat, "OTP response", trip*1000, "trigger", "ms", Pass)
	}

	// active short circuit at 3000 rpm: the steady current is bounded by the winding impedance
	we := drive.RPMToRadS(3000) * float64(p.PolePairs)
	iasc := p.Lambda * we / math.Hypot(p.Rs, we*p.Ld) / math.Sqrt2
	in.Record(cat, "ASC safe-state", iasc, "< 300", "A", below(iasc, OCPTrip, math.Inf(1)))
}

// imbalance is the spread of the per phase mean absolute currents relative to the largest, in
// percent.
func imbalance(ia, ib, ic []float64) float64 {
	var means [3]float64
	for i, xs := range [3][]float64{ia, ib, ic} {
		for _, x := range xs {
			means[i] += math.Abs(x)
		}
		if len(xs) > 0 {
			means[i] /= float64(len(xs))
		}
	}
	hi := math.Max(means[0], math.Max(means[1], means[2]))
	lo := math.Min(means[0], math.Min(means[1], means[2]))
	if hi == 0 {
		return 0
	}
	return (hi - lo) / hi * 100
}

// openPhase runs the speed loop for n periods with phase A disconnected and returns the noisy
// phase currents. After every plant update the stator current is projected onto the B-C winding,
// which is the only path left.
func (in *Inspector) openPhase(m *drive.Motor, f *drive.FOC, load float64, n int) (ia, ib, ic []float64) {
	ia, ib, ic = make([]float64, 0, n), make([]float64, 0, n), make([]float64, 0, n)
	in.loop(m, f, hold(m.OmegaM), load, n, func(int) {
		_, b, c := m.PhaseCurrents()
		ibc := (b - c) / 2
		alpha, beta := drive.Clarke(0, ibc, -ibc)
		m.Id, m.Iq = drive.Park(alpha, beta, m.ThetaE)
		ia = append(ia, in.rand.NormFloat64()*sensorNoise)
		ib = append(ib, ibc+in.rand.NormFloat64()*sensorNoise)
		ic = append(ic, -ibc+in.rand.NormFloat64()*sensorNoise)
	})
	return
}

// Surge is the DC link response to a braking event.
type Surge struct {
	Peak    float64 // highest DC link voltage [V]
	Tripped bool    // OVP disabled the bridge
	Fired   bool    // the brake chopper conducted
}

// surge brakes the machine from 3000 rpm to standstill with the battery contactor open, so the
// regenerated power charges the DC link capacitor. With chopper set, BrakeR is switched across
// the link whenever it exceeds TVSClamp. Once OVP trips the bridge stops regenerating.
func (in *Inspector) surge(chopper bool) Surge {
	p := in.Params
	m := drive.NewMotor(p)
	m.OmegaM = drive.RPMToRadS(3000)
	f := drive.NewFOC(p, in.FOC)
	vdc := p.Vdc
	retVal := Surge{Peak: vdc}
	for s, n := 0, steps(0.05, in.Dt); s < n; s++ {
		var pin float64
		if !retVal.Tripped {
			vd, vq := f.Compute(0, m.OmegaM, m.Id, m.Iq, m.OmegaE(), in.Dt)
			vd, vq = drive.LimitVoltage(vd, vq, vdc)
			m.Update(vd, vq, 0, in.Dt)
			pin = 1.5 * (vd*m.Id + vq*m.Iq)
		}
		// power drawn from the link; negative while braking
		i := pin / vdc
		if chopper && vdc > TVSClamp {
			i += vdc / BrakeR
			retVal.Fired = true
		}
		vdc -= i / DCLinkC * in.Dt
		retVal.Peak = math.Max(retVal.Peak, vdc)
		if vdc >= OVPTrip {
			retVal.Tripped = true
		}
	}
	return retVal
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
