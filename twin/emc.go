package twin

import (
	"math"

	"github.com/evdrive/aiinverter/drive"
)

// OperatingPoint is a speed and load torque the drive is held at.
type OperatingPoint struct {
	RPM, Torque float64
}

var THDPoints = []OperatingPoint{
	{500, 2}, {1000, 5}, {1500, 8}, {2000, 10}, {2500, 12}, {3000, 15},
}

// PhaseCurrent settles the closed loop drive at op for 0.3 s and returns 30 ms of phase A current
// together with the electrical frequency at the end.
func (in *Inspector) PhaseCurrent(op OperatingPoint) (ia []float64, fe float64) {
	m := drive.NewMotor(in.Params)
	f := drive.NewFOC(in.Params, in.FOC)
	ref := hold(drive.RPMToRadS(op.RPM))
	in.loop(m, f, ref, op.Torque, 30000, nil)
	ia = make([]float64, 0, 3000)
	in.loop(m, f, ref, op.Torque, 3000, func(int) {
		a, _, _ := m.PhaseCurrents()
		ia = append(ia, a)
	})
	return ia, math.Abs(m.OmegaE()) / (2 * math.Pi)
}

// EMC grades current distortion, insulation stress from the SiC edge rate and DC link ripple.
func (in *Inspector) EMC() {
	const cat = "EMC"
	fs := 1 / in.Dt

	var worst float64
	for _, op := range THDPoints {
		ia, fe := in.PhaseCurrent(op)
		thd := drive.THD(ia, fe, fs)
		in.logger.WithField("rpm", op.RPM).WithField("torque", op.Torque).WithField("thd", thd).Debug("operating point")
		worst = math.Max(worst, thd)
	}
	in.Record(cat, "THD max", worst, "< 3.0", "%", below(worst, 3, 5))

	// strongest harmonic relative to the fundamental at the rated point
	ia, fe := in.PhaseCurrent(OperatingPoint{2000, 10})
	spur := -999.0
	if fe > 0 {
		mags := drive.Harmonics(ia, fe, fs, 15)
		for _, m := range mags[1:] {
			if m > 0 && mags[0] > 0 {
				spur = math.Max(spur, 20*math.Log10(m/mags[0]))
			}
		}
	}
	in.Record(cat, "harmonic spur", spur, "< -30", "dBc", below(spur, -30, -20))

	dvdt := in.SiC.Vdc / in.SiC.Toff * 1e-9
	in.Record(cat, "dV/dt stress", dvdt, "< 20", "V/ns", below(dvdt, 20, 30))

	// two 120 µF film capacitors against the rated peak current at the switching frequency
	const cdc, ipk = 240e-6, 86.6
	ripple := ipk / (cdc * in.SiC.Fsw * 2 * math.Pi) * 2 / in.Params.Vdc * 100
	in.Record(cat, "DC bus ripple", ripple, "< 2.0", "%", below(ripple, 2, 5))
}
