package twin

import (
	"math"

	"github.com/evdrive/aiinverter/thermal"
)

// ZthCurve applies a 200 W step to a network at 25 °C and samples the transient thermal impedance
// (Tj - Tamb)/P every 0.2 s for 20 s.
func (in *Inspector) ZthCurve() (t, zth []float64) {
	const p = 200.0
	net := thermal.DefaultNetwork()
	every := steps(0.2, in.DtTh)
	for s, n := 0, steps(20, in.DtTh); s < n; s++ {
		net.Update(p, in.DtTh)
		if (s+1)%every == 0 {
			t = append(t, float64(s+1)*in.DtTh)
			zth = append(zth, (net.Tj-net.Tamb)/p)
		}
	}
	return t, zth
}

// Thermal stresses the Cauer network with step, cyclic, ambient and endurance loads.
func (in *Inspector) Thermal() {
	const cat = "Thermal"
	const tjMax = 150.0
	dev := in.SiC
	net := thermal.DefaultNetwork()

	_, zth := in.ZthCurve()
	zErr := relErr(zth[len(zth)-1], net.Rth())
	in.Record(cat, "Zth(t) accuracy", zErr, "< 5", "%", below(zErr, 5, 5))

	// five 1 s on / 1 s off cycles at 50 A per switch
	net.Reset(25)
	var hottest float64
	half := steps(1, in.DtTh)
	for c := 0; c < 5; c++ {
		for s := 0; s < half; s++ {
			_, _, p := dev.Losses(50, net.Tj)
			net.Update(p, in.DtTh)
		}
		hottest = math.Max(hottest, net.Tj)
		net.Settle(0, in.DtTh, half)
	}
	in.Record(cat, "thermal cycling", hottest, "< 150", "C", passIf(hottest < tjMax))

	// steady state at 50 A over the ambient range, losses evaluated 50 K above ambient
	worst := math.Inf(-1)
	for _, ta := range []float64{-40, -20, 0, 25, 40, 60, 70, 85} {
		net.Reset(ta)
		_, _, p := dev.Losses(50, ta+50)
		worst = math.Max(worst, net.SteadyState(p))
	}
	in.Record(cat, "ambient sweep", worst, "all < 150", "C", passIf(worst < tjMax))

	// 10 s at rated current from a 65 °C coolant, loss shared by the six switches
	net.Reset(65)
	const irated = 86.6
	for s, n := 0, steps(10, in.DtTh); s < n; s++ {
		_, _, p := dev.Losses(irated, net.Tj)
		net.Update(p/thermal.Switches, in.DtTh)
	}
	in.Record(cat, "rated endurance", net.Tj, "< 150", "C", passIf(net.Tj < tjMax))
}
