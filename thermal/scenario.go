package thermal

// Profile is a time → value function such as a torque or current command.
type Profile func(t float64) float64

// Ramp holds from until start, ramps linearly to to over ramp seconds, then holds.
func Ramp(from, to, start, ramp float64) Profile {
	return func(t float64) float64 {
		switch {
		case t < start:
			return from
		case t < start+ramp:
			return from + (to-from)*(t-start)/ramp
		}
		return to
	}
}

// Scenario is an ambient temperature and a phase current profile.
type Scenario struct {
	Tamb float64
	Irms Profile
}

// TorqueRamp is the current profile of a torque ramp beginning at 10 ms on a machine with torque
// constant kt.
func TorqueRamp(from, to, ramp, kt float64) Profile {
	torque := Ramp(from, to, 0.01, ramp)
	return func(t float64) float64 { return Irms(torque(t), kt) }
}

// DefaultAmbients are the training ambients [°C].
var DefaultAmbients = []float64{-40, 0, 25, 60, 85}

// DefaultScenarios crosses DefaultAmbients with three torque ramps.
func DefaultScenarios(kt float64) []Scenario {
	ramps := []struct{ from, to, ramp float64 }{
		{2, 15, 0.08},
		{5, 12, 0.06},
		{1, 18, 0.07},
	}
	retVal := make([]Scenario, 0, len(DefaultAmbients)*len(ramps))
	for _, ta := range DefaultAmbients {
		for _, r := range ramps {
			retVal = append(retVal, Scenario{Tamb: ta, Irms: TorqueRamp(r.from, r.to, r.ramp, kt)})
		}
	}
	return retVal
}

// HoldoutAmbient lies between the training ambients.
const HoldoutAmbient = 40.0

// HoldoutScenarios are validation scenarios no part of DefaultScenarios covers: the ramps below
// are absent from training and run at HoldoutAmbient only.
func HoldoutScenarios(kt float64) []Scenario {
	ramps := []struct{ from, to, ramp float64 }{
		{3, 14, 0.05},
		{4, 16, 0.09},
		{2, 10, 0.04},
	}
	retVal := make([]Scenario, 0, len(ramps))
	for _, r := range ramps {
		retVal = append(retVal, Scenario{Tamb: HoldoutAmbient, Irms: TorqueRamp(r.from, r.to, r.ramp, kt)})
	}
	return retVal
}
