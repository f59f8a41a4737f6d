package anomaly

import (
	"fmt"
	"math"
	"math/rand"
)

// Fault is a kind of degradation that can be injected into a healthy sample.
type Fault byte

const (
	BearingWear Fault = iota
	WindingShort
	SiCDegradation
	DCLinkAging

	MaxFault
)

// Faults lists every fault kind.
var Faults = []Fault{BearingWear, WindingShort, SiCDegradation, DCLinkAging}

func (f Fault) String() string {
	switch f {
	case BearingWear:
		return "bearing wear"
	case WindingShort:
		return "winding short"
	case SiCDegradation:
		return "SiC degradation"
	case DCLinkAging:
		return "DC-link aging"
	}
	return fmt.Sprintf("Fault(%d)", byte(f))
}

// Inject returns a copy of sample perturbed by fault f at severity in [0, 1]. omegaNorm is the
// normalised speed, which scales the vibration of a worn bearing.
func Inject(sample []float64, f Fault, severity, omegaNorm float64, r *rand.Rand) []float64 {
	if len(sample) != NumFeatures {
		panic(fmt.Sprintf("sample has %d features, want %d", len(sample), NumFeatures))
	}
	s := append([]float64(nil), sample...)
	switch f {
	case BearingWear:
		phase := r.Float64() * 2 * math.Pi
		amp := severity * (0.8 + omegaNorm)
		ripple := amp * math.Sin(phase)
		boost := amp * r.NormFloat64() * 0.3
		s[Iq] += ripple*0.6 + boost
		s[IAlpha] += ripple * 0.5
		s[IBeta] += amp * math.Cos(phase) * 0.5
		s[Speed] += amp * 0.2
		s[Torque] += ripple * 0.15
		s[Tj] += amp * 0.05
		s[IqPrev] += ripple*0.5 + boost
		s[IAlphaPrev] += amp * math.Sin(phase*0.7) * 0.4
		s[IBetaPrev] += amp * math.Cos(phase*0.7) * 0.4
		// eccentricity modulates the d axis too
		s[Id] += amp * math.Cos(phase) * 0.1
		s[IdPrev] += amp * math.Cos(phase*0.7) * 0.1

	case WindingShort:
		amp := severity * 0.8
		s[Id] += amp * 0.3
		s[IAlpha] += amp * 0.5
		s[IBeta] -= amp * 0.4
		s[Tj] += amp * 0.1
		s[Iq] += amp * 0.3 * math.Sin(r.Float64()*4*math.Pi)
		s[IAlphaPrev] += amp * 0.4
		s[IBetaPrev] -= amp * 0.3

	case SiCDegradation:
		s[Tj] += severity * 0.4
		s[Id] += severity * 0.25
		s[Iq] -= severity * 0.15
		s[IAlpha] += severity * 0.2 * math.Sin(r.Float64()*2*math.Pi)
		s[IBeta] += severity * 0.2 * math.Cos(r.Float64()*2*math.Pi)
		s[Vdc] -= severity * 0.15
		s[IdPrev] += severity * 0.2
		s[IqPrev] -= severity * 0.1

	case DCLinkAging:
		ripple := severity * 0.5 * math.Sin(r.Float64()*2*math.Pi)
		s[Vdc] += ripple
		s[Id] += ripple * 0.4
		s[Iq] += ripple * 0.3
		s[IAlpha] += ripple * 0.3
		s[IBeta] += ripple * 0.25
		s[IdPrev] += ripple * 0.35
		s[IqPrev] += ripple * 0.25
		s[IAlphaPrev] += ripple * 0.2

	default:
		panic(fmt.Sprintf("unknown fault %v", f))
	}
	return s
}
