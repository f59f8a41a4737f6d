package thermal

import "math"

// Switches is the number of MOSFETs in a three phase bridge.
const Switches = 6

// SiC is the conduction and switching loss model of one SiC MOSFET.
type SiC struct {
	Rds25     float64 // on-resistance at 25 °C [Ω]
	Alpha     float64 // temperature coefficient of Rds(on) [1/K]
	Vdc       float64
	Ton, Toff float64 // [s]
	Fsw       float64 // [Hz]
}

// DefaultSiC models a 1200 V, 21 mΩ device switching 400 V at 20 kHz.
func DefaultSiC() SiC {
	return SiC{
		Rds25: 0.021,
		Alpha: 0.004,
		Vdc:   400,
		Ton:   18e-9,
		Toff:  25e-9,
		Fsw:   20e3,
	}
}

// RdsOn is the on-resistance at junction temperature tj.
func (s SiC) RdsOn(tj float64) float64 { return s.Rds25 * (1 + s.Alpha*(tj-25)) }

// Losses returns the per-switch conduction, switching and total loss in watts.
func (s SiC) Losses(irms, tj float64) (cond, sw, total float64) {
	cond = s.RdsOn(tj) * irms * irms
	ipk := math.Sqrt2 * irms
	eon := 0.5 * s.Vdc * ipk * s.Ton
	eoff := 0.5 * s.Vdc * ipk * s.Toff
	sw = (eon + eoff) * s.Fsw
	return cond, sw, cond + sw
}

// Bridge is the total loss of all six switches.
func (s SiC) Bridge(irms, tj float64) float64 {
	_, _, p := s.Losses(irms, tj)
	return p * Switches
}

// Irms is the phase rms current needed for torque on a machine with torque constant kt.
func Irms(torque, kt float64) float64 { return math.Abs(torque/kt) / math.Sqrt2 }
