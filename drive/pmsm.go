package drive

import (
	"fmt"
	"math"
)

// Params are the electrical and mechanical constants of a surface PMSM and its DC link.
type Params struct {
	Rs        float64 // stator resistance [Ω]
	Ld, Lq    float64 // dq inductances [H]
	Lambda    float64 // PM flux linkage [Wb]
	PolePairs int
	J         float64 // inertia [kg·m²]
	B         float64 // viscous friction [N·m·s/rad]
	Vdc       float64 // DC link [V]
}

// DefaultParams is a typical EV traction PMSM.
func DefaultParams() Params {
	return Params{
		Rs:        0.01,
		Ld:        0.5e-3,
		Lq:        0.5e-3,
		Lambda:    0.1,
		PolePairs: 4,
		J:         0.01,
		B:         0.001,
		Vdc:       400,
	}
}

func (p Params) IsValid() bool {
	return p.Rs > 0 && p.Ld > 0 && p.Lq > 0 && p.Lambda > 0 && p.PolePairs > 0 && p.J > 0 && p.B >= 0 && p.Vdc > 0
}

// Kt is the torque constant 1.5·P·λ.
func (p Params) Kt() float64 { return 1.5 * float64(p.PolePairs) * p.Lambda }

// VMax is the radius of the circle inscribed in the SVPWM hexagon.
func (p Params) VMax() float64 { return p.Vdc / sqrt3 }

// Motor is the dq-frame PMSM plant, integrated with forward Euler.
type Motor struct {
	Params

	Id, Iq float64
	OmegaM float64 // mechanical speed [rad/s]
	ThetaE float64 // electrical angle in [0, 2π)
	Te     float64
}

// NewMotor creates a motor at rest. It panics if the parameters are invalid.
func NewMotor(p Params) *Motor {
	if !p.IsValid() {
		panic(fmt.Sprintf("invalid motor parameters %+v", p))
	}
	return &Motor{Params: p}
}

// OmegaE is the electrical speed.
func (m *Motor) OmegaE() float64 { return m.OmegaM * float64(m.PolePairs) }

func (m *Motor) RPM() float64 { return RadSToRPM(m.OmegaM) }

// Update advances the plant by dt under the applied dq voltages and load torque.
// The back-EMF and cross coupling use the speed from before the step.
func (m *Motor) Update(vd, vq, load, dt float64) {
	we := m.OmegaE()
	did := (vd - m.Rs*m.Id + we*m.Lq*m.Iq) / m.Ld
	diq := (vq - m.Rs*m.Iq - we*(m.Ld*m.Id+m.Lambda)) / m.Lq
	m.Id += did * dt
	m.Iq += diq * dt

	m.Te = 1.5 * float64(m.PolePairs) * (m.Lambda*m.Iq + (m.Ld-m.Lq)*m.Id*m.Iq)

	m.OmegaM += (m.Te - load - m.B*m.OmegaM) / m.J * dt
	m.ThetaE = WrapAngle(m.ThetaE + we*dt)
}

// PhaseCurrents returns the abc currents of the present state.
func (m *Motor) PhaseCurrents() (ia, ib, ic float64) {
	alpha, beta := InvPark(m.Id, m.Iq, m.ThetaE)
	return InvClarke(alpha, beta)
}

// BackEMF is the q-axis back-EMF magnitude ωe·λ.
func (m *Motor) BackEMF() float64 { return math.Abs(m.OmegaE() * m.Lambda) }

func (m *Motor) Reset() {
	m.Id, m.Iq, m.OmegaM, m.ThetaE, m.Te = 0, 0, 0, 0, 0
}
