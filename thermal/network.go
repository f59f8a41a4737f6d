// Package thermal models the junction temperature of the inverter's SiC bridge and the torque
// derating policies that keep it below its limit.
package thermal

import "fmt"

// Network is a three node Cauer RC ladder: junction → case → heatsink → ambient.
type Network struct {
	Rjc, Rcs, Rsa float64 // [K/W]
	Cj, Cc, Cs    float64 // [J/K]
	Tamb          float64 // [°C]

	Tj, Tc, Ts float64
}

// DefaultNetwork returns a network at rest at 25 °C.
func DefaultNetwork() *Network {
	n := &Network{
		Rjc: 0.5, Rcs: 0.2, Rsa: 0.3,
		Cj: 0.005, Cc: 0.5, Cs: 5,
	}
	n.Reset(25)
	return n
}

func (n *Network) IsValid() bool {
	return n.Rjc > 0 && n.Rcs > 0 && n.Rsa > 0 && n.Cj > 0 && n.Cc > 0 && n.Cs > 0
}

// Reset sets the ambient and brings every node to it.
func (n *Network) Reset(tamb float64) {
	n.Tamb = tamb
	n.Tj, n.Tc, n.Ts = tamb, tamb, tamb
}

// Update integrates the ladder by dt with p watts injected at the junction and returns Tj.
func (n *Network) Update(p, dt float64) float64 {
	qjc := (n.Tj - n.Tc) / n.Rjc
	qcs := (n.Tc - n.Ts) / n.Rcs
	qsa := (n.Ts - n.Tamb) / n.Rsa
	n.Tj += (p - qjc) / n.Cj * dt
	n.Tc += (qjc - qcs) / n.Cc * dt
	n.Ts += (qcs - qsa) / n.Cs * dt
	return n.Tj
}

// Rth is the total junction-to-ambient resistance.
func (n *Network) Rth() float64 { return n.Rjc + n.Rcs + n.Rsa }

// SteadyState is the junction temperature reached under constant p.
func (n *Network) SteadyState(p float64) float64 { return n.Tamb + p*n.Rth() }

// Clone returns a copy with the same constants and state.
func (n *Network) Clone() *Network {
	c := *n
	return &c
}

func (n *Network) String() string {
	return fmt.Sprintf("Tj %.2f °C Tc %.2f °C Ts %.2f °C (Ta %.1f °C)", n.Tj, n.Tc, n.Ts, n.Tamb)
}

// Settle integrates under constant p for steps and returns the final Tj.
func (n *Network) Settle(p, dt float64, steps int) float64 {
	for i := 0; i < steps; i++ {
		n.Update(p, dt)
	}
	return n.Tj
}
