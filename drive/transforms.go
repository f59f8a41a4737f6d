// Package drive models a PMSM traction drive: reference-frame transforms, PI loops, the dq plant,
// field oriented control, space vector modulation and a closed-loop simulation.
package drive

import "math"

const (
	sqrt3   = 1.7320508075688772
	twoPi   = 2 * math.Pi
	rpmToRS = twoPi / 60
)

// Clarke is the amplitude-invariant abc → αβ transform.
func Clarke(a, b, c float64) (alpha, beta float64) {
	alpha = 2.0 / 3.0 * (a - 0.5*b - 0.5*c)
	beta = 2.0 / 3.0 * (sqrt3 / 2 * (b - c))
	return
}

// Park rotates αβ into the rotor frame at electrical angle theta.
func Park(alpha, beta, theta float64) (d, q float64) {
	s, c := math.Sincos(theta)
	d = alpha*c + beta*s
	q = -alpha*s + beta*c
	return
}

// InvPark rotates dq back into the stationary frame.
func InvPark(d, q, theta float64) (alpha, beta float64) {
	s, c := math.Sincos(theta)
	alpha = d*c - q*s
	beta = d*s + q*c
	return
}

// InvClarke is the αβ → abc transform.
func InvClarke(alpha, beta float64) (a, b, c float64) {
	a = alpha
	b = -0.5*alpha + sqrt3/2*beta
	c = -0.5*alpha - sqrt3/2*beta
	return
}

// WrapAngle maps theta into [0, 2π).
func WrapAngle(theta float64) float64 {
	theta = math.Mod(theta, twoPi)
	if theta < 0 {
		theta += twoPi
	}
	return theta
}

// WrapError maps an angle difference into [-π, π).
func WrapError(d float64) float64 {
	return math.Mod(math.Mod(d+math.Pi, twoPi)+twoPi, twoPi) - math.Pi
}

// RPMToRadS converts a mechanical speed in rpm to rad/s.
func RPMToRadS(rpm float64) float64 { return rpm * rpmToRS }

// RadSToRPM converts rad/s to rpm.
func RadSToRPM(w float64) float64 { return w / rpmToRS }
