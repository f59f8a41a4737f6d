package drive

// PI is a discrete PI controller with clamping anti-windup: when the output saturates, the step's
// contribution to the integral is undone.
type PI struct {
	Kp, Ki   float64
	Min, Max float64

	integral float64
}

func NewPI(kp, ki, min, max float64) *PI {
	return &PI{Kp: kp, Ki: ki, Min: min, Max: max}
}

// Compute advances the controller by dt and returns the clamped output.
func (pi *PI) Compute(err, dt float64) float64 {
	prev := pi.integral
	pi.integral += err * dt
	out := pi.Kp*err + pi.Ki*pi.integral
	switch {
	case out > pi.Max:
		out = pi.Max
		pi.integral = prev
	case out < pi.Min:
		out = pi.Min
		pi.integral = prev
	}
	return out
}

func (pi *PI) Integral() float64 { return pi.integral }

// Inject adds delta to the integrator. It is used to disturb a loop from outside.
func (pi *PI) Inject(delta float64) { pi.integral += delta }

func (pi *PI) Reset() { pi.integral = 0 }
