package nn

import "math"

// Activation is a pointwise nonlinearity.
type Activation byte

const (
	Linear Activation = iota
	Tanh
	ReLU

	maxActivation
)

func (a Activation) String() string {
	switch a {
	case Linear:
		return "linear"
	case Tanh:
		return "tanh"
	case ReLU:
		return "relu"
	}
	return "unknown"
}

func (a Activation) isValid() bool { return a < maxActivation }

func (a Activation) apply(z float64) float64 {
	switch a {
	case Tanh:
		return math.Tanh(z)
	case ReLU:
		if z > 0 {
			return z
		}
		return 0
	default:
		return z
	}
}

// deriv is the derivative expressed in terms of the pre-activation z and the activation a.
func (a Activation) deriv(z, act float64) float64 {
	switch a {
	case Tanh:
		return 1 - act*act
	case ReLU:
		if z > 0 {
			return 1
		}
		return 0
	default:
		return 1
	}
}
