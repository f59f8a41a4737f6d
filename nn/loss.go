package nn

import "fmt"

// LossFunc returns the loss of a prediction and its gradient w.r.t. the prediction.
type LossFunc func(pred, target []float64) (loss float64, grad []float64)

// SquaredError is Σ(y-t)² with gradient 2(y-t).
func SquaredError(pred, target []float64) (float64, []float64) {
	checkLen(pred, target)
	var loss float64
	grad := make([]float64, len(pred))
	for i := range pred {
		d := pred[i] - target[i]
		loss += d * d
		grad[i] = 2 * d
	}
	return loss, grad
}

// MeanSquaredError is Σ(y-t)²/n with gradient 2(y-t)/n. The autoencoder reconstructs with it.
func MeanSquaredError(pred, target []float64) (float64, []float64) {
	checkLen(pred, target)
	n := float64(len(pred))
	var loss float64
	grad := make([]float64, len(pred))
	for i := range pred {
		d := pred[i] - target[i]
		loss += d * d
		grad[i] = 2 * d / n
	}
	return loss / n, grad
}

func checkLen(pred, target []float64) {
	if len(pred) != len(target) {
		panic(fmt.Sprintf("prediction has %d values, target has %d", len(pred), len(target)))
	}
}
