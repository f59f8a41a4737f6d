package nn

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Result summarises a training run.
type Result struct {
	Best   float64   // lowest epoch loss
	Final  float64   // loss of the last epoch
	Losses []float64 // mean per-sample loss of each epoch
}

// Train runs per-sample SGD over data. Sample order is reshuffled every epoch with r, and the
// samples are walked in mini-batches of conf.BatchSize.
func Train(n *Network, data *Dataset, conf TrainConf, r *rand.Rand, logger *logrus.Logger) (Result, error) {
	if !conf.IsValid() {
		return Result{}, errors.Errorf("invalid training config %+v", conf)
	}
	if data == nil || data.Len() == 0 {
		return Result{}, errors.New("cannot train on an empty dataset")
	}
	if data.InWidth() != n.In() || data.OutWidth() != n.Out() {
		return Result{}, errors.Errorf("dataset is %d→%d but network is %d→%d", data.InWidth(), data.OutWidth(), n.In(), n.Out())
	}
	if logger == nil {
		logger = logrus.New()
	}
	loss := conf.Loss
	if loss == nil {
		loss = SquaredError
	}

	samples := data.Len()
	batchSize := conf.BatchSize
	if batchSize > samples {
		batchSize = samples
	}
	indices := make([]int, samples)
	for i := range indices {
		indices[i] = i
	}

	retVal := Result{
		Best:   math.Inf(1),
		Losses: make([]float64, 0, conf.Epochs),
	}
	for epoch := 0; epoch < conf.Epochs; epoch++ {
		lr := conf.rateAt(epoch)
		shuffle(indices, r)

		var epochLoss float64
		for start := 0; start < samples; start += batchSize {
			end := start + batchSize
			if end > samples {
				end = samples
			}
			for _, idx := range indices[start:end] {
				x, y := data.Row(idx)
				l, grad := loss(n.Forward(x), y)
				n.BackwardGrad(grad)
				n.Update(lr)
				epochLoss += l
			}
		}
		epochLoss /= float64(samples)
		if math.IsNaN(epochLoss) || math.IsInf(epochLoss, 0) {
			return retVal, errors.Errorf("training diverged at epoch %d (loss %v, lr %v)", epoch+1, epochLoss, lr)
		}

		retVal.Losses = append(retVal.Losses, epochLoss)
		retVal.Final = epochLoss
		if epochLoss < retVal.Best {
			retVal.Best = epochLoss
		}
		if epoch == 0 || (epoch+1)%10 == 0 {
			logger.WithFields(logrus.Fields{
				"epoch": epoch + 1,
				"loss":  epochLoss,
				"lr":    lr,
				"net":   n.Sizes,
			}).Info("training")
		}
	}
	return retVal, nil
}

// shuffle is a Fisher-Yates shuffle.
func shuffle(a []int, r *rand.Rand) {
	for i := range a {
		j := r.Intn(i + 1)
		a[i], a[j] = a[j], a[i]
	}
}
