package anomaly

import (
	"math"
	"math/rand"

	"github.com/evdrive/aiinverter/nn"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// Conf configures autoencoder training and the detection threshold.
type Conf struct {
	Train nn.TrainConf
	Sigma float64 // threshold = mean + Sigma·std of the healthy scores
}

func DefaultConf() Conf {
	return Conf{
		Train: nn.TrainConf{
			Epochs:     100,
			BatchSize:  1,
			LearnRate:  0.01,
			DecayEvery: 30,
			Decay:      0.5,
			Loss:       nn.MeanSquaredError,
		},
		Sigma: 3,
	}
}

func (conf Conf) IsValid() bool { return conf.Train.IsValid() && conf.Sigma > 0 }

// Detector scores samples by the reconstruction error of a 12→8→4→8→12 autoencoder.
type Detector struct {
	net       *nn.Network
	norm      nn.Normalizer
	Threshold float64
	Mean, Std float64 // of the healthy scores
	trained   bool

	rand   *rand.Rand
	logger *logrus.Logger
}

func NewDetector(r *rand.Rand, logger *logrus.Logger) *Detector {
	if logger == nil {
		logger = logrus.New()
	}
	return &Detector{
		net:       nn.New(nn.AutoencoderConf(), r),
		Threshold: math.Inf(1),
		rand:      r,
		logger:    logger,
	}
}

// Train fits the normaliser on the healthy samples, trains the autoencoder to reproduce them and sets
// the threshold from their scores.
func (d *Detector) Train(samples [][]float64, conf Conf) (nn.Result, error) {
	if !conf.IsValid() {
		return nn.Result{}, errors.Errorf("invalid detector config %+v", conf)
	}
	norm, err := nn.Fit(samples)
	if err != nil {
		return nn.Result{}, errors.WithMessage(err, "detector normalizer")
	}
	if norm.Width() != NumFeatures {
		return nn.Result{}, errors.Errorf("samples have %d features, want %d", norm.Width(), NumFeatures)
	}
	xs := norm.ApplyAll(samples)
	data, err := nn.NewDataset(xs, xs)
	if err != nil {
		return nn.Result{}, errors.WithMessage(err, "detector dataset")
	}
	d.logger.WithFields(logrus.Fields{"samples": data.Len()}).Info("training autoencoder")

	res, err := nn.Train(d.net, data, conf.Train, d.rand, d.logger)
	if err != nil {
		return res, errors.WithMessage(err, "autoencoder")
	}
	d.norm = norm

	scores := make([]float64, len(xs))
	for i, x := range xs {
		scores[i] = d.score(x)
	}
	d.Mean, d.Std = stat.PopMeanStdDev(scores, nil)
	d.Threshold = d.Mean + conf.Sigma*d.Std
	d.trained = true
	d.logger.WithFields(logrus.Fields{
		"mean":      d.Mean,
		"std":       d.Std,
		"threshold": d.Threshold,
	}).Info("anomaly threshold")
	return res, nil
}

func (d *Detector) score(x []float64) float64 {
	l, _ := nn.MeanSquaredError(d.net.Forward(x), x)
	return l
}

// Trained reports whether Train has completed.
func (d *Detector) Trained() bool { return d.trained }

// Score is the reconstruction MSE of a raw sample.
func (d *Detector) Score(raw []float64) float64 { return d.score(d.norm.Apply(raw)) }

func (d *Detector) IsAnomaly(raw []float64) bool { return d.Score(raw) > d.Threshold }

func (d *Detector) Net() *nn.Network { return d.net }
