package observer

import (
	"math"
	"math/rand"

	"github.com/evdrive/aiinverter/drive"
	"github.com/evdrive/aiinverter/nn"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Conf configures training data generation and the trainer.
type Conf struct {
	SpeedsRPM       []float64
	Torques         []float64
	Dt              float64
	SamplesPerPoint int
	Train           nn.TrainConf
}

func DefaultConf() Conf {
	return Conf{
		SpeedsRPM:       []float64{200, 400, 600, 800, 1000, 1500, 2000, 2500, 3000},
		Torques:         []float64{2, 5, 8, 12, 15},
		Dt:              50e-6,
		SamplesPerPoint: 40,
		Train:           nn.DefaultTrainConf(),
	}
}

func (conf Conf) IsValid() bool {
	return len(conf.SpeedsRPM) > 0 && len(conf.Torques) > 0 && conf.Dt > 0 && conf.SamplesPerPoint > 0 && conf.Train.IsValid()
}

// Observer maps a window of αβ signals to [sin θ, cos θ, ωm/OmegaMax].
type Observer struct {
	net      *nn.Network
	in       nn.Normalizer
	OmegaMax float64
	Dt       float64
	trained  bool

	rand   *rand.Rand
	logger *logrus.Logger
}

func New(r *rand.Rand, logger *logrus.Logger) *Observer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Observer{
		net:      nn.New(nn.ObserverConf(), r),
		OmegaMax: 1,
		Dt:       DefaultConf().Dt,
		rand:     r,
		logger:   logger,
	}
}

// Samples generates windows and labels over the speed × torque grid. Each operating point starts
// at a random angle and advances it by ωe·Dt per measurement. The speed label is in rad/s.
func (o *Observer) Samples(gen Generator, conf Conf) (xs, ys [][]float64, omegaMax float64) {
	var w Window
	for _, rpm := range conf.SpeedsRPM {
		wm := drive.RPMToRadS(rpm)
		omegaMax = math.Max(omegaMax, math.Abs(wm))
		we := wm * float64(gen.PolePairs)
		for _, tq := range conf.Torques {
			theta := o.rand.Float64() * 2 * math.Pi
			w.Reset()
			for s := 0; s < conf.SamplesPerPoint+WindowLen-1; s++ {
				if w.Push(gen.Measure(wm, tq, theta, o.rand)) {
					xs = append(xs, w.Features())
					ys = append(ys, []float64{math.Sin(theta), math.Cos(theta), wm})
				}
				theta = drive.WrapAngle(theta + we*conf.Dt)
			}
		}
	}
	return xs, ys, math.Max(omegaMax, 1)
}

// Train generates the grid data, fits the input normaliser and trains the network.
func (o *Observer) Train(gen Generator, conf Conf) (nn.Result, error) {
	if !conf.IsValid() {
		return nn.Result{}, errors.Errorf("invalid observer config %+v", conf)
	}
	xs, ys, omegaMax := o.Samples(gen, conf)
	for _, y := range ys {
		y[2] /= omegaMax
	}
	in, err := nn.Fit(xs)
	if err != nil {
		return nn.Result{}, errors.WithMessage(err, "observer normalizer")
	}
	data, err := nn.NewDataset(in.ApplyAll(xs), ys)
	if err != nil {
		return nn.Result{}, errors.WithMessage(err, "observer dataset")
	}
	o.logger.WithFields(logrus.Fields{
		"samples":   data.Len(),
		"omega_max": omegaMax,
	}).Info("training sensorless observer")

	res, err := nn.Train(o.net, data, conf.Train, o.rand, o.logger)
	if err != nil {
		return res, errors.WithMessage(err, "sensorless observer")
	}
	o.in, o.OmegaMax, o.Dt, o.trained = in, omegaMax, conf.Dt, true
	return res, nil
}

func (o *Observer) infer(features []float64) (theta, omega, norm float64) {
	out := o.net.Forward(o.in.Apply(features))
	theta = drive.WrapAngle(math.Atan2(out[0], out[1]))
	return theta, out[2] * o.OmegaMax, math.Hypot(out[0], out[1])
}

// Estimate returns the electrical angle in [0, 2π) and the mechanical speed in rad/s.
func (o *Observer) Estimate(w *Window) (theta, omega float64) {
	if !w.Full() {
		panic("observer needs a full window")
	}
	theta, omega, _ = o.infer(w.Features())
	return
}

// CopyTo copies weights, normaliser and speed scale into dst.
func (o *Observer) CopyTo(dst *Observer) error {
	if err := o.net.CopyTo(dst.net); err != nil {
		return errors.WithMessage(err, "observer")
	}
	dst.in = o.in.Clone()
	dst.OmegaMax = o.OmegaMax
	dst.Dt = o.Dt
	dst.trained = o.trained
	return nil
}

// Trained reports whether Train, or a CopyTo from a trained observer, has completed.
func (o *Observer) Trained() bool { return o.trained }

func (o *Observer) Net() *nn.Network { return o.net }
