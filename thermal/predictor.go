package thermal

import (
	"math"
	"math/rand"

	"github.com/evdrive/aiinverter/nn"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// GenConf configures training data generation for the predictor.
type GenConf struct {
	Dt             float64 // [s]
	SimSteps       int
	Horizon        int // label is Tj this many steps ahead
	MaxPerScenario int
}

func DefaultGenConf() GenConf {
	return GenConf{
		Dt:             500e-6,
		SimSteps:       400,
		Horizon:        100,
		MaxPerScenario: 150,
	}
}

func (conf GenConf) IsValid() bool {
	return conf.Dt > 0 && conf.SimSteps > 0 && conf.Horizon > 0 && conf.MaxPerScenario > 0
}

// GenerateSamples simulates every scenario on net with the bridge losses of dev and returns inputs
// [Tj, dTj/dt, P, Tamb] with the junction temperature Horizon steps later as label. Each scenario
// contributes at most about MaxPerScenario evenly spaced samples. net is reset per scenario.
func GenerateSamples(scenarios []Scenario, conf GenConf, net *Network, dev SiC) (xs [][]float64, ys []float64, err error) {
	if !conf.IsValid() {
		return nil, nil, errors.Errorf("invalid generator config %+v", conf)
	}
	tj := make([]float64, conf.SimSteps)
	p := make([]float64, conf.SimSteps)
	for _, s := range scenarios {
		net.Reset(s.Tamb)
		for i := range tj {
			t := float64(i) * conf.Dt
			p[i] = dev.Bridge(s.Irms(t), net.Tj)
			tj[i] = net.Update(p[i], conf.Dt)
		}
		available := conf.SimSteps - conf.Horizon
		if available <= 0 {
			continue
		}
		step := available / conf.MaxPerScenario
		if step < 1 {
			step = 1
		}
		for i := 0; i < available; i += step {
			var dtj float64
			if i > 0 {
				dtj = (tj[i] - tj[i-1]) / conf.Dt
			}
			xs = append(xs, []float64{tj[i], dtj, p[i], s.Tamb})
			ys = append(ys, tj[i+conf.Horizon])
		}
	}
	if len(xs) == 0 {
		return nil, nil, errors.Errorf("%d scenarios of %d steps yield no samples at horizon %d", len(scenarios), conf.SimSteps, conf.Horizon)
	}
	return xs, ys, nil
}

// DefaultPredictorTrainConf trains with a constant learn rate.
func DefaultPredictorTrainConf() nn.TrainConf {
	return nn.TrainConf{
		Epochs:    40,
		BatchSize: 64,
		LearnRate: 0.01,
		Loss:      nn.SquaredError,
	}
}

// Predictor forecasts the junction temperature Horizon steps ahead with a 4→8→4→1 network and
// derates on the forecast.
type Predictor struct {
	Curve
	Horizon int

	net     *nn.Network
	in, out nn.Normalizer
	trained bool

	rand   *rand.Rand
	logger *logrus.Logger
}

// NewPredictor creates an untrained predictor. A nil logger logs to logrus' default output.
func NewPredictor(r *rand.Rand, logger *logrus.Logger) *Predictor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Predictor{
		Curve:   Curve{Warn: 135, Max: 150},
		Horizon: DefaultGenConf().Horizon,
		net:     nn.New(nn.ThermalConf(), r),
		rand:    r,
		logger:  logger,
	}
}

// Train fits the normalisers on the samples and trains the network on the standardised data.
func (p *Predictor) Train(xs [][]float64, ys []float64, conf nn.TrainConf) (nn.Result, error) {
	if len(xs) != len(ys) {
		return nn.Result{}, errors.Errorf("%d inputs but %d labels", len(xs), len(ys))
	}
	in, err := nn.Fit(xs)
	if err != nil {
		return nn.Result{}, errors.WithMessage(err, "input normalizer")
	}
	out, err := nn.FitScalar(ys)
	if err != nil {
		return nn.Result{}, errors.WithMessage(err, "output normalizer")
	}
	targets := make([][]float64, len(ys))
	for i, y := range ys {
		targets[i] = out.Apply([]float64{y})
	}
	data, err := nn.NewDataset(in.ApplyAll(xs), targets)
	if err != nil {
		return nn.Result{}, errors.WithMessage(err, "thermal dataset")
	}
	if conf.BatchSize > data.Len() {
		conf.BatchSize = data.Len()
	}
	p.logger.WithFields(logrus.Fields{
		"samples": data.Len(),
		"epochs":  conf.Epochs,
		"horizon": p.Horizon,
	}).Info("training thermal predictor")

	res, err := nn.Train(p.net, data, conf, p.rand, p.logger)
	if err != nil {
		return res, errors.WithMessage(err, "thermal predictor")
	}
	p.in, p.out, p.trained = in, out, true
	return res, nil
}

// Trained reports whether Train has completed.
func (p *Predictor) Trained() bool { return p.trained }

// PredictTj forecasts the junction temperature. It panics if the predictor is untrained.
func (p *Predictor) PredictTj(tj, dtj, ploss, tamb float64) float64 {
	if !p.trained {
		panic("thermal predictor used before training")
	}
	y := p.net.Forward(p.in.Apply([]float64{tj, dtj, ploss, tamb}))
	return p.out.Denorm(0, y[0])
}

// Limit derates on the forecast junction temperature.
func (p *Predictor) Limit(o Observation) float64 {
	return p.Curve.Limit(p.PredictTj(o.Tj, o.DTjDt, o.PLoss, o.Tamb))
}

func (p *Predictor) Name() string { return "ai" }

// Net exposes the underlying network for export.
func (p *Predictor) Net() *nn.Network { return p.net }

// MeanAbsError is the mean absolute forecast error over a sample set.
func (p *Predictor) MeanAbsError(xs [][]float64, ys []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, errors.New("no samples to evaluate")
	}
	if len(xs) != len(ys) {
		return 0, errors.Errorf("%d inputs but %d labels", len(xs), len(ys))
	}
	var sum float64
	for i, x := range xs {
		sum += math.Abs(p.PredictTj(x[0], x[1], x[2], x[3]) - ys[i])
	}
	return sum / float64(len(xs)), nil
}
