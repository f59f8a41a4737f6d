// Package aiinverter trains the three networks of an AI assisted motor drive inverter, duels the
// thermal predictor against conventional derating, and hands the trained models to the digital
// twin inspector.
package aiinverter

import (
	"fmt"
	"math/rand"

	"github.com/evdrive/aiinverter/anomaly"
	"github.com/evdrive/aiinverter/observer"
	"github.com/evdrive/aiinverter/thermal"
	"github.com/evdrive/aiinverter/twin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Suite is the top level structure and the entry point of the API. It owns the thermal predictor,
// the sensorless observer and the anomaly detector of one drive.
type Suite struct {
	// state
	Arena
	Statistics
	useDummy bool

	predictor *thermal.Predictor
	observer  *observer.Observer
	detector  *anomaly.Detector
	normal    [][]float64

	// config
	conf      Config
	scenarios []thermal.Scenario
	gen       observer.Generator
	features  anomaly.Features

	rand     *rand.Rand
	progress *logrus.Logger

	// io
	outEnc OutputEncoder
}

// New creates an untrained suite. Progress is logged to logger, or to a new logrus logger if it is
// nil. It panics if the configuration is invalid.
func New(conf Config, logger *logrus.Logger) *Suite {
	if !conf.IsValid() {
		panic(fmt.Sprintf("invalid configuration %+v. Unable to proceed", conf))
	}
	if logger == nil {
		logger = logrus.New()
	}
	r := rand.New(rand.NewSource(conf.Seed))

	retVal := &Suite{
		Arena:      MakeArena(thermal.NewConventional(), dummyDerater{}, conf.Params, conf.Arena, conf.Name),
		Statistics: makeStatistics(),
		useDummy:   true,

		predictor: thermal.NewPredictor(r, logger),
		observer:  observer.New(r, logger),
		detector:  anomaly.NewDetector(r, logger),

		conf:      conf,
		scenarios: thermal.DefaultScenarios(conf.Params.Kt()),
		gen:       observer.NewGenerator(conf.Params),
		features:  anomaly.NewFeatures(conf.Params),

		rand:     r,
		progress: logger,
		outEnc:   conf.OutputEncoder,
	}
	retVal.logger = bufferLogger(&retVal.buf)
	return retVal
}

// Train trains the thermal predictor, the observer and the autoencoder in turn and records their
// loss curves. Once the predictor is trained, agent B derates with it.
func (s *Suite) Train() error {
	s.progress.WithField("scenarios", len(s.scenarios)).Info("generating thermal samples")
	xs, ys, err := thermal.GenerateSamples(s.scenarios, s.conf.Thermal.Gen, thermal.DefaultNetwork(), s.dev)
	if err != nil {
		return errors.WithMessage(err, "thermal samples")
	}
	res, err := s.predictor.Train(xs, ys, s.conf.Thermal.Train)
	if err != nil {
		return errors.WithMessage(err, "train thermal predictor")
	}
	s.record("thermal", res)
	s.B.Derater = s.predictor
	s.useDummy = false

	if res, err = s.observer.Train(s.gen, s.conf.Observer); err != nil {
		return errors.WithMessage(err, "train observer")
	}
	s.record("observer", res)

	ac := s.conf.Anomaly
	s.normal = s.features.Generate(ac.Speeds, ac.Torques, ac.PerPoint, s.rand)
	s.progress.WithField("samples", len(s.normal)).Info("generated healthy samples")
	if res, err = s.detector.Train(s.normal, ac.Detector); err != nil {
		return errors.WithMessage(err, "train anomaly detector")
	}
	s.record("autoencoder", res)
	s.progress.WithField("threshold", s.detector.Threshold).Info("suite trained")
	return nil
}

// Compare duels conventional derating against the predictor at every ambient. Before Train, agent
// B does not derate at all.
func (s *Suite) Compare(ambients []float64) ([]Duel, error) {
	if s.useDummy {
		s.progress.Warn("thermal predictor untrained. Using dummy")
		s.B.useDummy()
	}
	retVal := make([]Duel, 0, len(ambients))
	for _, ta := range ambients {
		d, err := s.Play(ta, s.outEnc)
		if err != nil {
			return retVal, errors.WithMessage(err, fmt.Sprintf("duel at %v °C", ta))
		}
		s.update(d)
		s.progress.WithFields(logrus.Fields{
			"tamb":     ta,
			"A_tj_max": d.A.TjMax,
			"B_tj_max": d.B.TjMax,
			"A_torque": d.A.MeanTorque,
			"B_torque": d.B.MeanTorque,
		}).Info("duel")
		retVal = append(retVal, d)
	}
	if s.outEnc != nil {
		if err := s.outEnc.Flush(); err != nil {
			return retVal, errors.Wrap(err, "flush output encoder")
		}
	}
	return retVal, nil
}

// Trained reports whether all three networks completed training.
func (s *Suite) Trained() bool {
	return s.predictor.Trained() && s.observer.Trained() && s.detector.Trained()
}

// Models returns the networks and the data they were trained on, as the inspector needs them.
func (s *Suite) Models() *twin.Models {
	ac := s.conf.Anomaly
	return &twin.Models{
		Predictor: s.predictor,
		Scenarios: s.scenarios,
		Observer:  s.observer,
		Generator: s.gen,
		Detector:  s.detector,
		Features:  s.features,
		Normal:    s.normal,
		Speeds:    ac.Speeds,
		Torques:   ac.Torques,
	}
}

// Inspect runs every inspection category against the trained suite.
func (s *Suite) Inspect() (*twin.Inspector, error) {
	if !s.Trained() {
		return nil, errors.New("the suite must be trained before inspection")
	}
	in := twin.New(s.conf.Params, s.rand, s.progress)
	in.Models = s.Models()
	if err := in.Run(); err != nil {
		return in, err
	}
	s.progress.WithField("verdict", in.Verdict()).Info("inspection done")
	return in, nil
}

// Rand is the suite's random source. Experiments run from it stay reproducible under Config.Seed.
func (s *Suite) Rand() *rand.Rand { return s.rand }

func (s *Suite) Config() Config { return s.conf }
