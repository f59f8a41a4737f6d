package twin

import (
	"fmt"
	"math"

	"github.com/evdrive/aiinverter/anomaly"
	"github.com/evdrive/aiinverter/observer"
	"github.com/evdrive/aiinverter/thermal"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Models are the trained networks under certification together with the data they were trained on.
type Models struct {
	Predictor *thermal.Predictor
	Scenarios []thermal.Scenario // training scenarios, for the generalisation gap

	Observer  *observer.Observer
	Generator observer.Generator

	Detector *anomaly.Detector
	Features anomaly.Features
	Normal   [][]float64 // healthy training samples
	Speeds   []float64   // operating grid of Normal [rpm]
	Torques  []float64
}

// Stage is one task of the control interrupt.
type Stage struct {
	Name string
	Us   float64 // average cost per control period [µs]
}

// Budget is the control interrupt workload at a 20 kHz control rate. The network stages run
// decimated and are listed at their averaged cost.
var Budget = []Stage{
	{"FOC core (ADC, Clarke, Park, PI, SVPWM)", 4.0},
	{"thermal NN, every 10th period", 0.5},
	{"NN observer, every period", 1.5},
	{"anomaly AE, every 50th period", 0.3},
}

// PeriodUs is the control period the budget must fit in.
const PeriodUs = 50.0

// MemoryLimit is the SRAM set aside for float32 weights.
const MemoryLimit = 16 << 10

// AI certifies the trained networks on data they have not seen.
func (in *Inspector) AI() error {
	const cat = "AI"
	m := in.Models
	if m == nil || m.Predictor == nil || m.Observer == nil || m.Detector == nil {
		return errors.New("models are missing")
	}
	switch {
	case !m.Predictor.Trained():
		return errors.New("thermal predictor is untrained")
	case !m.Observer.Trained():
		return errors.New("observer is untrained")
	case !m.Detector.Trained():
		return errors.New("anomaly detector is untrained")
	}
	if len(m.Normal) == 0 {
		return errors.New("no healthy samples to inject faults into")
	}

	// thermal predictor on ramps and an ambient it was not trained on
	xs, ys, err := thermal.GenerateSamples(thermal.HoldoutScenarios(in.Params.Kt()), thermal.DefaultGenConf(), thermal.DefaultNetwork(), in.SiC)
	if err != nil {
		return errors.WithMessage(err, "thermal validation data")
	}
	mae, err := m.Predictor.MeanAbsError(xs, ys)
	if err != nil {
		return errors.WithMessage(err, "thermal validation")
	}
	in.Record(cat, "thermal NN MAE", mae, "< 5", "C", below(mae, 5, 10))
	if txs, tys, err := thermal.GenerateSamples(m.Scenarios, thermal.DefaultGenConf(), thermal.DefaultNetwork(), in.SiC); err == nil {
		if trainMAE, err := m.Predictor.MeanAbsError(txs, tys); err == nil {
			in.logger.WithFields(logrus.Fields{
				"train_mae":   trainMAE,
				"holdout_mae": mae,
			}).Debug("thermal generalisation")
		}
	}

	// observer accuracy over the speed × torque map above the low speed region
	var sum float64
	var n int
	for _, tq := range []float64{2, 5, 10, 15} {
		for _, v := range m.Observer.Validate(m.Generator, []float64{500, 800, 1000, 1500, 2000, 2500, 3000}, tq, 200) {
			sum += v.ThetaRMSEDeg
			n++
		}
	}
	acc := math.NaN()
	if n > 0 {
		acc = sum / float64(n)
	}
	in.Record(cat, "observer accuracy", acc, "< 15", "deg", below(acc, 15, 30))

	ramp := observer.DefaultRampConf()
	track := observer.RampRMSE(m.Observer.Ramp(m.Generator, ramp))
	trackPct := track / ramp.ToRPM * 100
	in.Record(cat, "observer tracking", trackPct, "< 10", "%", below(trackPct, 10, 20))

	// a fault counts when the detector flags it at half severity or less
	var detected int
	for _, f := range anomaly.Faults {
		_, at := anomaly.Sweep(m.Detector, m.Normal, f, anomaly.DefaultSweepConf(), in.rand)
		ok := at >= 0 && at <= 0.5
		if ok {
			detected++
		}
		in.logger.WithField("fault", f).WithField("severity", at).Debug("fault sweep")
	}
	in.Record(cat, "fault sensitivity", float64(detected), fmt.Sprintf(">= 3 of %d", len(anomaly.Faults)), "faults", above(float64(detected), 2, 1))

	fresh := m.Features.Generate(m.Speeds, m.Torques, 20, in.rand)
	fp := anomaly.FalsePositiveRate(m.Detector, fresh, 500, 0, in.rand)
	in.Record(cat, "FP rate", fp, "< 5", "%", below(fp, 5, 5))

	var us float64
	for _, s := range Budget {
		us += s.Us
	}
	util := us / PeriodUs * 100
	in.Record(cat, "AI timing", util, "< 50", "%", below(util, 50, 80))

	mem := m.Predictor.Net().MemoryBytes() + m.Observer.Net().MemoryBytes() + m.Detector.Net().MemoryBytes()
	in.Record(cat, "weight memory", float64(mem), fmt.Sprintf("< %d", MemoryLimit), "bytes", below(float64(mem), MemoryLimit, MemoryLimit))
	return nil
}
