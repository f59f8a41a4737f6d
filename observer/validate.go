package observer

import (
	"math"

	"github.com/evdrive/aiinverter/drive"
)

// Validation is the steady-state accuracy at one speed.
type Validation struct {
	RPM          float64
	ThetaRMSEDeg float64
	OmegaRMSE    float64 // [rad/s]
	OmegaPct     float64
	SinCosNorm   float64 // mean |(sin, cos)|, ideally 1
	Grade        string
}

// Grade buckets an angle RMSE in degrees.
func Grade(deg float64) string {
	switch {
	case deg < 10:
		return "A"
	case deg < 20:
		return "B"
	case deg < 45:
		return "C"
	}
	return "D"
}

// Validate runs nEval noisy estimates at each speed under a fixed torque.
func (o *Observer) Validate(gen Generator, speedsRPM []float64, torque float64, nEval int) []Validation {
	retVal := make([]Validation, 0, len(speedsRPM))
	var w Window
	for _, rpm := range speedsRPM {
		wm := drive.RPMToRadS(rpm)
		we := wm * float64(gen.PolePairs)
		theta := o.rand.Float64() * 2 * math.Pi
		w.Reset()

		var n, thetaSq, omegaSq, norms float64
		for s := 0; s < nEval+WindowLen-1; s++ {
			if w.Push(gen.Measure(wm, torque, theta, o.rand)) {
				th, om, norm := o.infer(w.Features())
				e := drive.WrapError(th - theta)
				thetaSq += e * e
				omegaSq += (om - wm) * (om - wm)
				norms += norm
				n++
			}
			theta = drive.WrapAngle(theta + we*o.Dt)
		}
		if n == 0 {
			continue
		}
		v := Validation{
			RPM:          rpm,
			ThetaRMSEDeg: math.Sqrt(thetaSq/n) * 180 / math.Pi,
			OmegaRMSE:    math.Sqrt(omegaSq / n),
			SinCosNorm:   norms / n,
		}
		v.OmegaPct = v.OmegaRMSE / math.Max(math.Abs(wm), 1e-6) * 100
		v.Grade = Grade(v.ThetaRMSEDeg)
		retVal = append(retVal, v)
	}
	return retVal
}

// Summary averages validations above and below a speed split.
type Summary struct {
	SplitRPM                   float64
	HighThetaDeg, HighOmegaPct float64
	LowThetaDeg, LowOmegaPct   float64
	Pass                       bool // high-speed accuracy within 15° and 10 %
}

func Summarize(vals []Validation, splitRPM float64) Summary {
	retVal := Summary{SplitRPM: splitRPM}
	var hi, lo float64
	for _, v := range vals {
		if v.RPM >= splitRPM {
			retVal.HighThetaDeg += v.ThetaRMSEDeg
			retVal.HighOmegaPct += v.OmegaPct
			hi++
			continue
		}
		retVal.LowThetaDeg += v.ThetaRMSEDeg
		retVal.LowOmegaPct += v.OmegaPct
		lo++
	}
	if hi > 0 {
		retVal.HighThetaDeg /= hi
		retVal.HighOmegaPct /= hi
		retVal.Pass = retVal.HighThetaDeg < 15 && retVal.HighOmegaPct < 10
	}
	if lo > 0 {
		retVal.LowThetaDeg /= lo
		retVal.LowOmegaPct /= lo
	}
	return retVal
}

// RampConf describes a dynamic speed ramp.
type RampConf struct {
	Dt          float64
	Duration    float64
	FromRPM     float64
	ToRPM       float64
	Start, Ramp float64 // [s]
	Torque      float64
	SampleEvery int
}

func DefaultRampConf() RampConf {
	return RampConf{
		Dt:          50e-6,
		Duration:    0.08,
		FromRPM:     500,
		ToRPM:       2000,
		Start:       0.01,
		Ramp:        0.05,
		Torque:      10,
		SampleEvery: 20,
	}
}

// RampPoint is one sample of the tracking trace.
type RampPoint struct {
	T           float64
	TrueRPM     float64
	EstRPM      float64
	ThetaErrDeg float64
}

// Ramp tracks a speed ramp from θ = 0 and returns every SampleEvery-th estimate.
func (o *Observer) Ramp(gen Generator, conf RampConf) []RampPoint {
	var retVal []RampPoint
	var w Window
	var theta float64
	steps := int(conf.Duration / conf.Dt)
	every := conf.SampleEvery
	if every < 1 {
		every = 1
	}
	for step := 0; step < steps; step++ {
		t := float64(step) * conf.Dt
		rpm := conf.FromRPM
		switch {
		case t >= conf.Start+conf.Ramp:
			rpm = conf.ToRPM
		case t >= conf.Start:
			rpm += (conf.ToRPM - conf.FromRPM) * (t - conf.Start) / conf.Ramp
		}
		wm := drive.RPMToRadS(rpm)
		if w.Push(gen.Measure(wm, conf.Torque, theta, o.rand)) && step%every == 0 {
			th, om, _ := o.infer(w.Features())
			retVal = append(retVal, RampPoint{
				T:           t,
				TrueRPM:     rpm,
				EstRPM:      drive.RadSToRPM(om),
				ThetaErrDeg: drive.WrapError(th-theta) * 180 / math.Pi,
			})
		}
		theta = drive.WrapAngle(theta + wm*float64(gen.PolePairs)*conf.Dt)
	}
	return retVal
}

// RampRMSE is the rms speed error of a ramp trace in rpm.
func RampRMSE(pts []RampPoint) float64 {
	if len(pts) == 0 {
		return 0
	}
	var sq float64
	for _, p := range pts {
		d := p.EstRPM - p.TrueRPM
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(pts)))
}
