package drive

import (
	"math"

	"github.com/pkg/errors"
)

// SimConf configures a closed-loop speed step with a load step.
type SimConf struct {
	Dt          float64 // control period [s]
	Duration    float64 // [s]
	SpeedRefRPM float64
	LoadTime    float64 // [s]
	LoadTorque  float64 // [N·m]
	LogPoints   int     // approximate number of logged samples
	HiResFrom   float64 // phase A is sampled every step from this time on [s]

	FOC FOCConf
}

func DefaultSimConf() SimConf {
	return SimConf{
		Dt:          10e-6,
		Duration:    0.5,
		SpeedRefRPM: 1000,
		LoadTime:    0.2,
		LoadTorque:  5,
		LogPoints:   500,
		HiResFrom:   0.4,
		FOC:         DefaultFOCConf(),
	}
}

func (conf SimConf) IsValid() bool {
	return conf.Dt > 0 &&
		conf.Duration > conf.Dt &&
		conf.SpeedRefRPM > 0 &&
		conf.LoadTime >= 0 && conf.LoadTime < conf.Duration &&
		conf.LogPoints > 0 &&
		conf.FOC.IsValid()
}

// Sample is one logged point of a simulation.
type Sample struct {
	T      float64
	RPM    float64
	Te     float64
	Id, Iq float64
	Duty   Duty
}

// SimResult holds the logged trace and the performance figures derived from it.
// Times are in seconds. Figures that could not be determined are NaN.
type SimResult struct {
	Trace   []Sample
	IaHiRes []float64

	PreLoadSpeedErr  float64 // |mean rpm - ref| over 0.15 s .. load
	PreLoadId        float64
	PostLoadSpeedErr float64 // over the last 0.1 s
	PostLoadId       float64
	PostLoadIq       float64

	RiseTime    float64 // 10 % → 90 %
	SettleTime  float64 // last exit from the ±2 % band before the load step
	Overshoot   float64 // %
	SpeedDip    float64 // rpm
	RecoverTime float64 // after the load step

	THD         float64 // %, phase A over the last two electrical periods
	IaPeak      float64
	IaRMS       float64
	VoltageUtil float64 // % of Vdc/√3

	// Debug is the control-loop trace. It is only populated in debug builds.
	Debug string
}

// Simulate runs FOC → voltage limit → inverse Park → SVPWM → plant from standstill.
// The plant is driven with the limited dq command directly; the duties are recorded as the gate
// output an inverter would apply.
func Simulate(conf SimConf, p Params) (*SimResult, error) {
	if !conf.IsValid() {
		return nil, errors.Errorf("invalid simulation config %+v", conf)
	}
	if !p.IsValid() {
		return nil, errors.Errorf("invalid motor parameters %+v", p)
	}
	motor := NewMotor(p)
	foc := NewFOC(p, conf.FOC)
	lj := makeLumberJack()

	steps := int(conf.Duration / conf.Dt)
	every := steps / conf.LogPoints
	if every < 1 {
		every = 1
	}
	ref := RPMToRadS(conf.SpeedRefRPM)

	retVal := &SimResult{
		Trace: make([]Sample, 0, steps/every+1),
	}
	for step := 0; step < steps; step++ {
		t := float64(step) * conf.Dt
		var load float64
		if t >= conf.LoadTime {
			load = conf.LoadTorque
		}

		vd, vq := foc.Compute(ref, motor.OmegaM, motor.Id, motor.Iq, motor.OmegaE(), conf.Dt)
		vd, vq = LimitVoltage(vd, vq, p.Vdc)
		alpha, beta := InvPark(vd, vq, motor.ThetaE)
		duty := SVPWM(alpha, beta, p.Vdc)
		motor.Update(vd, vq, load, conf.Dt)

		if step%every == 0 {
			retVal.Trace = append(retVal.Trace, Sample{
				T:    t,
				RPM:  motor.RPM(),
				Te:   motor.Te,
				Id:   motor.Id,
				Iq:   motor.Iq,
				Duty: duty,
			})
			lj.log("t=%.5f rpm=%.2f vd=%.3f vq=%.3f id=%.3f iq=%.3f sector=%d", t, motor.RPM(), vd, vq, motor.Id, motor.Iq, duty.Sector)
		}
		if t >= conf.HiResFrom {
			ia, _, _ := motor.PhaseCurrents()
			retVal.IaHiRes = append(retVal.IaHiRes, ia)
		}
	}
	retVal.analyse(conf, p)
	retVal.Debug = lj.Log()
	return retVal, nil
}

func (r *SimResult) analyse(conf SimConf, p Params) {
	ref := conf.SpeedRefRPM
	band := 0.02 * ref
	nan := math.NaN()
	r.RiseTime, r.SettleTime, r.RecoverTime = nan, nan, nan

	var preN, postN float64
	var preSpeed, preId, postSpeed, postId, postIq float64
	preFrom := conf.LoadTime - 0.05
	postFrom := conf.Duration - 0.1
	t10, t90 := nan, nan
	peak := math.Inf(-1)
	loadIdx := -1
	for i, s := range r.Trace {
		if s.T >= preFrom && s.T < conf.LoadTime {
			preSpeed += s.RPM
			preId += s.Id
			preN++
		}
		if s.T >= postFrom {
			postSpeed += s.RPM
			postId += s.Id
			postIq += s.Iq
			postN++
		}
		if math.IsNaN(t10) && s.RPM >= 0.1*ref {
			t10 = s.T
		}
		if math.IsNaN(t90) && s.RPM >= 0.9*ref {
			t90 = s.T
		}
		if s.T < conf.LoadTime {
			peak = math.Max(peak, s.RPM)
		} else if loadIdx < 0 {
			loadIdx = i
		}
	}
	r.PreLoadSpeedErr, r.PreLoadId = nan, nan
	if preN > 0 {
		r.PreLoadSpeedErr = math.Abs(preSpeed/preN - ref)
		r.PreLoadId = preId / preN
	}
	r.PostLoadSpeedErr, r.PostLoadId, r.PostLoadIq = nan, nan, nan
	if postN > 0 {
		r.PostLoadSpeedErr = math.Abs(postSpeed/postN - ref)
		r.PostLoadId = postId / postN
		r.PostLoadIq = postIq / postN
	}
	if !math.IsNaN(t10) && !math.IsNaN(t90) {
		r.RiseTime = t90 - t10
	}

	for i := len(r.Trace) - 1; i >= 0; i-- {
		s := r.Trace[i]
		if s.T < conf.LoadTime && math.Abs(s.RPM-ref) > band {
			if i+1 < len(r.Trace) {
				r.SettleTime = r.Trace[i+1].T
			}
			break
		}
	}
	r.Overshoot = math.Max(0, (peak-ref)/ref*100)

	if loadIdx >= 0 {
		low := math.Inf(1)
		for _, s := range r.Trace[loadIdx:] {
			low = math.Min(low, s.RPM)
		}
		r.SpeedDip = ref - low
	recovery:
		for i := loadIdx; i < len(r.Trace); i++ {
			for j := i; j < i+10 && j < len(r.Trace); j++ {
				if math.Abs(r.Trace[j].RPM-ref) > band {
					continue recovery
				}
			}
			r.RecoverTime = r.Trace[i].T - conf.LoadTime
			break
		}
	}

	fe := RPMToRadS(ref) * float64(p.PolePairs) / twoPi
	fs := 1 / conf.Dt
	if n := len(r.IaHiRes); n > 100 {
		use := int(2 / fe * fs)
		if use > n {
			use = n
		}
		if use > 50 {
			r.THD = THD(r.IaHiRes[n-use:], fe, fs)
		}
	}
	if n := len(r.IaHiRes); n > 0 {
		tail := r.IaHiRes
		if n > 1000 {
			tail = tail[n-1000:]
		}
		var sq float64
		for _, ia := range tail {
			r.IaPeak = math.Max(r.IaPeak, math.Abs(ia))
			sq += ia * ia
		}
		r.IaRMS = math.Sqrt(sq / float64(len(tail)))
	}
	if postN > 0 {
		we := RPMToRadS(ref) * float64(p.PolePairs)
		r.VoltageUtil = math.Abs(p.Rs*r.PostLoadIq+we*p.Lambda) / p.VMax() * 100
	}
}
