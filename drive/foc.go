package drive

import (
	"fmt"
	"math"
)

// FOCConf sets the loop bandwidths and output limits of the field oriented controller.
type FOCConf struct {
	CurrentBW float64 // current loop bandwidth [rad/s]
	SpeedBW   float64 // speed loop bandwidth [rad/s]
	IqLimit   float64 // |iq_ref| limit [A]
	VLimit    float64 // |vd|, |vq| limit of the current PIs [V]
}

func DefaultFOCConf() FOCConf {
	return FOCConf{
		CurrentBW: 2000,
		SpeedBW:   50,
		IqLimit:   15,
		VLimit:    200,
	}
}

func (conf FOCConf) IsValid() bool {
	return conf.CurrentBW > 0 && conf.SpeedBW > 0 && conf.IqLimit > 0 && conf.VLimit > 0
}

// FOC is a cascaded speed/current controller with dq decoupling feedforward.
// Gains follow internal model control: the current loop cancels the RL pole, the speed loop the
// mechanical pole.
type FOC struct {
	Params
	Conf FOCConf

	Speed, D, Q *PI
	IdRef       float64 // zero for MTPA on a surface machine
}

// NewFOC creates a tuned controller. It panics on invalid parameters.
func NewFOC(p Params, conf FOCConf) *FOC {
	if !p.IsValid() {
		panic(fmt.Sprintf("invalid motor parameters %+v", p))
	}
	if !conf.IsValid() {
		panic(fmt.Sprintf("invalid FOC config %+v", conf))
	}
	kpI := p.Ld * conf.CurrentBW
	kiI := p.Rs * conf.CurrentBW

	kt := p.Kt()
	kpW := p.J * conf.SpeedBW / kt
	kiW := math.Max(p.B*conf.SpeedBW/kt, 10*kpW)

	return &FOC{
		Params: p,
		Conf:   conf,
		Speed:  NewPI(kpW, kiW, -conf.IqLimit, conf.IqLimit),
		D:      NewPI(kpI, kiI, -conf.VLimit, conf.VLimit),
		Q:      NewPI(kpI, kiI, -conf.VLimit, conf.VLimit),
	}
}

// Compute runs one control period and returns the dq voltage command.
func (f *FOC) Compute(speedRef, speed, id, iq, we, dt float64) (vd, vq float64) {
	iqRef := f.Speed.Compute(speedRef-speed, dt)
	return f.CurrentStep(f.IdRef, iqRef, id, iq, we, dt)
}

// CurrentStep runs the current loops alone against explicit references.
func (f *FOC) CurrentStep(idRef, iqRef, id, iq, we, dt float64) (vd, vq float64) {
	vdPI := f.D.Compute(idRef-id, dt)
	vqPI := f.Q.Compute(iqRef-iq, dt)
	vd = vdPI - we*f.Lq*iq
	vq = vqPI + we*(f.Ld*id+f.Lambda)
	return
}

func (f *FOC) Reset() {
	f.Speed.Reset()
	f.D.Reset()
	f.Q.Reset()
}

// LimitVoltage scales (vd, vq) jointly onto the circle of radius vdc/√3 when it lies outside.
func LimitVoltage(vd, vq, vdc float64) (float64, float64) {
	vmax := vdc / sqrt3
	mag := math.Hypot(vd, vq)
	if mag > vmax {
		s := vmax / mag
		return vd * s, vq * s
	}
	return vd, vq
}
