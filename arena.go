package aiinverter

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/evdrive/aiinverter/drive"
	"github.com/evdrive/aiinverter/thermal"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ArenaConf describes the duel: a torque ramp at a fixed speed, stepped at the thermal rate.
type ArenaConf struct {
	Dt       float64 // [s]
	Duration float64 // [s]

	From, To  float64 // torque ramp [N·m]
	RampStart float64 // [s]
	Ramp      float64 // [s]
	RPM       float64

	Every int // steps between History ticks and encoded frames
}

func DefaultArenaConf() ArenaConf {
	return ArenaConf{
		Dt:        500e-6,
		Duration:  0.15,
		From:      2,
		To:        15,
		RampStart: 0.01,
		Ramp:      0.08,
		RPM:       2000,
		Every:     10,
	}
}

func (conf ArenaConf) IsValid() bool {
	return conf.Dt > 0 && conf.Duration > conf.Dt && conf.Ramp > 0 && conf.RampStart >= 0 && conf.Every > 0
}

func (conf ArenaConf) steps() int { return int(math.Round(conf.Duration / conf.Dt)) }

// Tick is one sampled step of a duel.
type Tick struct {
	T, Demand        float64
	TjA, TjB         float64
	TorqueA, TorqueB float64
}

// Duel is the result of both agents meeting the same torque demand at one ambient.
type Duel struct {
	Tamb float64
	A, B Outcome
}

// Arena runs a conventional agent A against an AI agent B.
type Arena struct {
	A, B *Agent

	// state
	conf    ArenaConf
	dev     thermal.SiC
	kt      float64
	tamb    float64
	demand  float64
	buf     bytes.Buffer
	logger  *logrus.Logger
	History []Tick

	name  string
	round int // duels played
	step  int
}

// MakeArena makes an arena for the machine p. a and b are the derating policies of the two agents.
func MakeArena(a, b thermal.Derater, p drive.Params, conf ArenaConf, name string) Arena {
	if name == "" {
		name = "UNKNOWN DRIVE"
	}
	return Arena{
		A:    newAgent(a, "A"),
		B:    newAgent(b, "B"),
		conf: conf,
		dev:  thermal.DefaultSiC(),
		kt:   p.Kt(),
		name: name,
	}
}

func NewArena(a, b thermal.Derater, p drive.Params, conf ArenaConf, name string) *Arena {
	ar := MakeArena(a, b, p, conf, name)
	ar.logger = bufferLogger(&ar.buf)
	return &ar
}

// bufferLogger logs into w without timestamps so that the arena log reads like a transcript.
func bufferLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
	return l
}

// Play runs both agents through the torque ramp at ambient tamb. If enc is not nil, a frame is
// encoded every conf.Every steps and at the end.
func (a *Arena) Play(tamb float64, enc OutputEncoder) (Duel, error) {
	a.A.resetStats(tamb)
	a.B.resetStats(tamb)
	a.tamb = tamb
	a.History = a.History[:0]
	a.logger.WithFields(logrus.Fields{
		"round": a.round,
		"tamb":  tamb,
		"A":     a.A.Name(),
		"B":     a.B.Name(),
	}).Info("playing")

	c := a.conf
	torque := thermal.Ramp(c.From, c.To, c.RampStart, c.Ramp)
	n := c.steps()
	for a.step = 0; a.step < n; a.step++ {
		t := float64(a.step) * c.Dt
		a.demand = torque(t)
		a.A.Step(a.demand, a.dev, a.kt, c.Dt)
		a.B.Step(a.demand, a.dev, a.kt, c.Dt)

		last := a.step == n-1
		if a.step%c.Every != 0 && !last {
			continue
		}
		a.History = append(a.History, Tick{
			T:       t,
			Demand:  a.demand,
			TjA:     a.A.Net.Tj,
			TjB:     a.B.Net.Tj,
			TorqueA: a.A.Torque,
			TorqueB: a.B.Torque,
		})
		if enc != nil {
			if err := enc.Encode(a); err != nil {
				return Duel{}, errors.Wrapf(err, "encoding step %d of round %d", a.step, a.round)
			}
		}
	}
	a.step = n

	retVal := Duel{Tamb: tamb, A: a.A.outcome(), B: a.B.outcome()}
	for _, o := range []Outcome{retVal.A, retVal.B} {
		a.logger.WithFields(logrus.Fields{
			"policy":      o.Policy,
			"tj_max":      fmt.Sprintf("%.1f", o.TjMax),
			"mean_torque": fmt.Sprintf("%.2f", o.MeanTorque),
			"safe":        o.Safe(),
		}).Info("duel over")
	}
	a.round++
	return retVal, nil
}

func (a *Arena) Name() string { return a.name }
func (a *Arena) Round() int   { return a.round }
func (a *Arena) Step() int    { return a.step }

func (a *Arena) Frame() Frame {
	return Frame{
		T:      float64(a.step) * a.conf.Dt,
		Tamb:   a.tamb,
		Demand: a.demand,
		A:      a.A.frame(),
		B:      a.B.frame(),
		Done:   a.step >= a.conf.steps()-1,
	}
}

// Log writes the arena transcript followed by the state of both agents.
func (a *Arena) Log(w io.Writer) {
	fmt.Fprint(w, a.buf.String())
	fmt.Fprintf(w, "\nA (%s): %v\n", a.A.Name(), a.A.Net)
	fmt.Fprintf(w, "B (%s): %v\n", a.B.Name(), a.B.Net)
}
