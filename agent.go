package aiinverter

import (
	"math"

	"github.com/evdrive/aiinverter/thermal"
)

// TjLimit is the junction temperature an agent must stay below to be safe [°C].
const TjLimit = 150.0

// An Agent is a derating policy driving its own copy of the bridge's thermal network.
type Agent struct {
	thermal.Derater
	Net *thermal.Network

	// Statistics
	TjMax     float64
	TorqueSum float64
	Steps     int
	OverTemp  int // steps spent above TjLimit
	Torque    float64

	name   string
	prevTj float64
}

func newAgent(d thermal.Derater, name string) *Agent {
	return &Agent{
		Derater: d,
		Net:     thermal.DefaultNetwork(),
		name:    name,
	}
}

// Step asks the policy for the torque it grants of demand and heats the network with the bridge
// losses of that torque. The policy sees the loss the full demand would cause.
func (a *Agent) Step(demand float64, dev thermal.SiC, kt, dt float64) float64 {
	tj := a.Net.Tj
	obs := thermal.Observation{
		Tj:    tj,
		DTjDt: (tj - a.prevTj) / dt,
		PLoss: dev.Bridge(thermal.Irms(demand, kt), tj),
		Tamb:  a.Net.Tamb,
	}
	a.Torque = demand * a.Limit(obs)
	a.prevTj = tj
	tj = a.Net.Update(dev.Bridge(thermal.Irms(a.Torque, kt), tj), dt)

	a.TjMax = math.Max(a.TjMax, tj)
	a.TorqueSum += a.Torque
	a.Steps++
	if tj > TjLimit {
		a.OverTemp++
	}
	return a.Torque
}

// Outcome is an agent's tally over one duel.
type Outcome struct {
	Policy     string
	TjMax      float64
	MeanTorque float64
	OverTemp   int
}

func (o Outcome) Safe() bool { return o.TjMax <= TjLimit }

func (a *Agent) outcome() Outcome {
	retVal := Outcome{Policy: a.Name(), TjMax: a.TjMax, OverTemp: a.OverTemp}
	if a.Steps > 0 {
		retVal.MeanTorque = a.TorqueSum / float64(a.Steps)
	}
	return retVal
}

func (a *Agent) frame() AgentFrame {
	return AgentFrame{Policy: a.Name(), Tj: a.Net.Tj, Torque: a.Torque}
}

func (a *Agent) useDummy() { a.Derater = dummyDerater{} }

func (a *Agent) resetStats(tamb float64) {
	a.Net.Reset(tamb)
	a.TjMax = tamb
	a.TorqueSum = 0
	a.Steps = 0
	a.OverTemp = 0
	a.Torque = 0
	a.prevTj = tamb
}
