// Package observer estimates rotor angle and speed from stationary-frame voltages and currents
// with a small neural network, replacing the shaft encoder.
package observer

import (
	"math"
	"math/rand"

	"github.com/evdrive/aiinverter/drive"
)

// Signals is one measurement: vα, vβ, iα, iβ.
type Signals [4]float64

// Generator synthesises steady-state αβ signals of a PMSM running id = 0 control.
type Generator struct {
	drive.Params
}

func NewGenerator(p drive.Params) Generator { return Generator{Params: p} }

// AlphaBeta returns the noiseless signals at mechanical speed wm, torque and electrical angle theta.
func (g Generator) AlphaBeta(wm, torque, theta float64) Signals {
	we := wm * float64(g.PolePairs)
	iq := torque / g.Kt()
	var id float64
	vd := g.Rs*id - we*g.Lq*iq
	vq := g.Rs*iq + we*g.Ld*id + we*g.Lambda

	va, vb := drive.InvPark(vd, vq, theta)
	ia, ib := drive.InvPark(id, iq, theta)
	return Signals{va, vb, ia, ib}
}

// Measure is AlphaBeta with proportional plus floor gaussian sensor noise.
func (g Generator) Measure(wm, torque, theta float64, r *rand.Rand) Signals {
	s := g.AlphaBeta(wm, torque, theta)
	for i := range s {
		floor := 0.01
		if i >= 2 {
			floor = 0.005
		}
		s[i] += r.NormFloat64() * (math.Abs(s[i])*0.02 + floor)
	}
	return s
}

// WindowLen is the number of consecutive measurements the observer sees.
const WindowLen = 3

// Window is a sliding buffer of the most recent measurements.
type Window struct {
	buf []Signals
}

// Push appends s, dropping the oldest measurement once full. It reports whether the window is full.
func (w *Window) Push(s Signals) bool {
	if len(w.buf) == WindowLen {
		copy(w.buf, w.buf[1:])
		w.buf = w.buf[:WindowLen-1]
	}
	w.buf = append(w.buf, s)
	return w.Full()
}

func (w *Window) Full() bool { return len(w.buf) == WindowLen }

// Features flattens the window, oldest first.
func (w *Window) Features() []float64 {
	retVal := make([]float64, 0, 4*WindowLen)
	for _, s := range w.buf {
		retVal = append(retVal, s[:]...)
	}
	return retVal
}

func (w *Window) Reset() { w.buf = w.buf[:0] }
