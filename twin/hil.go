package twin

import "strings"

// Subsystem is a hardware-in-the-loop readiness score out of 100.
type Subsystem struct {
	Name  string
	Score float64
	Notes string
}

// Critical subsystems weigh 1.5 in the readiness average.
func (s Subsystem) Critical() bool {
	for _, k := range []string{"Power", "FOC", "Protection"} {
		if strings.Contains(s.Name, k) {
			return true
		}
	}
	return false
}

var Subsystems = []Subsystem{
	{"Power stage (SiC bridge)", 95, "6x 1200 V 21 mΩ SiC MOSFET, BOM verified"},
	{"Gate drivers", 90, "DESAT and Miller clamp, isolated"},
	{"Current sensing (shunt + amplifier)", 92, "0.5 % accuracy, DC to 400 kHz"},
	{"MCU", 88, "high resolution PWM timer, ADC, CAN-FD"},
	{"FOC + SVPWM algorithm", 97, "IMC tuned PI, all six sectors verified"},
	{"Thermal management", 93, "three node Cauer RC, AI derating trained"},
	{"NN sensorless observer", 85, "low speed needs a hybrid estimator"},
	{"Anomaly detection", 82, "bearing wear needs an accelerometer"},
	{"Protection circuits", 94, "OCP < 2 µs, OVP with TVS, 30 mA ground fault"},
	{"Communication (CAN-FD)", 90, "5 Mbit/s transceiver"},
	{"Cooling system", 91, "pin fin cold plate, Rth 1.0 K/W"},
	{"Connectors and wiring", 93, "HVIL, IP67"},
}

// Readiness is the weighted mean score of subs and the subsystems below 90.
func Readiness(subs []Subsystem) (score float64, gaps []Subsystem) {
	var total, weights float64
	for _, s := range subs {
		w := 1.0
		if s.Critical() {
			w = 1.5
		}
		total += s.Score * w
		weights += w
		if s.Score < 90 {
			gaps = append(gaps, s)
		}
	}
	if weights == 0 {
		return 0, nil
	}
	return total / weights, gaps
}

// HIL grades the readiness of the hardware for closed loop testing.
func (in *Inspector) HIL() {
	score, gaps := Readiness(Subsystems)
	for _, g := range gaps {
		in.logger.WithField("subsystem", g.Name).WithField("score", g.Score).Info(g.Notes)
	}
	in.Record("HIL", "HIL readiness", score, ">= 90", "pts", above(score, 90-1e-9, 80-1e-9))
}
