package aiinverter

import (
	"fmt"
	"strings"

	"github.com/evdrive/aiinverter/anomaly"
	"github.com/evdrive/aiinverter/drive"
	"github.com/evdrive/aiinverter/nn"
	"github.com/evdrive/aiinverter/observer"
	"github.com/evdrive/aiinverter/thermal"
)

type Config struct {
	Name     string
	Params   drive.Params
	Thermal  ThermalConf
	Observer observer.Conf
	Anomaly  AnomalyConf
	Arena    ArenaConf
	Seed     int64

	// extensions
	OutputEncoder OutputEncoder
}

// ThermalConf configures the data generation and training of the thermal predictor.
type ThermalConf struct {
	Gen   thermal.GenConf
	Train nn.TrainConf
}

// AnomalyConf configures the healthy operating grid and the autoencoder.
type AnomalyConf struct {
	Speeds   []float64 // [rpm]
	Torques  []float64 // [N·m]
	PerPoint int       // samples per speed × torque pair
	Detector anomaly.Conf
}

// DefaultConfig returns the configuration of the reference 400 V drive.
func DefaultConfig() Config {
	return Config{
		Name:   "SiC traction inverter",
		Params: drive.DefaultParams(),
		Thermal: ThermalConf{
			Gen:   thermal.DefaultGenConf(),
			Train: thermal.DefaultPredictorTrainConf(),
		},
		Observer: observer.DefaultConf(),
		Anomaly: AnomalyConf{
			Speeds:   []float64{500, 1000, 1500, 2000, 2500, 3000},
			Torques:  []float64{2, 5, 8, 12, 15},
			PerPoint: 20,
			Detector: anomaly.DefaultConf(),
		},
		Arena: DefaultArenaConf(),
		Seed:  42,
	}
}

func (conf Config) IsValid() bool {
	return conf.Params.IsValid() &&
		conf.Thermal.Gen.IsValid() &&
		conf.Thermal.Train.IsValid() &&
		conf.Observer.IsValid() &&
		len(conf.Anomaly.Speeds) > 0 && len(conf.Anomaly.Torques) > 0 && conf.Anomaly.PerPoint > 0 &&
		conf.Anomaly.Detector.IsValid() &&
		conf.Arena.IsValid()
}

// MetaState is the state of an arena as seen by an OutputEncoder.
type MetaState interface {
	Name() string
	Round() int
	Step() int
	Frame() Frame
}

// OutputEncoder encodes the entire meta state as whatever.
//
// An example OutputEncoder is the GIF encoder in encoding/gif.
type OutputEncoder interface {
	Encode(ms MetaState) error
	Flush() error
}

// AgentFrame is what one agent is doing at a step.
type AgentFrame struct {
	Policy string
	Tj     float64 // [°C]
	Torque float64 // delivered [N·m]
}

// Frame is a snapshot of a derating duel.
type Frame struct {
	T      float64 // [s]
	Tamb   float64
	Demand float64 // commanded torque [N·m]
	A, B   AgentFrame
	Done   bool
}

func (f Frame) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "t %6.1f ms  ambient %5.1f C\n", f.T*1e3, f.Tamb)
	fmt.Fprintf(&buf, "demand %5.2f Nm\n", f.Demand)
	for _, a := range []AgentFrame{f.A, f.B} {
		fmt.Fprintf(&buf, "%-12s Tj %6.1f C  %5.2f Nm  %s\n", a.Policy, a.Tj, a.Torque, bar(a.Tj, 150, 20))
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// bar draws v as a proportion of max in width cells.
func bar(v, max float64, width int) string {
	n := int(v / max * float64(width))
	switch {
	case n < 0:
		n = 0
	case n > width:
		n = width
	}
	return "[" + strings.Repeat("#", n) + strings.Repeat(".", width-n) + "]"
}
