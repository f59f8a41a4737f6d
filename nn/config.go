package nn

// Config configures the shape of a feed-forward network.
type Config struct {
	Sizes []int        // widths, input first
	Acts  []Activation // one per layer, len(Sizes)-1
}

// DefaultConf uses tanh on every hidden layer and a linear output.
func DefaultConf(sizes ...int) Config {
	if len(sizes) < 2 {
		return Config{Sizes: sizes}
	}
	acts := make([]Activation, len(sizes)-1)
	for i := range acts {
		acts[i] = Tanh
	}
	acts[len(acts)-1] = Linear
	return Config{
		Sizes: sizes,
		Acts:  acts,
	}
}

// ThermalConf is the 4→8→4→1 junction temperature predictor.
func ThermalConf() Config { return DefaultConf(4, 8, 4, 1) }

// ObserverConf is the 12→16→8→3 sensorless rotor observer.
func ObserverConf() Config { return DefaultConf(12, 16, 8, 3) }

// AutoencoderConf is the symmetric 12→8→4→8→12 bottleneck.
func AutoencoderConf() Config { return DefaultConf(12, 8, 4, 8, 12) }

func (conf Config) IsValid() bool {
	if len(conf.Sizes) < 2 || len(conf.Acts) != len(conf.Sizes)-1 {
		return false
	}
	for _, s := range conf.Sizes {
		if s < 1 {
			return false
		}
	}
	for _, a := range conf.Acts {
		if !a.isValid() {
			return false
		}
	}
	return true
}

// In is the input width.
func (conf Config) In() int { return conf.Sizes[0] }

// Out is the output width.
func (conf Config) Out() int { return conf.Sizes[len(conf.Sizes)-1] }

// TrainConf configures the SGD trainer.
type TrainConf struct {
	Epochs     int
	BatchSize  int
	LearnRate  float64
	DecayEvery int     // halve the learn rate every DecayEvery epochs. 0 disables decay
	Decay      float64 // multiplier applied at each decay step
	Loss       LossFunc
}

func DefaultTrainConf() TrainConf {
	return TrainConf{
		Epochs:     80,
		BatchSize:  32,
		LearnRate:  0.01,
		DecayEvery: 25,
		Decay:      0.5,
		Loss:       SquaredError,
	}
}

func (conf TrainConf) IsValid() bool {
	return conf.Epochs >= 1 &&
		conf.BatchSize >= 1 &&
		conf.LearnRate > 0 &&
		conf.DecayEvery >= 0 &&
		(conf.DecayEvery == 0 || (conf.Decay > 0 && conf.Decay <= 1))
}

// rateAt returns the learn rate used during epoch (0-indexed).
func (conf TrainConf) rateAt(epoch int) float64 {
	lr := conf.LearnRate
	if conf.DecayEvery == 0 {
		return lr
	}
	for i := 0; i < epoch/conf.DecayEvery; i++ {
		lr *= conf.Decay
	}
	return lr
}
