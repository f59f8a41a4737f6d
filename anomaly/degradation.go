package anomaly

import (
	"math"
	"math/rand"
)

// DegradationConf describes a slow SiC aging run.
type DegradationConf struct {
	Steps       int
	FailStep    int // severity reaches MaxSeverity here
	MaxSeverity float64
	FailFactor  float64 // failure score as a multiple of the detection threshold
	PerStep     int     // scores averaged per step
}

func DefaultDegradationConf() DegradationConf {
	return DegradationConf{
		Steps:       100,
		FailStep:    80,
		MaxSeverity: 0.3,
		FailFactor:  5,
		PerStep:     10,
	}
}

// DegradationPoint is one step of the aging run. RUL is -1 when no estimate is available.
type DegradationPoint struct {
	Step      int
	Severity  float64
	Score     float64
	RUL       float64
	ActualRUL float64
}

// Degradation ages the SiC bridge linearly and tracks the RUL estimate at every step. midErr is the
// percentage error of the estimate halfway to failure, or NaN when none was available there.
func Degradation(d *Detector, normal [][]float64, conf DegradationConf, r *rand.Rand) (pts []DegradationPoint, midErr float64) {
	rul := NewRUL(d.Threshold * conf.FailFactor)
	for step := 0; step < conf.Steps; step++ {
		sev := math.Min(float64(step)/float64(conf.FailStep), 1) * conf.MaxSeverity
		var score float64
		for i := 0; i < conf.PerStep; i++ {
			score += d.Score(Inject(normal[r.Intn(len(normal))], SiCDegradation, sev, 0, r))
		}
		score /= float64(conf.PerStep)
		rul.Add(float64(step), score)
		pts = append(pts, DegradationPoint{
			Step:      step,
			Severity:  sev,
			Score:     score,
			RUL:       rul.Estimate(),
			ActualRUL: math.Max(float64(conf.FailStep-step), 0),
		})
	}
	midErr = math.NaN()
	if mid := conf.FailStep / 2; mid < len(pts) && pts[mid].RUL > 0 {
		actual := float64(conf.FailStep - mid)
		midErr = math.Abs(pts[mid].RUL-actual) / actual * 100
	}
	return pts, midErr
}
