package anomaly

import (
	"math"
	"math/rand"
)

// SweepConf configures a severity sweep.
type SweepConf struct {
	Steps       int // severities 0, 1/Steps, ... 1
	PerSeverity int
	OmegaNorm   float64
}

func DefaultSweepConf() SweepConf {
	return SweepConf{Steps: 20, PerSeverity: 30, OmegaNorm: 0.5}
}

// SweepPoint is the score distribution at one severity.
type SweepPoint struct {
	Severity  float64
	MeanScore float64
	MaxScore  float64
	Detected  bool // mean score above threshold
}

// Sweep injects f into random healthy samples at increasing severity. detectedAt is the first
// severity whose mean score crosses the threshold, or -1.
func Sweep(d *Detector, normal [][]float64, f Fault, conf SweepConf, r *rand.Rand) (pts []SweepPoint, detectedAt float64) {
	detectedAt = -1
	for k := 0; k <= conf.Steps; k++ {
		sev := float64(k) / float64(conf.Steps)
		p := SweepPoint{Severity: sev, MaxScore: math.Inf(-1)}
		for i := 0; i < conf.PerSeverity; i++ {
			base := normal[r.Intn(len(normal))]
			s := d.Score(Inject(base, f, sev, conf.OmegaNorm, r))
			p.MeanScore += s
			p.MaxScore = math.Max(p.MaxScore, s)
		}
		p.MeanScore /= float64(conf.PerSeverity)
		p.Detected = p.MeanScore > d.Threshold
		if p.Detected && detectedAt < 0 {
			detectedAt = sev
		}
		pts = append(pts, p)
	}
	return pts, detectedAt
}

// FalsePositiveRate draws n samples from normal, adds gaussian noise of the given sigma to every
// feature, and returns the percentage flagged as anomalous.
func FalsePositiveRate(d *Detector, normal [][]float64, n int, noise float64, r *rand.Rand) float64 {
	if n <= 0 || len(normal) == 0 {
		return 0
	}
	var fp int
	x := make([]float64, NumFeatures)
	for i := 0; i < n; i++ {
		copy(x, normal[r.Intn(len(normal))])
		if noise > 0 {
			for j := range x {
				x[j] += r.NormFloat64() * noise
			}
		}
		if d.IsAnomaly(x) {
			fp++
		}
	}
	return float64(fp) / float64(n) * 100
}
