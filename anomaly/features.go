// Package anomaly detects drive faults with an autoencoder trained on healthy operation and
// extrapolates the remaining useful life from the trend of its anomaly score.
package anomaly

import (
	"math"
	"math/rand"

	"github.com/evdrive/aiinverter/drive"
)

// Feature indices of a sample.
const (
	Id = iota
	Iq
	IAlpha
	IBeta
	Speed
	Torque
	Tj
	Vdc
	IdPrev
	IqPrev
	IAlphaPrev
	IBetaPrev

	NumFeatures
)

// Features generates healthy operating samples of a PMSM under id = 0 control. The previous-step
// channels are taken Dt earlier on the same operating point.
type Features struct {
	drive.Params
	Dt float64
}

func NewFeatures(p drive.Params) Features { return Features{Params: p, Dt: 50e-6} }

// Generate draws n samples at a random angle for every speed × torque pair.
func (f Features) Generate(speedsRPM, torques []float64, n int, r *rand.Rand) [][]float64 {
	var speedMax, torqueMax float64
	for _, rpm := range speedsRPM {
		speedMax = math.Max(speedMax, drive.RPMToRadS(rpm))
	}
	for _, tq := range torques {
		torqueMax = math.Max(torqueMax, tq)
	}
	speedMax = math.Max(speedMax, 1e-6)
	torqueMax = math.Max(torqueMax, 1e-6)

	const noise, normNoise = 0.005, 0.002
	g := func(sigma float64) float64 { return r.NormFloat64() * sigma }

	retVal := make([][]float64, 0, len(speedsRPM)*len(torques)*n)
	for _, rpm := range speedsRPM {
		wm := drive.RPMToRadS(rpm)
		we := wm * float64(f.PolePairs)
		for _, tq := range torques {
			iq := tq / f.Kt()
			var id float64
			for k := 0; k < n; k++ {
				theta := r.Float64() * 2 * math.Pi
				ia, ib := drive.InvPark(id, iq, theta)
				iaPrev, ibPrev := drive.InvPark(id, iq, theta-we*f.Dt)
				tj := 25 + 40*tq/torqueMax
				vdc := f.Vdc + g(2)

				retVal = append(retVal, []float64{
					id + g(noise),
					iq + g(noise),
					ia + g(noise),
					ib + g(noise),
					wm/speedMax + g(normNoise),
					tq/torqueMax + g(normNoise),
					tj/175 + g(normNoise),
					vdc/450 + g(normNoise),
					id + g(noise),
					iq + g(noise),
					iaPrev + g(noise),
					ibPrev + g(noise),
				})
			}
		}
	}
	return retVal
}
