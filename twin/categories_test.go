package twin

import (
	"math"
	"math/rand"
	"testing"

	"github.com/evdrive/aiinverter/anomaly"
	"github.com/evdrive/aiinverter/drive"
	"github.com/evdrive/aiinverter/nn"
	"github.com/evdrive/aiinverter/observer"
	"github.com/evdrive/aiinverter/thermal"
	"github.com/stretchr/testify/assert"
)

func TestEOL(t *testing.T) {
	in := newInspector(1)
	in.EOL()
	assert.Equal(t, 8, in.CategoryCounts("EOL").Total)
	svpwm := find(t, in, "SVPWM smooth")
	assert.Equal(t, 0.0, svpwm.Measured)
	assert.Equal(t, Pass, svpwm.Status)

	// the same seed gives the same tolerances
	again := newInspector(1)
	again.EOL()
	assert.Equal(t, in.Results(), again.Results())
}

func TestParamID(t *testing.T) {
	in := newInspector(1)
	in.ParamID()
	assert.Equal(t, 5, in.CategoryCounts("ParamID").Total)
	for _, name := range []string{"Rs estimation", "Ld estimation", "lambda_pm ID", "J estimation"} {
		r := find(t, in, name)
		if r.Status != Pass {
			t.Errorf("%s: %v%% error graded %v", name, r.Measured, r.Status)
		}
	}
	assert.InDelta(t, 0, find(t, in, "Rs estimation").Measured, 0.1)
}

func TestControl(t *testing.T) {
	in := newInspector(1)
	in.Control()
	assert.Equal(t, 5, in.CategoryCounts("FOC").Total)
	for _, name := range []string{"current loop BW", "decoupling", "torque linearity"} {
		r := find(t, in, name)
		if r.Status != Pass {
			t.Errorf("%s: %v graded %v", name, r.Measured, r.Status)
		}
	}
	assert.True(t, find(t, in, "speed loop BW").Measured > 0)
	assert.True(t, find(t, in, "field weakening").Measured > 3000)
}

func TestZthCurve(t *testing.T) {
	in := newInspector(1)
	ts, zth := in.ZthCurve()
	assert.Len(t, zth, 100)
	assert.InDelta(t, 0.2, ts[0], 1e-9)
	for i := 1; i < len(zth); i++ {
		if zth[i] < zth[i-1] {
			t.Fatalf("Zth falls at %v s", ts[i])
		}
	}
	assert.InDelta(t, 1.0, zth[len(zth)-1], 0.01)
}

func TestThermal(t *testing.T) {
	in := newInspector(1)
	in.Thermal()
	assert.Equal(t, 4, in.CategoryCounts("Thermal").Total)
	assert.Equal(t, Pass, find(t, in, "Zth(t) accuracy").Status)
	assert.Equal(t, Pass, find(t, in, "thermal cycling").Status)
	assert.Equal(t, Pass, find(t, in, "rated endurance").Status)

	// 50 A per switch at 85 °C is beyond the cooling
	sweep := find(t, in, "ambient sweep")
	assert.Equal(t, Fail, sweep.Status)
	_, _, p := thermal.DefaultSiC().Losses(50, 135)
	assert.InDelta(t, 85+p, sweep.Measured, 1e-9)
}

func TestEMC(t *testing.T) {
	if testing.Short() {
		t.Skip("simulates seven operating points")
	}
	in := newInspector(1)
	in.EMC()
	assert.Equal(t, 4, in.CategoryCounts("EMC").Total)
	assert.InDelta(t, 16, find(t, in, "dV/dt stress").Measured, 1e-9)
	ripple := find(t, in, "DC bus ripple")
	assert.InDelta(t, 1.4357, ripple.Measured, 1e-3)
	assert.Equal(t, Pass, ripple.Status)
	assert.False(t, math.IsNaN(find(t, in, "THD max").Measured))
}

func TestPhaseCurrent(t *testing.T) {
	in := newInspector(1)
	ia, fe := in.PhaseCurrent(OperatingPoint{1000, 2})
	assert.Len(t, ia, 3000)
	// four pole pairs at 1000 rpm
	assert.InDelta(t, 1000.0/60*4, fe, 3)
}

func TestSafety(t *testing.T) {
	in := newInspector(1)
	in.Safety()
	assert.Equal(t, 6, in.CategoryCounts("Safety").Total)
	for _, r := range in.Results() {
		if r.Status != Pass {
			t.Errorf("%s: %s graded %v", r.Name, r.Value(), r.Status)
		}
	}
	assert.Equal(t, "4/4", find(t, in, "sensor fault").Text)
	// λ·ωe / |Zs| / √2 at 3000 rpm
	assert.InDelta(t, 141.4, find(t, in, "ASC safe-state").Measured, 0.5)
	assert.True(t, find(t, in, "OTP response").Measured < 100, "locked rotor should trip within 100 ms")
}

func TestOpenPhase(t *testing.T) {
	assert := assert.New(t)
	in := newInspector(1)
	p := in.Params
	m := drive.NewMotor(p)
	m.OmegaM = drive.RPMToRadS(1000)
	f := drive.NewFOC(p, in.FOC)
	in.loop(m, f, hold(m.OmegaM), 5, 5000, nil)

	ia, ib, ic := in.openPhase(m, f, 5, 3000)
	assert.Len(ia, 3000)
	// phase A carries only sensor noise and B returns through C
	var peakA, peakB float64
	for i := range ia {
		peakA = math.Max(peakA, math.Abs(ia[i]))
		peakB = math.Max(peakB, math.Abs(ib[i]))
		if d := ib[i] + ic[i]; math.Abs(d) > 1 {
			t.Fatalf("sample %d: ib + ic = %v", i, d)
		}
	}
	assert.True(peakA < 1, "phase A peak %v", peakA)
	assert.True(peakB > 2, "phase B peak %v", peakB)
	assert.True(imbalance(ia, ib, ic) > Imbalance)

	// a balanced set over whole cycles
	n := 360
	a, b, c := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := range a {
		a[i], b[i], c[i] = drive.InvClarke(drive.InvPark(0, 10, float64(i)*2*math.Pi/float64(n)))
	}
	assert.InDelta(0, imbalance(a, b, c), 1)
	assert.Equal(0.0, imbalance(nil, nil, nil))
}

func TestSurge(t *testing.T) {
	assert := assert.New(t)
	in := newInspector(1)
	bare := in.surge(false)
	assert.True(bare.Tripped, "braking should push the DC link past OVP, peak %v", bare.Peak)
	assert.False(bare.Fired)
	assert.True(bare.Peak >= OVPTrip)

	clamped := in.surge(true)
	assert.True(clamped.Fired)
	assert.False(clamped.Tripped)
	assert.True(clamped.Peak > in.Params.Vdc, "braking should raise the DC link, peak %v", clamped.Peak)
	assert.True(clamped.Peak < OVPLimit, "peak %v", clamped.Peak)
	in.Safety()
	assert.InDelta(clamped.Peak, find(t, in, "OVP response").Measured, 1e-9)
}

func TestIdentifyLambda(t *testing.T) {
	in := newInspector(1)
	est := in.identifyLambda(100, 0.75)
	assert.InDelta(t, in.Params.Lambda, est, 0.001)

	// a machine with a weaker magnet is identified as such, not as the nameplate
	in.Params.Lambda = 0.08
	assert.InDelta(t, 0.08, in.identifyLambda(100, 0.75), 0.001)
}

func TestKCLResidual(t *testing.T) {
	ia := []float64{1, -0.5, -0.5}
	ib := []float64{-0.5, 1, -0.5}
	ic := []float64{-0.5, -0.5, 1}
	assert.InDelta(t, 0, kclResidual(ia, ib, ic), 1e-12)
	assert.InDelta(t, 0, kclResidual([]float64{0}, []float64{0}, []float64{0}), 1e-12)
	stuck := []float64{0, 0, 0}
	assert.True(t, kclResidual(stuck, ib, ic) > KCLLimit)
}

func TestReadiness(t *testing.T) {
	assert := assert.New(t)
	score, gaps := Readiness(Subsystems)
	assert.InDelta(1233.0/13.5, score, 1e-9)
	assert.Len(gaps, 3)
	s, g := Readiness(nil)
	assert.Equal(0.0, s)
	assert.Nil(g)

	in := newInspector(1)
	in.HIL()
	assert.Equal(Pass, find(t, in, "HIL readiness").Status)
}

func trainedModels(t *testing.T, r *rand.Rand) *Models {
	p := drive.DefaultParams()
	logger := quietLogger()
	m := &Models{
		Scenarios: thermal.DefaultScenarios(p.Kt()),
		Generator: observer.NewGenerator(p),
		Features:  anomaly.NewFeatures(p),
		Speeds:    []float64{500, 1000, 1500, 2000, 3000},
		Torques:   []float64{2, 5, 8, 12, 15},
	}

	xs, ys, err := thermal.GenerateSamples(m.Scenarios, thermal.DefaultGenConf(), thermal.DefaultNetwork(), thermal.DefaultSiC())
	if err != nil {
		t.Fatalf("%+v", err)
	}
	m.Predictor = thermal.NewPredictor(r, logger)
	if _, err := m.Predictor.Train(xs, ys, thermal.DefaultPredictorTrainConf()); err != nil {
		t.Fatalf("%+v", err)
	}

	m.Observer = observer.New(r, logger)
	oconf := observer.DefaultConf()
	oconf.Train.Epochs = 20
	if _, err := m.Observer.Train(m.Generator, oconf); err != nil {
		t.Fatalf("%+v", err)
	}

	m.Normal = m.Features.Generate(m.Speeds, m.Torques, 20, r)
	m.Detector = anomaly.NewDetector(r, logger)
	aconf := anomaly.DefaultConf()
	aconf.Train = nn.TrainConf{Epochs: 30, BatchSize: 1, LearnRate: 0.01, DecayEvery: 10, Decay: 0.5, Loss: nn.MeanSquaredError}
	if _, err := m.Detector.Train(m.Normal, aconf); err != nil {
		t.Fatalf("%+v", err)
	}
	return m
}

func TestAI(t *testing.T) {
	if testing.Short() {
		t.Skip("trains all three networks")
	}
	r := rand.New(rand.NewSource(7))
	in := New(drive.DefaultParams(), r, quietLogger())
	in.Models = trainedModels(t, r)
	if err := in.AI(); err != nil {
		t.Fatalf("%+v", err)
	}
	assert.Equal(t, 7, in.CategoryCounts("AI").Total)
	timing := find(t, in, "AI timing")
	assert.InDelta(t, 12.6, timing.Measured, 1e-9)
	assert.Equal(t, Pass, timing.Status)
	assert.Equal(t, 4.0*(81+371+288), find(t, in, "weight memory").Measured)
	acc := find(t, in, "observer accuracy").Measured
	assert.True(t, acc > 0 && acc < 180, "observer accuracy %v", acc)
	fp := find(t, in, "FP rate").Measured
	assert.True(t, fp >= 0 && fp <= 100)
}

func TestAIUntrained(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	in := newInspector(1)
	in.Models = &Models{
		Predictor: thermal.NewPredictor(r, quietLogger()),
		Observer:  observer.New(r, quietLogger()),
		Detector:  anomaly.NewDetector(r, quietLogger()),
	}
	assert.Error(t, in.AI())

	// a trained predictor alone is not enough
	p := drive.DefaultParams()
	xs, ys, err := thermal.GenerateSamples(thermal.DefaultScenarios(p.Kt())[:2], thermal.DefaultGenConf(), thermal.DefaultNetwork(), thermal.DefaultSiC())
	if err != nil {
		t.Fatalf("%+v", err)
	}
	tc := thermal.DefaultPredictorTrainConf()
	tc.Epochs = 2
	if _, err := in.Models.Predictor.Train(xs, ys, tc); err != nil {
		t.Fatalf("%+v", err)
	}
	in.Models.Normal = [][]float64{make([]float64, anomaly.NumFeatures)}
	err = in.AI()
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "observer")
	}
	assert.Empty(t, in.Results())
}
