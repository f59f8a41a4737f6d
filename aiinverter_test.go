package aiinverter

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/evdrive/aiinverter/nn"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// smallConfig trains every network briefly.
func smallConfig() Config {
	conf := DefaultConfig()
	conf.Thermal.Train.Epochs = 10
	conf.Observer.SpeedsRPM = []float64{500, 1500, 3000}
	conf.Observer.Torques = []float64{2, 10}
	conf.Observer.SamplesPerPoint = 10
	conf.Observer.Train.Epochs = 5
	conf.Anomaly.Speeds = []float64{1000, 2000}
	conf.Anomaly.Torques = []float64{5, 10}
	conf.Anomaly.PerPoint = 10
	conf.Anomaly.Detector.Train = nn.TrainConf{Epochs: 5, BatchSize: 1, LearnRate: 0.01, Loss: nn.MeanSquaredError}
	return conf
}

func TestNewPanics(t *testing.T) {
	conf := DefaultConfig()
	conf.Params.Rs = 0
	assert.Panics(t, func() { New(conf, nil) })

	conf = DefaultConfig()
	conf.Anomaly.PerPoint = 0
	assert.Panics(t, func() { New(conf, nil) })
	assert.True(t, DefaultConfig().IsValid())
}

func TestCompareUntrained(t *testing.T) {
	assert := assert.New(t)
	conf := smallConfig()
	enc := new(frameCounter)
	conf.OutputEncoder = enc
	s := New(conf, quietLogger())
	assert.False(s.Trained())

	_, err := s.Inspect()
	assert.Error(err)

	duels, err := s.Compare([]float64{25, 85})
	if err != nil {
		t.Fatal(err)
	}
	assert.Len(duels, 2)
	assert.Len(s.Duels, 2)
	assert.Equal("dummy", duels[0].B.Policy)
	assert.Equal(1, enc.flushed)
	assert.Equal(62, len(enc.frames))
}

func TestSuiteTrain(t *testing.T) {
	assert := assert.New(t)
	s := New(smallConfig(), quietLogger())
	if err := s.Train(); err != nil {
		t.Fatalf("%+v", err)
	}
	assert.True(s.Trained())
	assert.Equal([]string{"thermal", "observer", "autoencoder"}, s.Creation)
	assert.Len(s.Losses["thermal"], 10)
	assert.Len(s.Losses["autoencoder"], 5)
	assert.Len(s.normal, 2*2*10)

	m := s.Models()
	assert.True(m.Predictor.Trained())
	assert.Equal(s.normal, m.Normal)

	duels, err := s.Compare([]float64{85})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal("ai", duels[0].B.Policy)

	filename := filepath.Join(t.TempDir(), "stats.csv")
	if err := s.Dump(filename); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	// header, 10 epochs, duel header, two agents. The blank separator is skipped by the reader.
	assert.Len(rows, 1+10+1+2)
	assert.Equal([]string{"epoch", "thermal", "observer", "autoencoder"}, rows[0])
	assert.Equal("", rows[10][2], "the observer trained for fewer epochs")
	assert.Equal("tamb", rows[11][0])
	assert.Equal("ai", rows[13][1])
}

func TestSuiteInspect(t *testing.T) {
	if testing.Short() {
		t.Skip("runs every inspection category")
	}
	s := New(smallConfig(), quietLogger())
	if err := s.Train(); err != nil {
		t.Fatalf("%+v", err)
	}
	in, err := s.Inspect()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	c := in.Counts()
	assert.Equal(t, 40, c.Total)
	assert.Equal(t, c.Total, c.Pass+c.Warn+c.Fail)
	assert.NotEmpty(t, in.Verdict())
}

func TestDivergedDetectorLeavesSuiteUntrained(t *testing.T) {
	assert := assert.New(t)
	conf := smallConfig()
	conf.Anomaly.Detector.Train.Epochs = 20
	conf.Anomaly.Detector.Train.LearnRate = 1e6
	s := New(conf, quietLogger())

	err := s.Train()
	assert.Error(err)
	assert.False(s.Trained())
	assert.True(s.predictor.Trained())
	assert.True(s.observer.Trained())
	assert.False(s.detector.Trained())

	in, err := s.Inspect()
	assert.Error(err)
	assert.Nil(in)
}
