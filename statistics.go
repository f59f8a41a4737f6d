package aiinverter

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/evdrive/aiinverter/nn"
)

// Statistics collects the loss curve of every trained network and the result of every duel.
type Statistics struct {
	Creation []string // networks in the order they were trained
	Losses   map[string][]float64
	Duels    []Duel
}

func makeStatistics() Statistics {
	return Statistics{
		Creation: make([]string, 0, 3),
		Losses:   make(map[string][]float64),
	}
}

func (s *Statistics) record(name string, res nn.Result) {
	if _, ok := s.Losses[name]; !ok {
		s.Creation = append(s.Creation, name)
	}
	s.Losses[name] = append(s.Losses[name], res.Losses...)
}

func (s *Statistics) update(d Duel) { s.Duels = append(s.Duels, d) }

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

// Dump writes the loss curves, one column per network and one row per epoch, followed by a
// blank line and one row per agent per duel.
func (s *Statistics) Dump(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"epoch"}, s.Creation...)); err != nil {
		return err
	}
	var epochs int
	for _, losses := range s.Losses {
		if len(losses) > epochs {
			epochs = len(losses)
		}
	}
	records := make([][]string, 0, epochs+len(s.Duels)*2+2)
	for e := 0; e < epochs; e++ {
		record := make([]string, len(s.Creation)+1)
		record[0] = strconv.Itoa(e)
		for i, name := range s.Creation {
			if losses := s.Losses[name]; e < len(losses) {
				record[i+1] = fmtFloat(losses[e])
			}
		}
		records = append(records, record)
	}

	records = append(records, nil, []string{"tamb", "policy", "tj_max", "mean_torque", "over_temp", "safe"})
	for _, d := range s.Duels {
		for _, o := range []Outcome{d.A, d.B} {
			records = append(records, []string{
				fmtFloat(d.Tamb),
				o.Policy,
				fmtFloat(o.TjMax),
				fmtFloat(o.MeanTorque),
				strconv.Itoa(o.OverTemp),
				strconv.FormatBool(o.Safe()),
			})
		}
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return w.Error()
}
