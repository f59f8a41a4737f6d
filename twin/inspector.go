// Package twin is a software inspection bench for the inverter. It drives the plant, controller,
// thermal model and trained networks through production, control, thermal, AI, power quality and
// safety checks, and grades every measurement as PASS, WARN or FAIL.
package twin

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/evdrive/aiinverter/drive"
	"github.com/evdrive/aiinverter/thermal"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Status byte

const (
	Pass Status = iota
	Warn
	Fail
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "PASS"
	case Warn:
		return "WARN"
	case Fail:
		return "FAIL"
	}
	return fmt.Sprintf("Status(%d)", byte(s))
}

// below grades a measurement where smaller is better.
func below(v, pass, warn float64) Status {
	switch {
	case v < pass:
		return Pass
	case v < warn:
		return Warn
	}
	return Fail
}

// above grades a measurement where larger is better.
func above(v, pass, warn float64) Status {
	switch {
	case v > pass:
		return Pass
	case v > warn:
		return Warn
	}
	return Fail
}

func passIf(ok bool) Status {
	if ok {
		return Pass
	}
	return Fail
}

// Record is one graded measurement. Text replaces Measured in reports when it is set.
type Record struct {
	Category string
	Name     string
	Measured float64
	Text     string
	Spec     string
	Unit     string
	Status   Status
}

func (r Record) Value() string {
	if r.Text != "" {
		return r.Text
	}
	return strconv.FormatFloat(r.Measured, 'g', 5, 64)
}

// Counts tallies records by status.
type Counts struct {
	Total, Pass, Warn, Fail int
}

func (c *Counts) add(s Status) {
	c.Total++
	switch s {
	case Pass:
		c.Pass++
	case Fail:
		c.Fail++
	default:
		c.Warn++
	}
}

// Categories in report order.
var Categories = []string{"EOL", "ParamID", "FOC", "Thermal", "AI", "EMC", "Safety", "HIL"}

var categoryNames = map[string]string{
	"EOL":     "EOL production",
	"ParamID": "Parameter ID",
	"FOC":     "FOC control",
	"Thermal": "Thermal",
	"AI":      "AI modules",
	"EMC":     "EMC / power quality",
	"Safety":  "Safety",
	"HIL":     "HIL readiness",
}

// Inspector runs the inspection categories against one drive configuration and keeps the records.
type Inspector struct {
	Params drive.Params
	FOC    drive.FOCConf
	SiC    thermal.SiC
	Dt     float64 // control period of the electrical tests [s]
	DtTh   float64 // thermal step [s]

	// Models are the trained networks the AI category certifies.
	Models *Models

	results []Record
	rand    *rand.Rand
	logger  *logrus.Logger
}

// New creates an inspector for the given machine. It panics if the parameters are invalid.
func New(p drive.Params, r *rand.Rand, logger *logrus.Logger) *Inspector {
	if !p.IsValid() {
		panic(fmt.Sprintf("invalid motor parameters %+v", p))
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Inspector{
		Params: p,
		FOC:    drive.DefaultFOCConf(),
		SiC:    thermal.DefaultSiC(),
		Dt:     10e-6,
		DtTh:   500e-6,
		rand:   r,
		logger: logger,
	}
}

// steps is the number of periods of dt in d.
func steps(d, dt float64) int { return int(math.Round(d / dt)) }

// Record appends a graded numeric measurement.
func (in *Inspector) Record(cat, name string, measured float64, spec, unit string, s Status) {
	in.add(Record{Category: cat, Name: name, Measured: measured, Spec: spec, Unit: unit, Status: s})
}

// Note appends a graded measurement that is reported as text.
func (in *Inspector) Note(cat, name, text, spec, unit string, s Status) {
	in.add(Record{Category: cat, Name: name, Measured: math.NaN(), Text: text, Spec: spec, Unit: unit, Status: s})
}

func (in *Inspector) add(r Record) {
	in.results = append(in.results, r)
	entry := in.logger.WithFields(logrus.Fields{
		"category": r.Category,
		"test":     r.Name,
		"measured": r.Value(),
		"spec":     r.Spec,
	})
	if r.Status == Pass {
		entry.Info(r.Status)
		return
	}
	entry.Warn(r.Status)
}

// Results returns the records in the order they were made.
func (in *Inspector) Results() []Record { return in.results }

func (in *Inspector) Reset() { in.results = in.results[:0] }

func (in *Inspector) Counts() Counts {
	var retVal Counts
	for _, r := range in.results {
		retVal.add(r.Status)
	}
	return retVal
}

func (in *Inspector) CategoryCounts(cat string) Counts {
	var retVal Counts
	for _, r := range in.results {
		if r.Category == cat {
			retVal.add(r.Status)
		}
	}
	return retVal
}

// Verdict summarises all records.
func (in *Inspector) Verdict() string {
	c := in.Counts()
	switch {
	case c.Fail == 0 && c.Warn == 0:
		return "CERTIFIED"
	case c.Fail == 0:
		return "CERTIFIED (with observations)"
	case c.Fail <= 2:
		return "CONDITIONAL PASS"
	}
	return "FAIL"
}

// Run executes every category in report order. The AI category needs Models.
func (in *Inspector) Run() error {
	if in.Models == nil {
		return errors.New("inspection needs trained models")
	}
	in.EOL()
	in.ParamID()
	in.Control()
	in.Thermal()
	if err := in.AI(); err != nil {
		return errors.WithMessage(err, "AI certification")
	}
	in.EMC()
	in.Safety()
	in.HIL()
	return nil
}

// Dump writes the records as CSV.
func (in *Inspector) Dump(filename string) error {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"category", "test", "measured", "spec", "unit", "status"}); err != nil {
		return err
	}
	records := make([][]string, 0, len(in.results))
	for _, r := range in.results {
		records = append(records, []string{r.Category, r.Name, r.Value(), r.Spec, r.Unit, r.Status.String()})
	}
	if err := w.WriteAll(records); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Report writes the per category tally, the verdict and every non passing record.
func (in *Inspector) Report(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "category\ttests\tpass\tfail\twarn")
	for _, cat := range Categories {
		c := in.CategoryCounts(cat)
		if c.Total == 0 {
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", categoryNames[cat], c.Total, c.Pass, c.Fail, c.Warn)
	}
	total := in.Counts()
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%d\t%d\n", total.Total, total.Pass, total.Fail, total.Warn)
	tw.Flush()

	var rate float64
	if total.Total > 0 {
		rate = float64(total.Pass) / float64(total.Total) * 100
	}
	fmt.Fprintf(w, "\npass rate %.1f%% (%d/%d)\nverdict: %s\n", rate, total.Pass, total.Total, in.Verdict())

	for _, s := range []Status{Fail, Warn} {
		var header bool
		for _, r := range in.results {
			if r.Status != s {
				continue
			}
			if !header {
				fmt.Fprintf(w, "\n%v:\n", s)
				header = true
			}
			unit := r.Unit
			if unit != "" {
				unit = " " + unit
			}
			fmt.Fprintf(w, "  [%s] %s: %s (spec %s%s)\n", r.Category, r.Name, r.Value(), r.Spec, unit)
		}
	}
}
