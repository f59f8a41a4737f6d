// Command invsim runs the inverter experiments: the closed-loop drive simulation, training of the
// three networks, the derating duel, fault detection and the digital twin inspection.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/evdrive/aiinverter"
	"github.com/evdrive/aiinverter/anomaly"
	"github.com/evdrive/aiinverter/drive"
	"github.com/evdrive/aiinverter/encoding/chart"
	"github.com/evdrive/aiinverter/encoding/gif"
	"github.com/evdrive/aiinverter/nn"
	"github.com/evdrive/aiinverter/observer"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}
	switch args[0] {
	case "sim":
		return runSim(args[1:])
	case "duel":
		return runDuel(args[1:])
	case "all":
		return runAll(args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return errors.Errorf("%s\nusage: invsim <sim|duel|all> [flags]", msg)
}

func runSim(args []string) error {
	fs := flag.NewFlagSet("sim", flag.ContinueOnError)
	out := fs.String("out", "out", "output directory")
	rpm := fs.Float64("rpm", 1000, "speed reference [rpm]")
	load := fs.Float64("load", 5, "load torque step [Nm]")
	if err := fs.Parse(args); err != nil {
		return err
	}
	conf := drive.DefaultSimConf()
	conf.SpeedRefRPM = *rpm
	conf.LoadTorque = *load
	return simulate(conf, *out)
}

func simulate(conf drive.SimConf, out string) error {
	res, err := drive.Simulate(conf, drive.DefaultParams())
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "rise time\t%.2f ms\n", res.RiseTime*1e3)
	fmt.Fprintf(tw, "settling time\t%.2f ms\n", res.SettleTime*1e3)
	fmt.Fprintf(tw, "overshoot\t%.2f %%\n", res.Overshoot)
	fmt.Fprintf(tw, "speed error before load\t%.3f rpm\n", res.PreLoadSpeedErr)
	fmt.Fprintf(tw, "speed error after load\t%.3f rpm\n", res.PostLoadSpeedErr)
	fmt.Fprintf(tw, "speed dip\t%.2f rpm\n", res.SpeedDip)
	fmt.Fprintf(tw, "recovery\t%.2f ms\n", res.RecoverTime*1e3)
	fmt.Fprintf(tw, "id before / after load\t%.4f / %.4f A\n", res.PreLoadId, res.PostLoadId)
	fmt.Fprintf(tw, "THD\t%.2f %%\n", res.THD)
	fmt.Fprintf(tw, "Ia peak / rms\t%.2f / %.2f A\n", res.IaPeak, res.IaRMS)
	fmt.Fprintf(tw, "voltage utilisation\t%.1f %%\n", res.VoltageUtil)
	jump, transitions := drive.SweepJump(200, drive.DefaultParams().Vdc, 5)
	fmt.Fprintf(tw, "SVPWM max duty jump\t%.3f (%d sector transitions)\n", jump, transitions)
	tw.Flush()

	t := make([]float64, len(res.Trace))
	speed := make([]float64, len(res.Trace))
	id := make([]float64, len(res.Trace))
	iq := make([]float64, len(res.Trace))
	for i, s := range res.Trace {
		t[i], speed[i], id[i], iq[i] = s.T, s.RPM, s.Id, s.Iq
	}
	if err := chart.Lines(filepath.Join(out, "speed.png"), "speed step and load step", "t [s]", "speed [rpm]", chart.Series{Name: "speed", X: t, Y: speed}); err != nil {
		return err
	}
	return chart.Lines(filepath.Join(out, "currents.png"), "dq currents", "t [s]", "current [A]",
		chart.Series{Name: "id", X: t, Y: id},
		chart.Series{Name: "iq", X: t, Y: iq},
	)
}

func runDuel(args []string) error {
	fs := flag.NewFlagSet("duel", flag.ContinueOnError)
	out := fs.String("out", "out", "output directory")
	seed := fs.Int64("seed", 42, "random seed")
	quick := fs.Bool("quick", false, "train with fewer epochs")
	anim := fs.Bool("gif", false, "render the duels as an animated GIF")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, enc, err := trainedSuite(*seed, *quick, *anim)
	if err != nil {
		return err
	}
	return duel(s, enc, *out)
}

func runAll(args []string) error {
	fs := flag.NewFlagSet("all", flag.ContinueOnError)
	out := fs.String("out", "out", "output directory")
	seed := fs.Int64("seed", 42, "random seed")
	quick := fs.Bool("quick", false, "train with fewer epochs")
	anim := fs.Bool("gif", false, "render the duels as an animated GIF")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := simulate(drive.DefaultSimConf(), *out); err != nil {
		return errors.WithMessage(err, "drive simulation")
	}
	s, enc, err := trainedSuite(*seed, *quick, *anim)
	if err != nil {
		return err
	}
	if err := duel(s, enc, *out); err != nil {
		return err
	}
	if err := observe(s, *out); err != nil {
		return err
	}
	if err := faults(s, *out); err != nil {
		return err
	}
	if err := export(s, *out); err != nil {
		return err
	}
	return inspect(s, *out)
}

// trainedSuite builds and trains a suite. With anim, duels are rendered into the returned encoder.
func trainedSuite(seed int64, quick, anim bool) (*aiinverter.Suite, *gif.Encoder, error) {
	conf := aiinverter.DefaultConfig()
	conf.Seed = seed
	if quick {
		conf.Thermal.Train.Epochs = 10
		conf.Observer.Train.Epochs = 20
		conf.Anomaly.Detector.Train.Epochs = 30
	}
	var enc *gif.Encoder
	if anim {
		enc = gif.NewGifEncoder(800, 1400)
		conf.OutputEncoder = enc
	}
	s := aiinverter.New(conf, logger)
	if err := s.Train(); err != nil {
		return nil, nil, err
	}
	return s, enc, nil
}

func duel(s *aiinverter.Suite, enc *gif.Encoder, out string) error {
	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	var f *os.File
	if enc != nil {
		var err error
		if f, err = os.Create(filepath.Join(out, "duel.gif")); err != nil {
			return err
		}
		defer f.Close()
		enc.Writer = f
	}
	duels, err := s.Compare([]float64{-40, 0, 25, 40, 60, 85})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ambient\tpolicy\tTj max\tmean torque\tsafe")
	for _, d := range duels {
		for _, o := range []aiinverter.Outcome{d.A, d.B} {
			fmt.Fprintf(tw, "%.0f C\t%s\t%.1f C\t%.2f Nm\t%t\n", d.Tamb, o.Policy, o.TjMax, o.MeanTorque, o.Safe())
		}
	}
	tw.Flush()

	// the last duel is the hottest
	h := s.History
	t := make([]float64, len(h))
	tjA, tjB := make([]float64, len(h)), make([]float64, len(h))
	for i, k := range h {
		t[i], tjA[i], tjB[i] = k.T, k.TjA, k.TjB
	}
	if err := chart.Lines(filepath.Join(out, "duel_tj.png"), fmt.Sprintf("junction temperature at %.0f C", duels[len(duels)-1].Tamb), "t [s]", "Tj [C]",
		chart.Series{Name: s.A.Name(), X: t, Y: tjA},
		chart.Series{Name: s.B.Name(), X: t, Y: tjB},
	); err != nil {
		return err
	}

	var losses []chart.Series
	for _, name := range s.Creation {
		losses = append(losses, chart.Index(name, s.Losses[name]))
	}
	c := chart.New("training loss", "epoch", "loss", losses...)
	c.LogY = true
	if err := c.Save(filepath.Join(out, "loss.png")); err != nil {
		return err
	}
	return s.Dump(filepath.Join(out, "statistics.csv"))
}

func observe(s *aiinverter.Suite, out string) error {
	m := s.Models()
	vals := m.Observer.Validate(m.Generator, []float64{200, 500, 1000, 1500, 2000, 2500, 3000}, 10, 200)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "rpm\ttheta rmse\tomega error\tgrade")
	for _, v := range vals {
		fmt.Fprintf(tw, "%.0f\t%.2f deg\t%.2f %%\t%s\n", v.RPM, v.ThetaRMSEDeg, v.OmegaPct, v.Grade)
	}
	tw.Flush()
	sum := observer.Summarize(vals, 500)
	logger.WithFields(logrus.Fields{
		"high_speed_theta_deg": sum.HighThetaDeg,
		"low_speed_theta_deg":  sum.LowThetaDeg,
		"pass":                 sum.Pass,
	}).Info("observer validation")

	pts := m.Observer.Ramp(m.Generator, observer.DefaultRampConf())
	t := make([]float64, len(pts))
	truth, est := make([]float64, len(pts)), make([]float64, len(pts))
	for i, p := range pts {
		t[i], truth[i], est[i] = p.T, p.TrueRPM, p.EstRPM
	}
	return chart.Lines(filepath.Join(out, "observer_ramp.png"), "sensorless speed tracking", "t [s]", "speed [rpm]",
		chart.Series{Name: "true", X: t, Y: truth},
		chart.Series{Name: "estimated", X: t, Y: est},
	)
}

func faults(s *aiinverter.Suite, out string) error {
	m := s.Models()
	r := s.Rand()
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "fault\tdetected at severity")
	for _, f := range anomaly.Faults {
		_, at := anomaly.Sweep(m.Detector, m.Normal, f, anomaly.DefaultSweepConf(), r)
		fmt.Fprintf(tw, "%v\t%.2f\n", f, at)
	}
	tw.Flush()
	fp := anomaly.FalsePositiveRate(m.Detector, m.Normal, 500, 0.003, r)
	logger.WithField("fp_rate", fp).Info("false positives")

	pts, midErr := anomaly.Degradation(m.Detector, m.Normal, anomaly.DefaultDegradationConf(), r)
	logger.WithField("rul_error_pct", midErr).Info("remaining useful life at the midpoint")
	var step, est, actual []float64
	for _, p := range pts {
		if p.RUL < 0 {
			continue
		}
		step = append(step, float64(p.Step))
		est = append(est, p.RUL)
		actual = append(actual, p.ActualRUL)
	}
	if len(step) == 0 {
		logger.Warn("no RUL estimate to plot")
		return nil
	}
	return chart.Lines(filepath.Join(out, "rul.png"), "remaining useful life", "step", "RUL [steps]",
		chart.Series{Name: "estimated", X: step, Y: est},
		chart.Series{Name: "actual", X: step, Y: actual},
	)
}

// export writes the network graphs and checks the float32 deployment copies.
func export(s *aiinverter.Suite, out string) error {
	m := s.Models()
	nets := map[string]*nn.Network{
		"thermal":     m.Predictor.Net(),
		"observer":    m.Observer.Net(),
		"autoencoder": m.Detector.Net(),
	}
	var total int
	for name, n := range nets {
		if err := os.WriteFile(filepath.Join(out, name+".dot"), []byte(n.ToDot()), 0644); err != nil {
			return err
		}
		q := nn.Quantize(n)
		total += q.MemoryBytes()
		logger.WithFields(logrus.Fields{
			"net":    name,
			"params": n.NumParams(),
			"bytes":  q.MemoryBytes(),
		}).Info("exported")
	}
	logger.WithField("bytes", total).Info("float32 weight memory")
	return nil
}

func inspect(s *aiinverter.Suite, out string) error {
	in, err := s.Inspect()
	if err != nil {
		return err
	}
	in.Report(os.Stdout)
	return in.Dump(filepath.Join(out, "inspection.csv"))
}
