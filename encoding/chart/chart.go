// Package chart renders numeric traces such as loss curves and junction temperature waveforms as
// PNG line charts.
package chart

import (
	"bufio"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const dpi = 150

// Series is one named line.
type Series struct {
	Name string
	X, Y []float64
}

func (s Series) xys() (plotter.XYs, error) {
	if len(s.X) != len(s.Y) {
		return nil, errors.Errorf("series %q has %d x and %d y values", s.Name, len(s.X), len(s.Y))
	}
	if len(s.X) == 0 {
		return nil, errors.Errorf("series %q is empty", s.Name)
	}
	retVal := make(plotter.XYs, len(s.X))
	for i := range s.X {
		retVal[i].X = s.X[i]
		retVal[i].Y = s.Y[i]
	}
	return retVal, nil
}

// Index returns a series of ys against their index.
func Index(name string, ys []float64) Series {
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	return Series{Name: name, X: xs, Y: ys}
}

// Chart is a line chart of one or more series.
type Chart struct {
	Title, XLabel, YLabel string
	Series                []Series
	LogY                  bool

	Width, Height vg.Length
}

// New makes an 8 × 5 inch chart.
func New(title, xlabel, ylabel string, series ...Series) *Chart {
	return &Chart{
		Title:  title,
		XLabel: xlabel,
		YLabel: ylabel,
		Series: series,
		Width:  8 * vg.Inch,
		Height: 5 * vg.Inch,
	}
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)
	p.X.Label.TextStyle.Font.Size = vg.Points(13)
	p.Y.Label.TextStyle.Font.Size = vg.Points(13)
	p.X.Padding = vg.Points(10)
	p.Y.Padding = vg.Points(10)
	p.X.Tick.Label.Font.Size = vg.Points(11)
	p.Y.Tick.Label.Font.Size = vg.Points(11)
	p.Legend.Top = true
}

func (c *Chart) plot() (*plot.Plot, error) {
	if len(c.Series) == 0 {
		return nil, errors.Errorf("chart %q has no series", c.Title)
	}
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel
	stylePlot(p)
	if c.LogY {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}
	p.Add(plotter.NewGrid())

	for i, s := range c.Series {
		pts, err := s.xys()
		if err != nil {
			return nil, err
		}
		if c.LogY {
			for j := range pts {
				pts[j].Y = math.Max(pts[j].Y, 1e-12)
			}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, errors.Wrapf(err, "series %q", s.Name)
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(i)
		p.Add(line)
		if s.Name != "" {
			p.Legend.Add(s.Name, line)
		}
	}
	return p, nil
}

// WriteTo renders the chart as a PNG.
func (c *Chart) WriteTo(w io.Writer) (int64, error) {
	p, err := c.plot()
	if err != nil {
		return 0, err
	}
	canvas := vgimg.NewWith(vgimg.UseWH(c.Width, c.Height), vgimg.UseDPI(dpi))
	p.Draw(draw.New(canvas))
	return vgimg.PngCanvas{Canvas: canvas}.WriteTo(w)
}

// Save writes the chart to filename, creating its directory.
func (c *Chart) Save(filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return errors.Wrap(err, "chart directory")
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	if _, err := c.WriteTo(bw); err != nil {
		return errors.Wrapf(err, "render %s", filename)
	}
	return bw.Flush()
}

// Lines saves a chart of series to filename.
func Lines(filename, title, xlabel, ylabel string, series ...Series) error {
	return New(title, xlabel, ylabel, series...).Save(filename)
}
