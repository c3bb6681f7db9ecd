package report

import (
	"fmt"
	"image/color"
	"math"

	"github.com/YuminosukeSato/devperf/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
)

var thresholdColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}

func newPlot(c Chart) *plot.Plot {
	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel
	return p
}

// horizontalGrid mirrors a y-axis only grid.
func horizontalGrid() *plotter.Grid {
	g := plotter.NewGrid()
	g.Vertical.Color = nil
	g.Horizontal.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
	return g
}

// heights replaces NaN with zero; plotter rejects NaN values.
func heights(values []float64) plotter.Values {
	out := make(plotter.Values, len(values))
	for i, v := range values {
		if !math.IsNaN(v) {
			out[i] = v
		}
	}
	return out
}

// valueLabels annotates each bar top with its value.
func valueLabels(xs, ys []float64, decimals int, dx vg.Length) (*plotter.Labels, error) {
	var xy plotter.XYLabels
	for i := range xs {
		if math.IsNaN(ys[i]) {
			continue
		}
		xy.XYs = append(xy.XYs, plotter.XY{X: xs[i], Y: ys[i]})
		xy.Labels = append(xy.Labels, fmt.Sprintf("%.*f", decimals, ys[i]))
	}
	if len(xy.XYs) == 0 {
		return nil, nil
	}
	l, err := plotter.NewLabels(xy)
	if err != nil {
		return nil, err
	}
	for i := range l.TextStyle {
		l.TextStyle[i].XAlign = text.XCenter
		l.TextStyle[i].YAlign = text.YBottom
	}
	l.Offset = vg.Point{X: dx, Y: vg.Points(2)}
	return l, nil
}

func maxOf(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		if !math.IsNaN(v) && v > m {
			m = v
		}
	}
	return m
}

// saveBar draws one bar per label.
func saveBar(path string, c Chart, labels []string, values []float64) error {
	p := newPlot(c)
	bars, err := plotter.NewBarChart(heights(values), vg.Points(40))
	if err != nil {
		return errors.Wrap(err, "report: bar chart")
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = vg.Length(1)
	p.Add(horizontalGrid(), bars)
	p.NominalX(labels...)

	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	lbls, err := valueLabels(xs, values, c.Decimals, 0)
	if err != nil {
		return errors.Wrap(err, "report: bar labels")
	}
	if lbls != nil {
		p.Add(lbls)
	}
	p.Y.Min = 0
	p.Y.Max = maxOf(values) * 1.12

	return save(p, 8*vg.Inch, 5*vg.Inch, path)
}

// saveGroupedBar draws one bar series per column label, clustered by row
// label.
func saveGroupedBar(path string, c Chart, rows, cols []string, cells [][]float64) error {
	p := newPlot(c)
	p.Add(horizontalGrid())

	w := vg.Points(24)
	ymax := 0.0
	for j, col := range cols {
		values := make([]float64, len(rows))
		xs := make([]float64, len(rows))
		for i := range rows {
			values[i] = cells[i][j]
			xs[i] = float64(i)
		}
		ymax = math.Max(ymax, maxOf(values))

		bars, err := plotter.NewBarChart(heights(values), w)
		if err != nil {
			return errors.Wrap(err, "report: grouped bar chart")
		}
		bars.Color = plotutil.Color(j)
		bars.LineStyle.Width = vg.Length(1)
		bars.Offset = vg.Length(float64(j)-float64(len(cols)-1)/2) * w
		p.Add(bars)
		p.Legend.Add(col, bars)

		lbls, err := valueLabels(xs, values, c.Decimals, bars.Offset)
		if err != nil {
			return errors.Wrap(err, "report: grouped bar labels")
		}
		if lbls != nil {
			p.Add(lbls)
		}
	}
	p.Legend.Top = true
	p.NominalX(rows...)
	p.Y.Min = 0
	p.Y.Max = ymax * 1.2

	return save(p, 8*vg.Inch, 5*vg.Inch, path)
}

// saveHistogram bins the present values, optionally marking a threshold
// with a dashed vertical line.
func saveHistogram(path string, c Chart, values []float64) error {
	present := dropNaN(values)
	if len(present) == 0 {
		return errors.Wrapf(errors.ErrEmptyData, "report: histogram of %s", c.Column)
	}
	p := newPlot(c)
	h, err := plotter.NewHist(plotter.Values(present), c.Bins)
	if err != nil {
		return errors.Wrap(err, "report: histogram")
	}
	h.FillColor = plotutil.Color(0)
	p.Add(horizontalGrid(), h)

	if c.Threshold != nil {
		top := 0.0
		for _, b := range h.Bins {
			top = math.Max(top, b.Weight)
		}
		line, err := plotter.NewLine(plotter.XYs{{X: *c.Threshold, Y: 0}, {X: *c.Threshold, Y: top}})
		if err != nil {
			return errors.Wrap(err, "report: threshold line")
		}
		line.Color = thresholdColor
		line.Width = vg.Points(2)
		line.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("Threshold = %g", *c.Threshold), line)
		p.Legend.Top = true
	}
	return save(p, 10*vg.Inch, 6*vg.Inch, path)
}

// corrGrid puts the first variable on the top row.
type corrGrid struct {
	values [][]float64
}

func (g corrGrid) Dims() (c, r int)   { return len(g.values), len(g.values) }
func (g corrGrid) Z(c, r int) float64 { return g.values[len(g.values)-1-r][c] }
func (g corrGrid) X(c int) float64    { return float64(c) }
func (g corrGrid) Y(r int) float64    { return float64(r) }

// saveHeatmap renders a correlation matrix on a diverging palette fixed
// to [-1, 1].
func saveHeatmap(path string, corr Correlation) error {
	n := len(corr.Names)
	if n == 0 {
		return errors.Wrap(errors.ErrEmptyData, "report: heatmap")
	}
	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)

	grid := corrGrid{values: corr.Values}
	hm := plotter.NewHeatMap(grid, cm.Palette(255))
	hm.Min, hm.Max = -1, 1
	hm.NaN = color.Gray{Y: 200}

	p := plot.New()
	p.Title.Text = "Correlation matrix"
	p.X.Label.Text = "Variables"
	p.Y.Label.Text = "Variables"
	p.Add(hm)

	var xy plotter.XYLabels
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			v := grid.Z(c, r)
			if math.IsNaN(v) {
				continue
			}
			xy.XYs = append(xy.XYs, plotter.XY{X: float64(c), Y: float64(r)})
			xy.Labels = append(xy.Labels, fmt.Sprintf("%.2f", v))
		}
	}
	if len(xy.XYs) > 0 {
		lbls, err := plotter.NewLabels(xy)
		if err != nil {
			return errors.Wrap(err, "report: heatmap labels")
		}
		for i := range lbls.TextStyle {
			lbls.TextStyle[i].XAlign = text.XCenter
			lbls.TextStyle[i].YAlign = text.YCenter
			lbls.TextStyle[i].Font.Size = vg.Points(7)
		}
		p.Add(lbls)
	}

	ylabels := make([]string, n)
	for i, name := range corr.Names {
		ylabels[n-1-i] = name
	}
	p.NominalX(corr.Names...)
	p.NominalY(ylabels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter

	return save(p, 10*vg.Inch, 8*vg.Inch, path)
}

func save(p *plot.Plot, w, h vg.Length, path string) error {
	if err := p.Save(w, h, path); err != nil {
		return errors.Wrapf(err, "report: save %s", path)
	}
	return nil
}
