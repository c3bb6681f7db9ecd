package report

import (
	"math"

	"github.com/YuminosukeSato/devperf/dataset"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/stat"
)

// Correlation is a symmetric Pearson matrix over numeric columns.
type Correlation struct {
	Names  []string
	Values [][]float64
}

// Correlate computes pairwise Pearson correlation between the numeric
// columns of t, rounded to two decimals. Each pair uses the rows where
// both values are present; a constant column correlates as NaN.
func Correlate(t dataset.Table) (Correlation, error) {
	names := t.NumericNames()
	if len(names) == 0 {
		return Correlation{}, errors.NewEmptyFeatureSetError("Correlate")
	}
	cols := make([][]float64, len(names))
	for i, name := range names {
		values, err := t.Floats(name)
		if err != nil {
			return Correlation{}, err
		}
		cols[i] = values
	}

	c := Correlation{Names: names, Values: make([][]float64, len(names))}
	for i := range names {
		c.Values[i] = make([]float64, len(names))
	}
	for i := range names {
		for j := i; j < len(names); j++ {
			r := round2(pearson(cols[i], cols[j]))
			c.Values[i][j] = r
			c.Values[j][i] = r
		}
	}
	return c, nil
}

func pearson(x, y []float64) float64 {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for k := range x {
		if math.IsNaN(x[k]) || math.IsNaN(y[k]) {
			continue
		}
		xs = append(xs, x[k])
		ys = append(ys, y[k])
	}
	if len(xs) < 2 || stat.Variance(xs, nil) == 0 || stat.Variance(ys, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// At returns the correlation between two named columns.
func (c Correlation) At(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, n := range c.Names {
		if n == a {
			i = k
		}
		if n == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return math.NaN(), false
	}
	return c.Values[i][j], true
}

// Table lays the matrix out with a leading Variable column.
func (c Correlation) Table() (dataset.Table, error) {
	cols := make([]series.Series, 0, len(c.Names)+1)
	cols = append(cols, dataset.StringColumn("Variable", c.Names))
	for j, name := range c.Names {
		values := make([]float64, len(c.Names))
		for i := range c.Names {
			values[i] = c.Values[i][j]
		}
		cols = append(cols, dataset.FloatColumn(name, values))
	}
	return dataset.FromSeries(cols...)
}
