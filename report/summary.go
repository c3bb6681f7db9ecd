package report

import (
	"math"
	"strings"

	"github.com/YuminosukeSato/devperf/dataset"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/stat"
)

// Group is one combination of band labels.
type Group struct {
	Keys  []string
	Count int
	// Means are rounded to two decimals, in Summary.Metrics order.
	Means []float64
}

// Summary holds the grouped means of one analysis.
type Summary struct {
	Name    string
	By      []string
	Metrics []string
	Groups  []Group
	// Orders are the label orders of the By bands.
	Orders [][]string
}

// Summarize groups the rows of t by the labeled bands and averages each
// metric, skipping missing values. Groups are emitted in label order and
// empty groups are left out.
func Summarize(name string, t dataset.Table, by []Labeled, metrics []string) (Summary, error) {
	s := Summary{Name: name, Metrics: metrics}
	for _, b := range by {
		s.By = append(s.By, b.Name)
		s.Orders = append(s.Orders, b.Order)
	}

	columns := make([][]float64, len(metrics))
	for j, m := range metrics {
		values, err := t.Floats(m)
		if err != nil {
			return Summary{}, err
		}
		columns[j] = values
	}

	// 組み合わせごとの行番号
	index := make(map[string][]int)
	for i := 0; i < t.Nrow(); i++ {
		key, ok := rowKey(by, i)
		if !ok {
			continue
		}
		index[key] = append(index[key], i)
	}

	for _, keys := range product(s.Orders) {
		rows := index[joinKey(keys)]
		if len(rows) == 0 {
			continue
		}
		g := Group{Keys: keys, Count: len(rows), Means: make([]float64, len(metrics))}
		for j := range metrics {
			g.Means[j] = round2(meanAt(columns[j], rows))
		}
		s.Groups = append(s.Groups, g)
	}
	return s, nil
}

func rowKey(by []Labeled, i int) (string, bool) {
	keys := make([]string, len(by))
	for k, b := range by {
		if b.Labels[i] == "" {
			return "", false
		}
		keys[k] = b.Labels[i]
	}
	return joinKey(keys), true
}

func joinKey(keys []string) string {
	return strings.Join(keys, "\x1f")
}

// product enumerates label combinations with the last band varying fastest.
func product(orders [][]string) [][]string {
	out := [][]string{{}}
	for _, order := range orders {
		next := make([][]string, 0, len(out)*len(order))
		for _, prefix := range out {
			for _, l := range order {
				next = append(next, append(append([]string(nil), prefix...), l))
			}
		}
		out = next
	}
	return out
}

func meanAt(values []float64, rows []int) float64 {
	present := make([]float64, 0, len(rows))
	for _, r := range rows {
		if !math.IsNaN(values[r]) {
			present = append(present, values[r])
		}
	}
	if len(present) == 0 {
		return math.NaN()
	}
	return stat.Mean(present, nil)
}

// Mean looks up the mean of metric for the given label combination.
func (s Summary) Mean(metric string, keys ...string) (float64, bool) {
	j := -1
	for i, m := range s.Metrics {
		if m == metric {
			j = i
		}
	}
	if j < 0 {
		return math.NaN(), false
	}
	want := joinKey(keys)
	for _, g := range s.Groups {
		if joinKey(g.Keys) == want {
			return g.Means[j], true
		}
	}
	return math.NaN(), false
}

// Table lays the summary out with one row per group: the band columns,
// then a count, then one column per metric.
func (s Summary) Table() (dataset.Table, error) {
	cols := make([]series.Series, 0, len(s.By)+1+len(s.Metrics))
	for k, name := range s.By {
		labels := make([]string, len(s.Groups))
		for i, g := range s.Groups {
			labels[i] = g.Keys[k]
		}
		cols = append(cols, dataset.StringColumn(name, labels))
	}
	counts := make([]int, len(s.Groups))
	for i, g := range s.Groups {
		counts[i] = g.Count
	}
	cols = append(cols, series.New(counts, series.Int, "Count"))
	for j, m := range s.Metrics {
		values := make([]float64, len(s.Groups))
		for i, g := range s.Groups {
			values[i] = g.Means[j]
		}
		cols = append(cols, dataset.FloatColumn(m, values))
	}
	return dataset.FromSeries(cols...)
}

// Pivot arranges one metric of a two-band summary as a matrix: rows follow
// the labels of By[0], columns those of By[1]. Missing cells are NaN.
func (s Summary) Pivot(metric string) (rows, cols []string, cells [][]float64) {
	if len(s.By) != 2 {
		return nil, nil, nil
	}
	present := func(k int, label string) bool {
		for _, g := range s.Groups {
			if g.Keys[k] == label {
				return true
			}
		}
		return false
	}
	for _, l := range s.Orders[0] {
		if present(0, l) {
			rows = append(rows, l)
		}
	}
	for _, l := range s.Orders[1] {
		if present(1, l) {
			cols = append(cols, l)
		}
	}
	cells = make([][]float64, len(rows))
	for i, r := range rows {
		cells[i] = make([]float64, len(cols))
		for j, c := range cols {
			cells[i][j], _ = s.Mean(metric, r, c)
		}
	}
	return rows, cols, cells
}
