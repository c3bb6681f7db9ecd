package report

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/devperf/dataset"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Labeled is a band evaluated over a table. An empty label marks a row
// that falls in no group.
type Labeled struct {
	Name   string
	Labels []string
	// Order lists the band's labels in rule order.
	Order []string
}

// Apply labels every row of t.
func (b Band) Apply(t dataset.Table) (Labeled, error) {
	values, err := t.Floats(b.Source)
	if err != nil {
		return Labeled{}, err
	}

	thresholds := make([]float64, len(b.Rules))
	for i, r := range b.Rules {
		if r.Value != nil {
			thresholds[i] = *r.Value
			continue
		}
		thresholds[i] = statistic(r.Stat, values)
	}

	out := Labeled{Name: b.Name, Labels: make([]string, len(values)), Order: b.order()}
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if b.Within != nil && !(v > b.Within.Gt && v <= b.Within.Le) {
			continue
		}
		out.Labels[i] = b.Otherwise
		for j, r := range b.Rules {
			if compare(r.Op, v, thresholds[j]) {
				out.Labels[i] = r.Label
				break
			}
		}
	}
	return out, nil
}

func (b Band) order() []string {
	seen := map[string]bool{}
	var order []string
	add := func(l string) {
		if l != "" && !seen[l] {
			seen[l] = true
			order = append(order, l)
		}
	}
	for _, r := range b.Rules {
		add(r.Label)
	}
	add(b.Otherwise)
	return order
}

func compare(op string, v, threshold float64) bool {
	switch op {
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	}
	return false
}

// statistic computes median or mean over the present values.
func statistic(name string, values []float64) float64 {
	present := dropNaN(values)
	if len(present) == 0 {
		return math.NaN()
	}
	switch name {
	case "median":
		return median(present)
	default:
		return stat.Mean(present, nil)
	}
}

// median averages the two middle values of an even-length sample.
func median(values []float64) float64 {
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// applyBands evaluates every band whose source column exists.
func applyBands(t dataset.Table, bands []Band) (map[string]Labeled, []string, error) {
	out := make(map[string]Labeled, len(bands))
	var skipped []string
	for _, b := range bands {
		if !t.Has(b.Source) {
			skipped = append(skipped, b.Name)
			continue
		}
		l, err := b.Apply(t)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "report: band %s", b.Name)
		}
		out[b.Name] = l
	}
	return out, skipped, nil
}
