package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/YuminosukeSato/devperf/dataset"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/YuminosukeSato/devperf/pkg/log"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Result lists what a run produced.
type Result struct {
	Dir         string
	Files       []string
	Summaries   []Summary
	Correlation *Correlation
	// Filtered maps filter names to their row counts.
	Filtered map[string]int
	// Skipped names bands and analyses whose columns were absent.
	Skipped []string
}

// Runner executes a Spec into an output directory.
type Runner struct {
	spec   *Spec
	dir    string
	charts bool
	logger log.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithCharts toggles PNG rendering (default true).
func WithCharts(enabled bool) RunnerOption {
	return func(r *Runner) { r.charts = enabled }
}

// NewRunner validates spec and binds it to dir.
func NewRunner(spec *Spec, dir string, opts ...RunnerOption) (*Runner, error) {
	if spec == nil {
		spec = DefaultSpec()
	} else if err := spec.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{spec: spec, dir: dir, charts: true, logger: log.GetLoggerWithName("report")}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run evaluates bands on t and writes every analysis, filter, export and
// the correlation matrix. Analyses that reference a missing column are
// skipped and reported in Result.Skipped.
func (r *Runner) Run(t dataset.Table) (*Result, error) {
	if t.Nrow() == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "report: run")
	}
	res := &Result{Dir: r.dir, Filtered: map[string]int{}}

	bands, skipped, err := applyBands(t, r.spec.Bands)
	if err != nil {
		return nil, err
	}
	res.Skipped = append(res.Skipped, skipped...)

	for _, a := range r.spec.Analyses {
		if err := r.analysis(t, a, bands, res); err != nil {
			return nil, errors.Wrapf(err, "report: analysis %s", a.Name)
		}
	}
	for _, f := range r.spec.Filters {
		if err := r.filter(t, f, res); err != nil {
			return nil, errors.Wrapf(err, "report: filter %s", f.Name)
		}
	}
	for _, e := range r.spec.Exports {
		if err := r.export(t, e, bands, res); err != nil {
			return nil, errors.Wrapf(err, "report: export %s", e.Name)
		}
	}
	if r.spec.Correlation {
		if err := r.correlation(t, res); err != nil {
			return nil, err
		}
	}

	r.logger.Info("Report written",
		log.OperationKey, log.OperationReport,
		log.PathKey, r.dir,
		"files", len(res.Files),
		"skipped", len(res.Skipped),
	)
	return res, nil
}

func (r *Runner) path(name string) string {
	return filepath.Join(r.dir, name)
}

func (r *Runner) analysis(t dataset.Table, a Analysis, bands map[string]Labeled, res *Result) error {
	by := make([]Labeled, 0, len(a.By))
	for _, name := range a.By {
		l, ok := bands[name]
		if !ok {
			r.skip(res, a.Name, "band "+name)
			return nil
		}
		by = append(by, l)
	}
	for _, m := range a.Metrics {
		if !t.Has(m) {
			r.skip(res, a.Name, "column "+m)
			return nil
		}
	}

	var summary Summary
	if len(by) > 0 {
		var err error
		summary, err = Summarize(a.Name, t, by, a.Metrics)
		if err != nil {
			return err
		}
		st, err := summary.Table()
		if err != nil {
			return err
		}
		if err := r.writeCSV(st, a.Name+".csv", res); err != nil {
			return err
		}
		res.Summaries = append(res.Summaries, summary)
	}

	if !r.charts {
		return nil
	}
	for _, c := range a.Charts {
		if c.Type != ChartHistogram && len(summary.Groups) == 0 {
			continue
		}
		file := r.path(chartFile(a.Name, c))
		var err error
		switch c.Type {
		case ChartBar:
			labels := make([]string, len(summary.Groups))
			values := make([]float64, len(summary.Groups))
			for i, g := range summary.Groups {
				labels[i] = g.Keys[0]
				values[i], _ = summary.Mean(c.Metric, g.Keys...)
			}
			err = saveBar(file, c, labels, values)
		case ChartGroupedBar:
			rows, cols, cells := summary.Pivot(c.Metric)
			err = saveGroupedBar(file, c, rows, cols, cells)
		case ChartHistogram:
			if !t.Has(c.Column) {
				r.skip(res, a.Name, "column "+c.Column)
				continue
			}
			var values []float64
			if values, err = t.Floats(c.Column); err == nil {
				err = saveHistogram(file, c, values)
			}
		}
		if err != nil {
			return err
		}
		res.Files = append(res.Files, file)
	}
	return nil
}

func (r *Runner) skip(res *Result, analysis, reason string) {
	res.Skipped = append(res.Skipped, analysis)
	r.logger.Warn("Analysis skipped",
		log.OperationKey, log.OperationReport,
		"analysis", analysis,
		"missing", reason,
	)
}

func chartFile(analysis string, c Chart) string {
	subject := c.Metric
	if c.Type == ChartHistogram {
		subject = c.Column
	}
	return fmt.Sprintf("%s_%s_%s.png", analysis, c.Type, strings.ToLower(subject))
}

var comparators = map[string]series.Comparator{
	"<":  series.Less,
	"<=": series.LessEq,
	">":  series.Greater,
	">=": series.GreaterEq,
	"==": series.Eq,
	"!=": series.Neq,
}

func (r *Runner) filter(t dataset.Table, f Filter, res *Result) error {
	values, err := t.Floats(f.Column)
	if err != nil {
		return err
	}
	matches := 0
	for _, v := range values {
		if compare(f.Op, v, f.Value) {
			matches++
		}
	}

	out := t.Subset(nil)
	if matches > 0 {
		df := t.DataFrame().Filter(dataframe.F{
			Colname:    f.Column,
			Comparator: comparators[f.Op],
			Comparando: f.Value,
		})
		if out, err = dataset.FromDataFrame(df); err != nil {
			return err
		}
	}
	res.Filtered[f.Name] = out.Nrow()
	return r.writeCSV(out, "filter_"+f.Name+".csv", res)
}

func (r *Runner) export(t dataset.Table, e Export, bands map[string]Labeled, res *Result) error {
	out := t
	for _, name := range e.Bands {
		l, ok := bands[name]
		if !ok {
			r.skip(res, e.Name, "band "+name)
			return nil
		}
		var err error
		if out, err = out.WithStrings(name, l.Labels); err != nil {
			return err
		}
	}
	return r.writeCSV(out, e.Name+".csv", res)
}

func (r *Runner) correlation(t dataset.Table, res *Result) error {
	corr, err := Correlate(t)
	if err != nil {
		return errors.Wrap(err, "report: correlation")
	}
	res.Correlation = &corr
	ct, err := corr.Table()
	if err != nil {
		return err
	}
	if err := r.writeCSV(ct, "correlation_matrix.csv", res); err != nil {
		return err
	}
	if !r.charts {
		return nil
	}
	file := r.path("correlation_heatmap.png")
	if err := saveHeatmap(file, corr); err != nil {
		return err
	}
	res.Files = append(res.Files, file)
	return nil
}

func (r *Runner) writeCSV(t dataset.Table, name string, res *Result) error {
	file := r.path(name)
	if err := t.SaveCSV(file); err != nil {
		return err
	}
	res.Files = append(res.Files, file)
	return nil
}
