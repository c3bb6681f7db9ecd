// Package telemetry collects run metrics in a Prometheus registry and
// exports them as a node_exporter textfile.
package telemetry

import (
	"os"
	"path/filepath"
	"time"

	"github.com/YuminosukeSato/devperf/cleaning"
	"github.com/YuminosukeSato/devperf/metrics"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "devperf"

// Pipeline stages reported by SetRows.
const (
	StageLoaded  = "loaded"
	StageCleaned = "cleaned"
	StageTrain   = "train"
	StageTest    = "test"
)

// Metrics is the metric set of one run. Each Metrics owns its registry so
// runs never share state.
type Metrics struct {
	registry *prometheus.Registry

	// fitDuration measures model training time.
	// Labels: model
	fitDuration *prometheus.HistogramVec

	// score holds the held-out metrics of the last evaluation.
	// Labels: model, metric (mae, rmse, r2)
	score *prometheus.GaugeVec

	// repaired counts cells changed by the cleaner.
	// Labels: column, reason (coerced, negative, imputed, clipped)
	repaired *prometheus.CounterVec

	duplicates prometheus.Counter

	// rows tracks table size per stage.
	// Labels: stage
	rows *prometheus.GaugeVec

	runInfo *prometheus.GaugeVec
}

// New creates the metric set and tags it with runID.
func New(runID string) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	m := &Metrics{
		registry: reg,
		fitDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "fit_duration_seconds",
			Help:      "Model fit duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"model"}),
		score: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "score",
			Help:      "Held-out score of a model",
		}, []string{"model", "metric"}),
		repaired: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cleaning",
			Name:      "repaired_cells_total",
			Help:      "Cells changed by the cleaner",
		}, []string{"column", "reason"}),
		duplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cleaning",
			Name:      "duplicate_rows_total",
			Help:      "Duplicate rows dropped by the cleaner",
		}),
		rows: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "data",
			Name:      "rows",
			Help:      "Table rows per pipeline stage",
		}, []string{"stage"}),
		runInfo: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_info",
			Help:      "Constant 1, labelled with the run id",
		}, []string{"run_id"}),
	}
	m.runInfo.WithLabelValues(runID).Set(1)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFit records a model fit duration.
func (m *Metrics) ObserveFit(model string, d time.Duration) {
	m.fitDuration.WithLabelValues(model).Observe(d.Seconds())
}

// ObserveScores records a model's held-out scores.
func (m *Metrics) ObserveScores(model string, s metrics.Scores) {
	m.score.WithLabelValues(model, "mae").Set(s.MAE)
	m.score.WithLabelValues(model, "rmse").Set(s.RMSE)
	m.score.WithLabelValues(model, "r2").Set(s.R2)
}

// ObserveCleaning adds the counts of a cleaning report.
func (m *Metrics) ObserveCleaning(r cleaning.Report) {
	for _, c := range r.Columns {
		m.repaired.WithLabelValues(c.Column, "coerced").Add(float64(c.Coerced))
		m.repaired.WithLabelValues(c.Column, "negative").Add(float64(c.Negative))
		m.repaired.WithLabelValues(c.Column, "imputed").Add(float64(c.Imputed))
		m.repaired.WithLabelValues(c.Column, "clipped").Add(float64(c.Clipped))
	}
	m.duplicates.Add(float64(r.DuplicatesDropped))
	m.SetRows(StageLoaded, r.RowsIn)
	m.SetRows(StageCleaned, r.RowsOut)
}

// SetRows records the row count of a stage.
func (m *Metrics) SetRows(stage string, n int) {
	m.rows.WithLabelValues(stage).Set(float64(n))
}

// WriteTextfile writes every metric in the text exposition format. The
// directory is created when missing.
func (m *Metrics) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "telemetry: create %s", dir)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Wrapf(err, "telemetry: write %s", path)
	}
	return nil
}
