package experiment

import (
	"math"

	"github.com/YuminosukeSato/devperf/core/model"
	"github.com/YuminosukeSato/devperf/dataset"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/YuminosukeSato/devperf/pkg/log"
	"github.com/go-gota/gota/series"
)

// Predictor serves predictions from one model fitted on a training split.
type Predictor struct {
	name    string
	model   model.Regressor
	columns []string
}

// NewPredictor clones the entry's template and fits it on the training
// rows of fs.
func NewPredictor(entry Entry, fs *FeatureSet) (*Predictor, error) {
	if fs == nil {
		return nil, errors.NewModelError("NewPredictor", "no feature set", errors.ErrEmptyData)
	}
	m := entry.Template.Clone()
	err := errors.SafeExecute(entry.Name+".Fit", func() error {
		return m.Fit(fs.XTrain, fs.YTrainMatrix())
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fit %s", entry.Name)
	}
	log.GetLoggerWithName("experiment.predictor").Info("Predictor ready",
		log.ModelNameKey, entry.Name,
		log.FeaturesKey, len(fs.Columns),
		log.SamplesKey, len(fs.YTrain),
	)
	return &Predictor{
		name:    entry.Name,
		model:   m,
		columns: append([]string(nil), fs.Columns...),
	}, nil
}

// Name returns the model name.
func (p *Predictor) Name() string { return p.name }

// Columns returns the training feature schema.
func (p *Predictor) Columns() []string { return append([]string(nil), p.columns...) }

// Predict returns one value per row of t, in row order. The table is
// reindexed onto the training schema first.
func (p *Predictor) Predict(t dataset.Table) ([]float64, error) {
	aligned, err := Reindex(t, p.columns)
	if err != nil {
		return nil, err
	}
	X, err := aligned.Matrix(p.columns)
	if err != nil {
		return nil, err
	}
	pred, err := p.model.Predict(X)
	if err != nil {
		return nil, errors.Wrapf(err, "predict with %s", p.name)
	}
	out := model.ColumnOf(pred)
	if err := errors.CheckFinite(p.name+".Predict", out, 0); err != nil {
		return nil, err
	}
	return out, nil
}

// Reindex aligns t to columns: the result has exactly those float columns
// in that order. Columns absent from t are all-NaN, columns not listed are
// dropped and cells that do not parse as numbers become NaN.
func Reindex(t dataset.Table, columns []string) (dataset.Table, error) {
	n := t.Nrow()
	if n == 0 {
		return dataset.Table{}, errors.NewModelError("Reindex", "empty data", errors.ErrEmptyData)
	}
	cols := make([]series.Series, 0, len(columns))
	var missing []string
	for _, name := range columns {
		if !t.Has(name) {
			missing = append(missing, name)
			values := make([]float64, n)
			for i := range values {
				values[i] = math.NaN()
			}
			cols = append(cols, dataset.FloatColumn(name, values))
			continue
		}
		values, coerced, err := t.Numeric(name)
		if err != nil {
			return dataset.Table{}, err
		}
		if coerced > 0 {
			errors.Warn(errors.NewColumnConversionWarning(name, coerced, "string", "float64", "unparseable cells set to NaN"))
		}
		cols = append(cols, dataset.FloatColumn(name, values))
	}
	if len(missing) > 0 {
		log.GetLoggerWithName("experiment.predictor").Debug("Columns filled with NaN",
			"missing", missing,
			log.SamplesKey, n,
		)
	}
	return dataset.FromSeries(cols...)
}
