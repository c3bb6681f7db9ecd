// Package experiment turns a table into a ranked comparison of regression
// models and serves predictions from the chosen one.
package experiment

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/devperf/dataset"
	"github.com/YuminosukeSato/devperf/modelselection"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/YuminosukeSato/devperf/pkg/log"
	"gonum.org/v1/gonum/mat"
)

// DefaultTarget is the column predicted by the pipeline.
const DefaultTarget = "Task_Success_Rate"

// FeatureSet is the numeric design matrix of a table, split into training
// and test rows.
type FeatureSet struct {
	Target string
	// Columns is the training feature schema, in table order.
	Columns []string
	// Dropped lists non-numeric columns left out of Columns.
	Dropped []string
	// RowsDropped counts rows removed because the target was missing.
	RowsDropped int

	Split  modelselection.Split
	XTrain *mat.Dense
	XTest  *mat.Dense
	YTrain []float64
	YTest  []float64
}

type splitOptions struct {
	testSize float64
	seed     uint64
}

// SplitOption configures SplitFeatures.
type SplitOption func(*splitOptions)

// WithTestSize sets the test fraction (default 0.2).
func WithTestSize(f float64) SplitOption {
	return func(o *splitOptions) { o.testSize = f }
}

// WithSeed sets the shuffle seed (default 42).
func WithSeed(seed uint64) SplitOption {
	return func(o *splitOptions) { o.seed = seed }
}

// SplitFeatures separates target from features and partitions the rows.
// Feature columns are every float or int column other than the target.
func SplitFeatures(t dataset.Table, target string, opts ...SplitOption) (*FeatureSet, error) {
	const op = "SplitFeatures"
	cfg := splitOptions{testSize: 0.2, seed: modelselection.DefaultSeed}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !t.Has(target) {
		return nil, errors.NewMissingColumnError(op, target)
	}

	fs := &FeatureSet{Target: target}
	for _, c := range t.Schema() {
		if c.Name == target {
			continue
		}
		if c.Kind.IsNumeric() {
			fs.Columns = append(fs.Columns, c.Name)
		} else {
			fs.Dropped = append(fs.Dropped, c.Name)
		}
	}
	if len(fs.Columns) == 0 {
		return nil, errors.NewEmptyFeatureSetError(op)
	}

	y, err := t.Floats(target)
	if err != nil {
		return nil, err
	}
	keep := make([]int, 0, len(y))
	for i, v := range y {
		if !math.IsNaN(v) {
			keep = append(keep, i)
		}
	}
	if fs.RowsDropped = len(y) - len(keep); fs.RowsDropped > 0 {
		errors.Warn(errors.NewColumnConversionWarning(target, fs.RowsDropped, "target", "float64",
			"rows with a missing target were dropped"))
		t = t.Subset(keep)
		y = modelselection.TakeValues(y, keep)
	}
	if t.Nrow() == 0 {
		return nil, errors.NewModelError(op, "no rows with a target value", errors.ErrEmptyData)
	}

	X, err := t.Matrix(fs.Columns)
	if err != nil {
		return nil, err
	}
	split, err := modelselection.TrainTestSplit(t.Nrow(), cfg.testSize, cfg.seed)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("%s: split %d rows", op, t.Nrow()))
	}

	fs.Split = split
	fs.XTrain = modelselection.TakeRows(X, split.TrainIndices)
	fs.XTest = modelselection.TakeRows(X, split.TestIndices)
	fs.YTrain = modelselection.TakeValues(y, split.TrainIndices)
	fs.YTest = modelselection.TakeValues(y, split.TestIndices)

	log.GetLoggerWithName("experiment").Info("Features split",
		log.PhaseKey, log.PhasePreprocessing,
		log.SamplesKey, t.Nrow(),
		log.FeaturesKey, len(fs.Columns),
		"train", len(split.TrainIndices),
		"test", len(split.TestIndices),
		log.RandomSeedKey, cfg.seed,
	)
	return fs, nil
}

// YTrainMatrix returns the training target as an n×1 matrix.
func (fs *FeatureSet) YTrainMatrix() *mat.Dense {
	return mat.NewDense(len(fs.YTrain), 1, append([]float64(nil), fs.YTrain...))
}
