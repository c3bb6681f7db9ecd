package experiment

import (
	"fmt"

	"github.com/YuminosukeSato/devperf/compose"
	"github.com/YuminosukeSato/devperf/core/model"
	"github.com/YuminosukeSato/devperf/ensemble"
	"github.com/YuminosukeSato/devperf/neighbors"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/YuminosukeSato/devperf/preprocessing"
	"github.com/YuminosukeSato/devperf/svm"
	"github.com/YuminosukeSato/devperf/tree"
)

// Registered model names.
const (
	ModelKNN          = "KNN"
	ModelSVR          = "SVM(SVR-RBF)"
	ModelDecisionTree = "DecisionTree"
	ModelRandomForest = "RandomForest"
)

// Entry is a named, unfitted model template. Evaluation and prediction
// always work on clones of Template.
type Entry struct {
	Name     string
	Template model.ClonableRegressor
}

// Bank is an ordered model registry.
type Bank []Entry

// DefaultBank returns the four candidate models. Every template imputes
// missing features with the training median and standardizes them before
// the regressor sees them.
func DefaultBank() Bank {
	return Bank{
		{Name: ModelKNN, Template: withPreprocessing(
			neighbors.NewKNeighborsRegressor(neighbors.WithNNeighbors(7)),
		)},
		{Name: ModelSVR, Template: withPreprocessing(
			compose.NewTransformedTargetRegressor(
				svm.NewSVR(svm.WithC(10), svm.WithEpsilon(0.1)),
				func() model.InverseTransformer { return preprocessing.NewStandardScalerDefault() },
			),
		)},
		{Name: ModelDecisionTree, Template: withPreprocessing(
			tree.NewDecisionTreeRegressor(tree.WithRandomState(42)),
		)},
		{Name: ModelRandomForest, Template: withPreprocessing(
			ensemble.NewRandomForestRegressor(
				ensemble.WithNEstimators(300),
				ensemble.WithRandomState(42),
			),
		)},
	}
}

func withPreprocessing(reg model.ClonableRegressor) *compose.Pipeline {
	return compose.NewPipeline(preprocessing.NewPreprocessor(), reg)
}

// Names returns the model names in registry order.
func (b Bank) Names() []string {
	names := make([]string, len(b))
	for i, e := range b {
		names[i] = e.Name
	}
	return names
}

// Lookup finds a model by name.
func (b Bank) Lookup(name string) (Entry, error) {
	for _, e := range b {
		if e.Name == name {
			return e, nil
		}
	}
	return Entry{}, errors.Wrap(errors.ErrUnknownModel, fmt.Sprintf("model %q (known: %v)", name, b.Names()))
}
