package neighbors

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/devperf/core/model"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestKNeighborsRegressor_Predict(t *testing.T) {
	X := mat.NewDense(5, 1, []float64{0, 1, 2, 10, 11})
	y := mat.NewDense(5, 1, []float64{0, 1, 2, 10, 11})

	knn := NewKNeighborsRegressor(WithNNeighbors(2))
	if err := knn.Fit(X, y); err != nil {
		t.Fatalf("Fit() error: %v", err)
	}

	pred, err := knn.Predict(mat.NewDense(2, 1, []float64{0.4, 10.6}))
	if err != nil {
		t.Fatalf("Predict() error: %v", err)
	}
	want := []float64{0.5, 10.5}
	for i, w := range want {
		if math.Abs(pred.At(i, 0)-w) > 1e-12 {
			t.Errorf("pred[%d] = %v, want %v", i, pred.At(i, 0), w)
		}
	}
}

func TestKNeighborsRegressor_KClampedToTrainingSize(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{0, 0, 1, 1, 2, 2})
	y := mat.NewDense(3, 1, []float64{3, 6, 9})

	knn := NewKNeighborsRegressor()
	if err := knn.Fit(X, y); err != nil {
		t.Fatalf("Fit() error: %v", err)
	}
	pred, err := knn.Predict(mat.NewDense(1, 2, []float64{100, 100}))
	if err != nil {
		t.Fatalf("Predict() error: %v", err)
	}
	if pred.At(0, 0) != 6 {
		t.Errorf("pred = %v, want mean of all targets 6", pred.At(0, 0))
	}
}

func TestKNeighborsRegressor_ManyRowsParallel(t *testing.T) {
	n := 300
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, 2*float64(i))
	}
	knn := NewKNeighborsRegressor(WithNNeighbors(1))
	if err := knn.Fit(X, y); err != nil {
		t.Fatalf("Fit() error: %v", err)
	}
	pred, err := knn.Predict(X)
	if err != nil {
		t.Fatalf("Predict() error: %v", err)
	}
	if !mat.Equal(pred, y) {
		t.Error("1-NN on the training set should reproduce the targets")
	}
}

func TestKNeighborsRegressor_Errors(t *testing.T) {
	knn := NewKNeighborsRegressor()
	_, err := knn.Predict(mat.NewDense(1, 1, nil))
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("Predict() before Fit = %v, want NotFittedError", err)
	}

	err = knn.Fit(mat.NewDense(3, 1, nil), mat.NewDense(2, 1, nil))
	var dim *errors.DimensionError
	if !errors.As(err, &dim) {
		t.Errorf("Fit() with mismatched rows = %v, want DimensionError", err)
	}

	err = NewKNeighborsRegressor(WithNNeighbors(0)).Fit(mat.NewDense(1, 1, nil), mat.NewDense(1, 1, nil))
	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("Fit() with k=0 = %v, want ValidationError", err)
	}
}

func TestKNeighborsRegressor_Clone(t *testing.T) {
	knn := NewKNeighborsRegressor(WithNNeighbors(3))
	if err := knn.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewDense(3, 1, []float64{1, 2, 3})); err != nil {
		t.Fatalf("Fit() error: %v", err)
	}

	var c model.Regressor = knn.Clone()
	clone := c.(*KNeighborsRegressor)
	if clone.IsFitted() {
		t.Error("clone should not be fitted")
	}
	if clone.GetParams()["n_neighbors"] != 3 {
		t.Errorf("clone n_neighbors = %v, want 3", clone.GetParams()["n_neighbors"])
	}
}
