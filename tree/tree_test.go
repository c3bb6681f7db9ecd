package tree

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/devperf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// TestDecisionTreeRegressor_FitPredict は完全に成長した木が訓練データを再現することを確認する
func TestDecisionTreeRegressor_FitPredict(t *testing.T) {
	X := mat.NewDense(10, 1, nil)
	y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, float64(i*i))
	}

	dt := NewDecisionTreeRegressor()
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}
	pred, err := dt.Predict(X)
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	for i := 0; i < 10; i++ {
		if pred.At(i, 0) != y.At(i, 0) {
			t.Errorf("Sample %d: expected %v, got %v", i, y.At(i, 0), pred.At(i, 0))
		}
	}
	if dt.NodeCount() != 19 {
		t.Errorf("NodeCount() = %d, want 19", dt.NodeCount())
	}
}

func TestDecisionTreeRegressor_MaxDepth(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{0, 1, 2, 3, 5, 6, 7, 8})
	y := mat.NewDense(8, 1, []float64{1, 1, 1, 1.2, 3, 3, 3, 3.2})

	dt := NewDecisionTreeRegressor(WithMaxDepth(1))
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}
	if dt.Depth() != 1 {
		t.Errorf("Depth() = %d, want 1", dt.Depth())
	}
	if dt.nodes[0].threshold != 4 {
		t.Errorf("root threshold = %v, want 4", dt.nodes[0].threshold)
	}

	pred, err := dt.Predict(mat.NewDense(2, 1, []float64{-10, 100}))
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	if math.Abs(pred.At(0, 0)-1.05) > 1e-12 || math.Abs(pred.At(1, 0)-3.05) > 1e-12 {
		t.Errorf("predictions = [%v %v], want [1.05 3.05]", pred.At(0, 0), pred.At(1, 0))
	}
}

func TestDecisionTreeRegressor_ConstantTarget(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	y := mat.NewDense(4, 1, []float64{7, 7, 7, 7})

	dt := NewDecisionTreeRegressor()
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}
	if dt.NodeCount() != 1 {
		t.Errorf("NodeCount() = %d, want a single leaf", dt.NodeCount())
	}
	imp, err := dt.FeatureImportances()
	if err != nil {
		t.Fatalf("FeatureImportances() error: %v", err)
	}
	if imp[0] != 0 || imp[1] != 0 {
		t.Errorf("importances = %v, want zeros", imp)
	}
}

func TestDecisionTreeRegressor_FeatureImportance(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		0, 5,
		1, 5,
		2, 5,
		3, 5,
		4, 5,
		5, 5,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 10, 10, 10})

	dt := NewDecisionTreeRegressor()
	if err := dt.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}
	imp, err := dt.FeatureImportances()
	if err != nil {
		t.Fatalf("FeatureImportances() error: %v", err)
	}
	if imp[0] != 1 || imp[1] != 0 {
		t.Errorf("importances = %v, want [1 0]", imp)
	}
}

func TestDecisionTreeRegressor_Reproducible(t *testing.T) {
	// 2列が同一なので分割は乱数順の最初の列で決まる
	X := mat.NewDense(20, 3, nil)
	y := mat.NewDense(20, 1, nil)
	for i := 0; i < 20; i++ {
		v := float64((i * 7) % 20)
		X.Set(i, 0, v)
		X.Set(i, 1, v)
		X.Set(i, 2, float64(i%3))
		y.Set(i, 0, v*v+float64(i%3))
	}

	a := NewDecisionTreeRegressor(WithMaxDepth(3))
	b := NewDecisionTreeRegressor(WithMaxDepth(3))
	if err := a.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatal(err)
	}
	for i := range a.nodes {
		if a.nodes[i] != b.nodes[i] {
			t.Fatalf("node %d differs between runs: %+v vs %+v", i, a.nodes[i], b.nodes[i])
		}
	}
}

func TestDecisionTreeRegressor_FitSamples(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{0, 1, 2})
	y := mat.NewDense(3, 1, []float64{0, 10, 20})

	dt := NewDecisionTreeRegressor()
	if err := dt.FitSamples(X, y, []int{0, 0, 2}); err != nil {
		t.Fatalf("FitSamples() error: %v", err)
	}
	pred, err := dt.Predict(mat.NewDense(1, 1, []float64{0.2}))
	if err != nil {
		t.Fatal(err)
	}
	if pred.At(0, 0) != 0 {
		t.Errorf("pred = %v, want 0", pred.At(0, 0))
	}
}

func TestDecisionTreeRegressor_NotFitted(t *testing.T) {
	dt := NewDecisionTreeRegressor()
	_, err := dt.Predict(mat.NewDense(1, 1, nil))
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("Predict() before Fit = %v, want NotFittedError", err)
	}
	if _, err := dt.FeatureImportances(); err == nil {
		t.Error("FeatureImportances() before Fit should fail")
	}
}

func TestDecisionTreeRegressor_GetParamsAndClone(t *testing.T) {
	dt := NewDecisionTreeRegressor(WithMaxDepth(4), WithRandomState(7))
	clone := dt.Clone().(*DecisionTreeRegressor)
	if clone.IsFitted() {
		t.Error("clone should not be fitted")
	}
	p := clone.GetParams()
	if p["max_depth"] != 4 || p["random_state"] != uint64(7) {
		t.Errorf("clone params = %v", p)
	}

	err := NewDecisionTreeRegressor(WithMinSamplesSplit(1)).Fit(mat.NewDense(2, 1, nil), mat.NewDense(2, 1, nil))
	var ve *errors.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("Fit() with min_samples_split=1 = %v, want ValidationError", err)
	}
}
