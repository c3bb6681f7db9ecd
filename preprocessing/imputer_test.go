package preprocessing

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/devperf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestSimpleImputer_Median(t *testing.T) {
	nan := math.NaN()
	train := mat.NewDense(4, 2, []float64{
		1, 10,
		nan, 20,
		3, nan,
		8, 40,
	})

	imp := NewSimpleImputer()
	if err := imp.Fit(train); err != nil {
		t.Fatalf("Fit() error: %v", err)
	}
	if imp.Statistics[0] != 3 || imp.Statistics[1] != 20 {
		t.Errorf("Statistics = %v, want [3 20]", imp.Statistics)
	}

	// テストデータの欠損も学習時の中央値で埋める
	test := mat.NewDense(2, 2, []float64{
		nan, nan,
		100, 200,
	})
	out, err := imp.Transform(test)
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	want := mat.NewDense(2, 2, []float64{
		3, 20,
		100, 200,
	})
	if !mat.Equal(out, want) {
		t.Errorf("Transform() = %v, want %v", mat.Formatted(out), mat.Formatted(want))
	}
	if imp.Statistics[0] != 3 {
		t.Error("Transform() must not refit statistics")
	}
}

func TestSimpleImputer_EvenCountMedian(t *testing.T) {
	imp := NewSimpleImputer()
	if err := imp.Fit(mat.NewDense(4, 1, []float64{4, 1, 3, 2})); err != nil {
		t.Fatalf("Fit() error: %v", err)
	}
	if imp.Statistics[0] != 2.5 {
		t.Errorf("median = %v, want 2.5", imp.Statistics[0])
	}
}

func TestSimpleImputer_AllMissingColumn(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	nan := math.NaN()
	imp := NewSimpleImputer()
	out, err := imp.FitTransform(mat.NewDense(2, 2, []float64{nan, 1, nan, 2}))
	if err != nil {
		t.Fatalf("FitTransform() error: %v", err)
	}
	if out.At(0, 0) != 0 || out.At(1, 0) != 0 {
		t.Errorf("all-missing column = [%v %v], want zeros", out.At(0, 0), out.At(1, 0))
	}
	if len(warnings) != 1 {
		t.Errorf("got %d warnings, want 1", len(warnings))
	}
}
