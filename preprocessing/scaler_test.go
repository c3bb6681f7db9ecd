package preprocessing

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/devperf/core/model"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestStandardScaler_FitTransform(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})

	scaler := NewStandardScalerDefault()
	Xs, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error: %v", err)
	}

	r, c := Xs.Dims()
	for j := 0; j < c; j++ {
		var mean, sq float64
		for i := 0; i < r; i++ {
			mean += Xs.At(i, j)
		}
		mean /= float64(r)
		for i := 0; i < r; i++ {
			d := Xs.At(i, j) - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(r))

		if math.Abs(mean) > 1e-10 {
			t.Errorf("column %d mean = %v, want 0", j, mean)
		}
		if math.Abs(std-1) > 1e-10 {
			t.Errorf("column %d std = %v, want 1", j, std)
		}
	}

	// 母標準偏差: sqrt(1.25)
	if math.Abs(scaler.Scale[0]-math.Sqrt(1.25)) > 1e-12 {
		t.Errorf("Scale[0] = %v, want %v", scaler.Scale[0], math.Sqrt(1.25))
	}
}

func TestStandardScaler_ZeroVarianceColumn(t *testing.T) {
	train := mat.NewDense(3, 2, []float64{
		5, 1,
		5, 2,
		5, 3,
	})
	test := mat.NewDense(2, 2, []float64{
		9, 2,
		-1, 4,
	})

	scaler := NewStandardScalerDefault()
	if err := scaler.Fit(train); err != nil {
		t.Fatalf("Fit() error: %v", err)
	}

	for _, X := range []mat.Matrix{train, test} {
		out, err := scaler.Transform(X)
		if err != nil {
			t.Fatalf("Transform() error: %v", err)
		}
		r, _ := out.Dims()
		for i := 0; i < r; i++ {
			if v := out.At(i, 0); v != 0 {
				t.Errorf("constant column row %d = %v, want 0", i, v)
			}
		}
	}

	inv, err := scaler.InverseTransform(mat.NewDense(1, 2, []float64{0, 0}))
	if err != nil {
		t.Fatalf("InverseTransform() error: %v", err)
	}
	if inv.At(0, 0) != 5 || inv.At(0, 1) != 2 {
		t.Errorf("InverseTransform() = [%v %v], want [5 2]", inv.At(0, 0), inv.At(0, 1))
	}
}

func TestStandardScaler_InverseTransformRoundTrip(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{60, 75, 90})
	scaler := NewStandardScalerDefault()
	Xs, err := scaler.FitTransform(X)
	if err != nil {
		t.Fatalf("FitTransform() error: %v", err)
	}
	back, err := scaler.InverseTransform(Xs)
	if err != nil {
		t.Fatalf("InverseTransform() error: %v", err)
	}
	if !mat.EqualApprox(X, back, 1e-10) {
		t.Errorf("round trip = %v, want %v", mat.Formatted(back), mat.Formatted(X))
	}
}

func TestStandardScaler_Errors(t *testing.T) {
	scaler := NewStandardScalerDefault()

	_, err := scaler.Transform(mat.NewDense(1, 1, []float64{1}))
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Errorf("Transform() before Fit = %v, want NotFittedError", err)
	}

	if err := scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})); err != nil {
		t.Fatalf("Fit() error: %v", err)
	}
	_, err = scaler.Transform(mat.NewDense(1, 3, nil))
	var dim *errors.DimensionError
	if !errors.As(err, &dim) {
		t.Errorf("Transform() with wrong width = %v, want DimensionError", err)
	}
}

func TestStandardScaler_CloneIsUnfitted(t *testing.T) {
	scaler := NewStandardScaler(true, false)
	if err := scaler.Fit(mat.NewDense(2, 1, []float64{1, 3})); err != nil {
		t.Fatalf("Fit() error: %v", err)
	}

	clone := scaler.CloneTransformer().(*StandardScaler)
	if clone.IsFitted() {
		t.Error("clone should not be fitted")
	}
	if clone.WithMean != true || clone.WithStd != false {
		t.Errorf("clone params = %v, want with_mean=true with_std=false", clone.GetParams())
	}

	var _ model.InverseTransformer = scaler
}
