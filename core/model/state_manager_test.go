package model

import (
	"testing"

	"github.com/YuminosukeSato/devperf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestStateManager(t *testing.T) {
	s := NewStateManager("KNeighborsRegressor")

	if s.IsFitted() {
		t.Fatal("new StateManager must not be fitted")
	}
	err := s.RequireFitted("Predict")
	var nf *errors.NotFittedError
	if !errors.As(err, &nf) {
		t.Fatalf("RequireFitted() = %v, want NotFittedError", err)
	}
	if nf.ModelName != "KNeighborsRegressor" || nf.Method != "Predict" {
		t.Errorf("unexpected NotFittedError %+v", nf)
	}

	s.SetFitted(3, 80)
	if f, n := s.Dimensions(); f != 3 || n != 80 {
		t.Errorf("Dimensions() = (%d, %d), want (3, 80)", f, n)
	}
	if err := s.RequireFeatures("Predict", mat.NewDense(2, 3, nil)); err != nil {
		t.Errorf("RequireFeatures() unexpected error: %v", err)
	}

	err = s.RequireFeatures("Predict", mat.NewDense(2, 4, nil))
	var dim *errors.DimensionError
	if !errors.As(err, &dim) {
		t.Fatalf("RequireFeatures() = %v, want DimensionError", err)
	}
	if dim.Expected != 3 || dim.Got != 4 {
		t.Errorf("unexpected DimensionError %+v", dim)
	}

	s.Reset()
	if s.IsFitted() {
		t.Error("Reset() should clear the fitted flag")
	}
}
