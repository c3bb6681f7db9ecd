package errors

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "Fit",
			kind:     "invalid input",
			err:      fmt.Errorf("test error"),
			wantMsg:  "devperf: Fit: invalid input: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "Predict",
			kind:     "not fitted",
			err:      nil,
			wantMsg:  "devperf: Predict: not fitted",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 4, 3, 1)

	want := "devperf: Predict: dimension mismatch on axis 1 (features). Expected 4, got 3"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("KNeighborsRegressor", "Predict")

	want := "devperf: KNeighborsRegressor: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestSchemaError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
		column  string
	}{
		{
			name:    "missing target",
			err:     NewMissingColumnError("SplitFeatures", "Task_Success_Rate"),
			wantMsg: "devperf: SplitFeatures: column 'Task_Success_Rate' not found in table",
			column:  "Task_Success_Rate",
		},
		{
			name:    "empty feature set",
			err:     NewEmptyFeatureSetError("SplitFeatures"),
			wantMsg: "devperf: SplitFeatures: empty feature set: no numeric feature columns remain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.wantMsg)
			}
			if !IsSchemaError(tt.err) {
				t.Fatal("IsSchemaError() = false, want true")
			}
			wrapped := Wrap(tt.err, "run pipeline")
			var schemaErr *SchemaError
			if !As(wrapped, &schemaErr) {
				t.Fatal("wrapped error should still be a *SchemaError")
			}
			if schemaErr.Column != tt.column {
				t.Errorf("Column = %q, want %q", schemaErr.Column, tt.column)
			}
		})
	}

	if IsSchemaError(NewValueError("op", "msg")) {
		t.Error("ValueError must not be reported as SchemaError")
	}
}

func TestWarnRoutesToZerologFunc(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	SetZerologWarnFunc(func(w error) {
		event := logger.Warn()
		if m, ok := w.(zerolog.LogObjectMarshaler); ok {
			event = event.EmbedObject(m)
		}
		event.Msg(w.Error())
	})
	defer SetZerologWarnFunc(nil)

	Warn(NewDomainWarning("Sleep_Hours", "non-negative", 3))

	out := buf.String()
	for _, want := range []string{`"column":"Sleep_Hours"`, `"count":3`, `"type":"DomainWarning"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q does not contain %s", out, want)
		}
	}
}

func TestWarnFallsBackToHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(func(error) {})

	Warn(NewColumnConversionWarning("Commits", 2, "string", "float64", "unparsable value"))

	if len(got) != 1 {
		t.Fatalf("handler received %d warnings, want 1", len(got))
	}
	want := "column 'Commits': 2 value(s) converted from string to float64. Reason: unparsable value"
	if got[0].Error() != want {
		t.Errorf("warning = %q, want %q", got[0].Error(), want)
	}
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Predict", 10, 5)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}
	if !strings.Contains(wrapped.Error(), "in Predict: expected 10, got 5") {
		t.Errorf("unexpected message %q", wrapped.Error())
	}
}

func TestErrorChaining(t *testing.T) {
	err1 := fmt.Errorf("base error")
	err2 := Wrap(err1, "wrapped once")
	err3 := NewModelError("Operation", "failed", err2)

	if !strings.Contains(err3.Error(), "base error") {
		t.Error("Expected error chain to contain base error")
	}

	formatted := fmt.Sprintf("%+v", err3)
	if !strings.Contains(formatted, "errors_test.go") {
		t.Error("Expected detailed error to contain stack trace")
	}
}

func TestCheckFinite(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		wantErr bool
		wantLen int
	}{
		{name: "finite", values: []float64{0, -1.5, 3}},
		{name: "empty", values: nil},
		{name: "nan", values: []float64{1, math.NaN(), 2}, wantErr: true, wantLen: 1},
		{name: "inf", values: []float64{math.Inf(1), math.Inf(-1)}, wantErr: true, wantLen: 2},
		{name: "capped", values: make15NaN(), wantErr: true, wantLen: maxReported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFinite("SVR.Fit", tt.values, 3)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckFinite() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var nie *NumericalInstabilityError
			if !As(err, &nie) {
				t.Fatalf("error type = %T, want *NumericalInstabilityError", err)
			}
			if len(nie.Values) != tt.wantLen {
				t.Errorf("reported %d values, want %d", len(nie.Values), tt.wantLen)
			}
			if nie.Iteration != 3 || nie.Operation != "SVR.Fit" {
				t.Errorf("got op=%q iteration=%d", nie.Operation, nie.Iteration)
			}
		})
	}
}

func make15NaN() []float64 {
	out := make([]float64, 15)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func TestCheckMatrix(t *testing.T) {
	if err := CheckMatrix("Pipeline.Fit", mat.NewDense(2, 2, []float64{1, 2, 3, 4}), 0); err != nil {
		t.Fatalf("finite matrix: %v", err)
	}
	err := CheckMatrix("Pipeline.Fit", mat.NewDense(2, 2, []float64{1, 2, math.NaN(), 4}), 0)
	if err == nil {
		t.Fatal("expected an error for a NaN cell")
	}
	if !strings.Contains(err.Error(), "Pipeline.Fit") {
		t.Errorf("error %q does not name the operation", err)
	}
}
