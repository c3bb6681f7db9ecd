package model

import (
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// CheckFitInput は学習データの形状を検証する
// X は n×p（n, p ≥ 1）、y は n×1 でなければならない。
func CheckFitInput(op string, X, y mat.Matrix) (rows, cols int, err error) {
	rows, cols = X.Dims()
	if rows == 0 || cols == 0 {
		return 0, 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	yRows, yCols := y.Dims()
	if yRows != rows {
		return 0, 0, errors.NewDimensionError(op, rows, yRows, 0)
	}
	if yCols != 1 {
		return 0, 0, errors.NewDimensionError(op, 1, yCols, 1)
	}
	return rows, cols, nil
}

// ColumnOf は n×1 行列の値をスライスとして返す
func ColumnOf(y mat.Matrix) []float64 {
	r, _ := y.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = y.At(i, 0)
	}
	return out
}
