package errors

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// maxReported はエラーに含める非有限値の上限
const maxReported = 10

// CheckFinite は values に NaN または Inf があればNumericalInstabilityErrorを返す
// エラーには非有限値のみを先頭から maxReported 個まで含める。
func CheckFinite(op string, values []float64, iteration int) error {
	var bad []float64
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			bad = append(bad, v)
			if len(bad) == maxReported {
				break
			}
		}
	}
	if len(bad) > 0 {
		return NewNumericalInstabilityError(op, bad, iteration)
	}
	return nil
}

// CheckMatrix は行列の全要素を CheckFinite と同じ基準で検査する
func CheckMatrix(op string, m mat.Matrix, iteration int) error {
	rows, cols := m.Dims()
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, m)
		if err := CheckFinite(op, row, iteration); err != nil {
			return err
		}
	}
	return nil
}
