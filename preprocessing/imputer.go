package preprocessing

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/devperf/core/model"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// SimpleImputer は欠損値（NaN）を列ごとの中央値で補完する
// 中央値は学習データのみから計算され、以後のTransformで再計算されない。
type SimpleImputer struct {
	state *model.StateManager

	// Statistics は各列の補完値
	Statistics []float64
}

// NewSimpleImputer は中央値補完を行うSimpleImputerを作成する
func NewSimpleImputer() *SimpleImputer {
	return &SimpleImputer{state: model.NewStateManager("SimpleImputer")}
}

// Fit は各列の非欠損値の中央値を計算する。
// 全て欠損の列は0で補完し、DataConversionWarningを発行する。
func (imp *SimpleImputer) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("SimpleImputer.Fit", "empty data", errors.ErrEmptyData)
	}

	imp.Statistics = make([]float64, c)
	col := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		col = col[:0]
		for i := 0; i < r; i++ {
			if v := X.At(i, j); !math.IsNaN(v) {
				col = append(col, v)
			}
		}
		if len(col) == 0 {
			errors.Warn(errors.NewColumnConversionWarning(
				fmt.Sprintf("feature[%d]", j), r, "missing", "float64", "no observed values, imputing 0"))
			continue
		}
		imp.Statistics[j] = median(col)
	}

	imp.state.SetFitted(c, r)
	return nil
}

// median はスライスを並べ替えて中央値を返す（偶数長は中央2値の平均）
func median(values []float64) float64 {
	sort.Float64s(values)
	n := len(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

// Transform は欠損値を学習済みの中央値で置き換える
func (imp *SimpleImputer) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := imp.state.RequireFeatures("Transform", X); err != nil {
		return nil, err
	}

	r, c := X.Dims()
	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := X.At(i, j)
			if math.IsNaN(v) {
				v = imp.Statistics[j]
			}
			result.Set(i, j, v)
		}
	}
	return result, nil
}

// FitTransform はFitとTransformを続けて実行する
func (imp *SimpleImputer) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := imp.Fit(X); err != nil {
		return nil, err
	}
	return imp.Transform(X)
}

// IsFitted は学習済みかどうかを返す
func (imp *SimpleImputer) IsFitted() bool {
	return imp.state.IsFitted()
}

// CloneTransformer は未学習のSimpleImputerを返す
func (imp *SimpleImputer) CloneTransformer() model.Transformer {
	return NewSimpleImputer()
}

// GetParams はパラメータを取得する
func (imp *SimpleImputer) GetParams() map[string]interface{} {
	return map[string]interface{}{"strategy": "median"}
}
