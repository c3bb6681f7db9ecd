// Package neighbors はk近傍法による回帰を提供する
package neighbors

import (
	"fmt"
	"sort"

	"github.com/YuminosukeSato/devperf/core/model"
	"github.com/YuminosukeSato/devperf/core/parallel"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/YuminosukeSato/devperf/pkg/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KNeighborsRegressor は一様重み・ユークリッド距離のk近傍回帰
// 予測値は最も近いk個の訓練サンプルの目的変数の平均。
type KNeighborsRegressor struct {
	state *model.StateManager

	// ハイパーパラメータ
	nNeighbors int

	// 学習済みデータ
	xTrain [][]float64
	yTrain []float64

	logger log.Logger
}

// Option はKNeighborsRegressorの設定オプション
type Option func(*KNeighborsRegressor)

// WithNNeighbors は近傍数kを設定する（デフォルト: 7）
func WithNNeighbors(k int) Option {
	return func(r *KNeighborsRegressor) {
		r.nNeighbors = k
	}
}

// NewKNeighborsRegressor は新しいKNeighborsRegressorを作成する
func NewKNeighborsRegressor(options ...Option) *KNeighborsRegressor {
	r := &KNeighborsRegressor{
		state:      model.NewStateManager("KNeighborsRegressor"),
		nNeighbors: 7,
		logger:     log.GetLoggerWithName("KNeighborsRegressor"),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Fit は訓練データを保持する
func (r *KNeighborsRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "KNeighborsRegressor.Fit")

	if r.nNeighbors < 1 {
		return errors.NewValidationError("n_neighbors", "must be >= 1", r.nNeighbors)
	}
	rows, cols, err := model.CheckFitInput("KNeighborsRegressor.Fit", X, y)
	if err != nil {
		return err
	}

	r.xTrain = make([][]float64, rows)
	for i := 0; i < rows; i++ {
		row := make([]float64, cols)
		mat.Row(row, i, X)
		r.xTrain[i] = row
	}
	r.yTrain = model.ColumnOf(y)

	r.state.SetFitted(cols, rows)
	r.logger.Debug("Model fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"k", r.effectiveK(),
	)
	return nil
}

// effectiveK は訓練サンプル数を超えないk
func (r *KNeighborsRegressor) effectiveK() int {
	if r.nNeighbors > len(r.yTrain) {
		return len(r.yTrain)
	}
	return r.nNeighbors
}

// Predict は各行についてk近傍の目的変数の平均を返す
func (r *KNeighborsRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := r.state.RequireFeatures("Predict", X); err != nil {
		return nil, err
	}

	rows, cols := X.Dims()
	k := r.effectiveK()
	out := mat.NewDense(rows, 1, nil)

	parallel.ParallelizeWithThreshold(rows, 64, func(start, end int) {
		query := make([]float64, cols)
		order := make([]int, len(r.xTrain))
		dist := make([]float64, len(r.xTrain))
		for i := start; i < end; i++ {
			mat.Row(query, i, X)
			for j, train := range r.xTrain {
				dist[j] = floats.Distance(query, train, 2)
				order[j] = j
			}
			// 同距離は訓練データ内の順序を優先する
			sort.SliceStable(order, func(a, b int) bool {
				return dist[order[a]] < dist[order[b]]
			})
			var sum float64
			for _, j := range order[:k] {
				sum += r.yTrain[j]
			}
			out.Set(i, 0, sum/float64(k))
		}
	})
	return out, nil
}

// Clone は同じハイパーパラメータの未学習モデルを返す
func (r *KNeighborsRegressor) Clone() model.Regressor {
	return NewKNeighborsRegressor(WithNNeighbors(r.nNeighbors))
}

// GetParams はハイパーパラメータを返す
func (r *KNeighborsRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_neighbors": r.nNeighbors,
		"weights":     "uniform",
		"metric":      "euclidean",
	}
}

// IsFitted は学習済みかどうかを返す
func (r *KNeighborsRegressor) IsFitted() bool {
	return r.state.IsFitted()
}

func (r *KNeighborsRegressor) String() string {
	return fmt.Sprintf("KNeighborsRegressor(n_neighbors=%d)", r.nNeighbors)
}
