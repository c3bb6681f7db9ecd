// Package ensemble はブートストラップ集約による回帰木のアンサンブルを提供する
package ensemble

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/YuminosukeSato/devperf/core/model"
	"github.com/YuminosukeSato/devperf/core/parallel"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/YuminosukeSato/devperf/pkg/log"
	"github.com/YuminosukeSato/devperf/tree"
	"gonum.org/v1/gonum/mat"
)

// RandomForestRegressor はブートストラップ標本で学習した回帰木の平均を予測とする
type RandomForestRegressor struct {
	state *model.StateManager

	// ハイパーパラメータ
	nEstimators int
	maxDepth    int
	maxFeatures int
	bootstrap   bool
	randomState uint64
	nJobs       int

	// 学習済みパラメータ
	trees []*tree.DecisionTreeRegressor

	logger log.Logger
}

// Option はRandomForestRegressorの設定オプション
type Option func(*RandomForestRegressor)

// WithNEstimators は木の本数を設定する（デフォルト: 300）
func WithNEstimators(n int) Option {
	return func(f *RandomForestRegressor) { f.nEstimators = n }
}

// WithMaxDepth は各木の最大深さを設定する（0 は無制限）
func WithMaxDepth(depth int) Option {
	return func(f *RandomForestRegressor) { f.maxDepth = depth }
}

// WithMaxFeatures は各分割で評価する特徴量数を設定する（0 は全て）
func WithMaxFeatures(n int) Option {
	return func(f *RandomForestRegressor) { f.maxFeatures = n }
}

// WithBootstrap はブートストラップ標本を使うかどうかを設定する（デフォルト: true）
func WithBootstrap(b bool) Option {
	return func(f *RandomForestRegressor) { f.bootstrap = b }
}

// WithRandomState は乱数シードを設定する（デフォルト: 42）
func WithRandomState(seed uint64) Option {
	return func(f *RandomForestRegressor) { f.randomState = seed }
}

// WithNJobs は並列に学習するワーカー数を設定する（0 以下はCPU数）
func WithNJobs(n int) Option {
	return func(f *RandomForestRegressor) { f.nJobs = n }
}

// NewRandomForestRegressor は新しいRandomForestRegressorを作成する
func NewRandomForestRegressor(options ...Option) *RandomForestRegressor {
	f := &RandomForestRegressor{
		state:       model.NewStateManager("RandomForestRegressor"),
		nEstimators: 300,
		bootstrap:   true,
		randomState: 42,
		logger:      log.GetLoggerWithName("RandomForestRegressor"),
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

// Fit は各木をブートストラップ標本で並列に学習する
// 木ごとのシードは主シードから順に引くため、並列度によらず結果は同じになる。
func (f *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestRegressor.Fit")

	if f.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", f.nEstimators)
	}
	rows, cols, err := model.CheckFitInput("RandomForestRegressor.Fit", X, y)
	if err != nil {
		return err
	}

	start := time.Now()
	master := rand.New(rand.NewPCG(f.randomState, f.randomState))
	seeds := make([]uint64, f.nEstimators)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	Xd := mat.DenseCopyOf(X)
	yd := mat.DenseCopyOf(y)
	trees := make([]*tree.DecisionTreeRegressor, f.nEstimators)
	errs := make([]error, f.nEstimators)

	workers := f.nJobs
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	parallel.ParallelizeN(f.nEstimators, workers, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			rng := rand.New(rand.NewPCG(seeds[i], seeds[i]))
			samples := make([]int, rows)
			for k := range samples {
				if f.bootstrap {
					samples[k] = rng.IntN(rows)
				} else {
					samples[k] = k
				}
			}
			t := tree.NewDecisionTreeRegressor(
				tree.WithMaxDepth(f.maxDepth),
				tree.WithMaxFeatures(f.maxFeatures),
				tree.WithRandomState(rng.Uint64()),
			)
			errs[i] = t.FitSamples(Xd, yd, samples)
			trees[i] = t
		}
	})
	for i, e := range errs {
		if e != nil {
			return errors.Wrapf(e, "fit tree %d", i)
		}
	}

	f.trees = trees
	f.state.SetFitted(cols, rows)
	f.logger.Debug("Model fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"n_estimators", f.nEstimators,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict は全ての木の予測の平均を返す
func (f *RandomForestRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := f.state.RequireFeatures("Predict", X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	sum := mat.NewDense(rows, 1, nil)
	for _, t := range f.trees {
		p, err := t.Predict(X)
		if err != nil {
			return nil, err
		}
		sum.Add(sum, p)
	}
	sum.Scale(1/float64(len(f.trees)), sum)
	return sum, nil
}

// FeatureImportances は各木の重要度の平均を返す
func (f *RandomForestRegressor) FeatureImportances() ([]float64, error) {
	if err := f.state.RequireFitted("FeatureImportances"); err != nil {
		return nil, err
	}
	nFeatures, _ := f.state.Dimensions()
	out := make([]float64, nFeatures)
	for _, t := range f.trees {
		imp, err := t.FeatureImportances()
		if err != nil {
			return nil, err
		}
		for j, v := range imp {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(f.trees))
	}
	return out, nil
}

// Clone は同じハイパーパラメータの未学習モデルを返す
func (f *RandomForestRegressor) Clone() model.Regressor {
	return NewRandomForestRegressor(
		WithNEstimators(f.nEstimators),
		WithMaxDepth(f.maxDepth),
		WithMaxFeatures(f.maxFeatures),
		WithBootstrap(f.bootstrap),
		WithRandomState(f.randomState),
		WithNJobs(f.nJobs),
	)
}

// GetParams はハイパーパラメータを返す
func (f *RandomForestRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators": f.nEstimators,
		"max_depth":    f.maxDepth,
		"max_features": f.maxFeatures,
		"bootstrap":    f.bootstrap,
		"random_state": f.randomState,
		"n_jobs":       f.nJobs,
	}
}

// IsFitted は学習済みかどうかを返す
func (f *RandomForestRegressor) IsFitted() bool {
	return f.state.IsFitted()
}

func (f *RandomForestRegressor) String() string {
	return fmt.Sprintf("RandomForestRegressor(n_estimators=%d, random_state=%d)", f.nEstimators, f.randomState)
}
