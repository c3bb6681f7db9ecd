// Package tree はMSE基準のCART回帰木を提供する
package tree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/devperf/core/model"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/YuminosukeSato/devperf/pkg/log"
	"gonum.org/v1/gonum/mat"
)

const (
	// 不純度がこれ以下のノードは葉にする
	impurityTol = 1e-12
	// これ以下の差しかない特徴量の値は同一とみなす
	featureTol = 1e-7
)

// node は木のノード。feature が -1 の場合は葉
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     float64
	nSamples  int
	impurity  float64
}

// DecisionTreeRegressor はCART回帰木
type DecisionTreeRegressor struct {
	state *model.StateManager

	// ハイパーパラメータ
	maxDepth        int // 0 は無制限
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 0 は全特徴量
	randomState     uint64

	// 学習済みパラメータ
	nodes       []node
	importances []float64

	logger log.Logger
}

// Option はDecisionTreeRegressorの設定オプション
type Option func(*DecisionTreeRegressor)

// WithMaxDepth は木の最大深さを設定する（0 は無制限）
func WithMaxDepth(depth int) Option {
	return func(t *DecisionTreeRegressor) { t.maxDepth = depth }
}

// WithMinSamplesSplit は分割に必要な最小サンプル数を設定する（デフォルト: 2）
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeRegressor) { t.minSamplesSplit = n }
}

// WithMinSamplesLeaf は葉の最小サンプル数を設定する（デフォルト: 1）
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeRegressor) { t.minSamplesLeaf = n }
}

// WithMaxFeatures は各分割で評価する特徴量数を設定する（0 は全て）
func WithMaxFeatures(n int) Option {
	return func(t *DecisionTreeRegressor) { t.maxFeatures = n }
}

// WithRandomState は特徴量の走査順を決める乱数シードを設定する（デフォルト: 42）
func WithRandomState(seed uint64) Option {
	return func(t *DecisionTreeRegressor) { t.randomState = seed }
}

// NewDecisionTreeRegressor は新しいDecisionTreeRegressorを作成する
func NewDecisionTreeRegressor(options ...Option) *DecisionTreeRegressor {
	t := &DecisionTreeRegressor{
		state:           model.NewStateManager("DecisionTreeRegressor"),
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		randomState:     42,
		logger:          log.GetLoggerWithName("DecisionTreeRegressor"),
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *DecisionTreeRegressor) validate() error {
	if t.maxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be >= 0", t.maxDepth)
	}
	if t.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be >= 2", t.minSamplesSplit)
	}
	if t.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be >= 1", t.minSamplesLeaf)
	}
	if t.maxFeatures < 0 {
		return errors.NewValidationError("max_features", "must be >= 0", t.maxFeatures)
	}
	return nil
}

// Fit は全サンプルで木を構築する
func (t *DecisionTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeRegressor.Fit")

	rows, _, err := model.CheckFitInput("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	samples := make([]int, rows)
	for i := range samples {
		samples[i] = i
	}
	return t.FitSamples(X, y, samples)
}

// FitSamples は指定された行（重複可）のみで木を構築する
// ランダムフォレストのブートストラップ標本で使う。
func (t *DecisionTreeRegressor) FitSamples(X, y mat.Matrix, samples []int) error {
	if err := t.validate(); err != nil {
		return err
	}
	rows, cols, err := model.CheckFitInput("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return errors.NewModelError("DecisionTreeRegressor.Fit", "empty sample set", errors.ErrEmptyData)
	}

	columns := make([][]float64, cols)
	for j := range columns {
		columns[j] = mat.Col(nil, j, X)
	}
	b := &builder{
		tree:     t,
		columns:  columns,
		y:        model.ColumnOf(y),
		nFeature: cols,
		rng:      rand.New(rand.NewPCG(t.randomState, t.randomState)),
		gains:    make([]float64, cols),
	}
	t.nodes = t.nodes[:0]
	b.build(append([]int(nil), samples...), 0)

	var total float64
	for _, g := range b.gains {
		total += g
	}
	t.importances = b.gains
	if total > 0 {
		for j := range t.importances {
			t.importances[j] /= total
		}
	}

	t.state.SetFitted(cols, rows)
	t.logger.Debug("Model fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(samples),
		log.FeaturesKey, cols,
		"nodes", len(t.nodes),
		"depth", t.Depth(),
	)
	return nil
}

type builder struct {
	tree     *DecisionTreeRegressor
	columns  [][]float64
	y        []float64
	nFeature int
	rng      *rand.Rand
	gains    []float64
}

type split struct {
	feature   int
	threshold float64
	pos       int
	proxy     float64
	order     []int
}

// build はノードを追加し、そのインデックスを返す
func (b *builder) build(samples []int, depth int) int {
	t := b.tree
	n := len(samples)

	var sum, sumSq float64
	for _, s := range samples {
		sum += b.y[s]
		sumSq += b.y[s] * b.y[s]
	}
	mean := sum / float64(n)
	impurity := math.Max(sumSq/float64(n)-mean*mean, 0)

	idx := len(t.nodes)
	t.nodes = append(t.nodes, node{feature: -1, value: mean, nSamples: n, impurity: impurity})

	if n < t.minSamplesSplit || n < 2*t.minSamplesLeaf || impurity <= impurityTol ||
		(t.maxDepth > 0 && depth >= t.maxDepth) {
		return idx
	}

	best, ok := b.findSplit(samples, sum)
	if !ok {
		return idx
	}

	left := append([]int(nil), best.order[:best.pos]...)
	right := append([]int(nil), best.order[best.pos:]...)

	leftIdx := b.build(left, depth+1)
	rightIdx := b.build(right, depth+1)

	nd := &t.nodes[idx]
	nd.feature = best.feature
	nd.threshold = best.threshold
	nd.left = leftIdx
	nd.right = rightIdx

	l, r := t.nodes[leftIdx], t.nodes[rightIdx]
	b.gains[best.feature] += float64(n)*impurity - float64(l.nSamples)*l.impurity - float64(r.nSamples)*r.impurity
	return idx
}

// findSplit は sumL²/nL + sumR²/nR を最大化する分割を探す
// 特徴量はシード付きの乱数順に走査し、同点の場合は先に見つかった分割を採る。
func (b *builder) findSplit(samples []int, sum float64) (split, bool) {
	t := b.tree
	n := len(samples)
	features := b.rng.Perm(b.nFeature)
	if t.maxFeatures > 0 && t.maxFeatures < b.nFeature {
		features = features[:t.maxFeatures]
	}

	best := split{proxy: math.Inf(-1), feature: -1}
	order := make([]int, n)
	for _, f := range features {
		col := b.columns[f]
		copy(order, samples)
		sort.SliceStable(order, func(a, c int) bool {
			return col[order[a]] < col[order[c]]
		})
		if col[order[n-1]] <= col[order[0]]+featureTol {
			continue
		}

		var sumL float64
		for pos := 1; pos < n; pos++ {
			sumL += b.y[order[pos-1]]
			prev, cur := col[order[pos-1]], col[order[pos]]
			if cur <= prev+featureTol {
				continue
			}
			nL, nR := pos, n-pos
			if nL < t.minSamplesLeaf || nR < t.minSamplesLeaf {
				continue
			}
			sumR := sum - sumL
			proxy := sumL*sumL/float64(nL) + sumR*sumR/float64(nR)
			if proxy > best.proxy {
				threshold := (prev + cur) / 2
				if threshold >= cur {
					threshold = prev
				}
				best = split{feature: f, threshold: threshold, pos: pos, proxy: proxy,
					order: append(best.order[:0], order...)}
			}
		}
	}
	return best, best.feature >= 0
}

// Predict は各行が到達する葉の平均値を返す
func (t *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := t.state.RequireFeatures("Predict", X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, t.predictRow(X, i))
	}
	return out, nil
}

func (t *DecisionTreeRegressor) predictRow(X mat.Matrix, i int) float64 {
	idx := 0
	for {
		nd := t.nodes[idx]
		if nd.feature < 0 {
			return nd.value
		}
		if X.At(i, nd.feature) <= nd.threshold {
			idx = nd.left
		} else {
			idx = nd.right
		}
	}
}

// FeatureImportances は不純度減少量に基づく正規化済みの重要度を返す
func (t *DecisionTreeRegressor) FeatureImportances() ([]float64, error) {
	if err := t.state.RequireFitted("FeatureImportances"); err != nil {
		return nil, err
	}
	return append([]float64(nil), t.importances...), nil
}

// NodeCount はノード数を返す
func (t *DecisionTreeRegressor) NodeCount() int {
	return len(t.nodes)
}

// Depth は木の深さを返す（根のみの場合は0）
func (t *DecisionTreeRegressor) Depth() int {
	if len(t.nodes) == 0 {
		return 0
	}
	var walk func(idx int) int
	walk = func(idx int) int {
		nd := t.nodes[idx]
		if nd.feature < 0 {
			return 0
		}
		l, r := walk(nd.left), walk(nd.right)
		if l > r {
			return l + 1
		}
		return r + 1
	}
	return walk(0)
}

// Clone は同じハイパーパラメータの未学習モデルを返す
func (t *DecisionTreeRegressor) Clone() model.Regressor {
	return NewDecisionTreeRegressor(
		WithMaxDepth(t.maxDepth),
		WithMinSamplesSplit(t.minSamplesSplit),
		WithMinSamplesLeaf(t.minSamplesLeaf),
		WithMaxFeatures(t.maxFeatures),
		WithRandomState(t.randomState),
	)
}

// GetParams はハイパーパラメータを返す
func (t *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         "squared_error",
		"max_depth":         t.maxDepth,
		"min_samples_split": t.minSamplesSplit,
		"min_samples_leaf":  t.minSamplesLeaf,
		"max_features":      t.maxFeatures,
		"random_state":      t.randomState,
	}
}

// IsFitted は学習済みかどうかを返す
func (t *DecisionTreeRegressor) IsFitted() bool {
	return t.state.IsFitted()
}

func (t *DecisionTreeRegressor) String() string {
	return fmt.Sprintf("DecisionTreeRegressor(max_depth=%d, random_state=%d)", t.maxDepth, t.randomState)
}
