// Package svm はRBFカーネルのε-サポートベクター回帰を提供する
//
// 最適化はlibsvmと同じSMO法（2次情報による作業集合選択）で行う。
// 変数は α と α* をまとめた 2l 個で、各反復で2変数の部分問題を解析的に解く。
package svm

import (
	"container/list"
	"fmt"
	"math"

	"github.com/YuminosukeSato/devperf/core/model"
	"github.com/YuminosukeSato/devperf/core/parallel"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"github.com/YuminosukeSato/devperf/pkg/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	// tau は非正の2次係数を置き換える小さな正の値
	tau = 1e-12

	// カーネル行列を事前計算する訓練サンプル数の上限
	kernelCacheLimit = 3000

	// 上限を超えたときにカーネル行のキャッシュへ割り当てるバイト数
	kernelCacheBytes = 200 << 20
)

// SVR はRBFカーネルのε-SVR
type SVR struct {
	state *model.StateManager

	// ハイパーパラメータ
	c       float64
	epsilon float64
	tol     float64
	gamma   float64 // 0 の場合は "scale"
	maxIter int     // 0 の場合は max(1e7, 100·2l)

	// 学習済みパラメータ
	supportVectors [][]float64
	dualCoef       []float64 // α_i - α*_i
	rho            float64
	gammaFit       float64
	nIter          int

	logger log.Logger
}

// Option はSVRの設定オプション
type Option func(*SVR)

// WithC は正則化パラメータCを設定する（デフォルト: 10）
func WithC(c float64) Option {
	return func(s *SVR) { s.c = c }
}

// WithEpsilon はε-不感帯の幅を設定する（デフォルト: 0.1）
func WithEpsilon(eps float64) Option {
	return func(s *SVR) { s.epsilon = eps }
}

// WithTol は停止条件の許容誤差を設定する（デフォルト: 1e-3）
func WithTol(tol float64) Option {
	return func(s *SVR) { s.tol = tol }
}

// WithGamma はRBFカーネルのγを固定する。0 は "scale" を意味する
func WithGamma(gamma float64) Option {
	return func(s *SVR) { s.gamma = gamma }
}

// WithMaxIter はSMOの反復上限を設定する
func WithMaxIter(n int) Option {
	return func(s *SVR) { s.maxIter = n }
}

// NewSVR は新しいSVRを作成する
func NewSVR(options ...Option) *SVR {
	s := &SVR{
		state:   model.NewStateManager("SVR"),
		c:       10,
		epsilon: 0.1,
		tol:     1e-3,
		logger:  log.GetLoggerWithName("SVR"),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// scaleGamma は 1 / (n_features · Var(X)) を返す。Var(X) は全要素の母分散
func scaleGamma(X mat.Matrix) float64 {
	r, c := X.Dims()
	all := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			all = append(all, X.At(i, j))
		}
	}
	_, variance := stat.PopMeanVariance(all, nil)
	if variance == 0 {
		return 1.0
	}
	return 1.0 / (float64(c) * variance)
}

func rbf(a, b []float64, gamma float64) float64 {
	d := floats.Distance(a, b, 2)
	return math.Exp(-gamma * d * d)
}

// kernel はカーネル行の取得を抽象化する。
// 小さな問題では全行列を持ち、大きな問題では最近使った行をLRUで保持する
type kernel struct {
	x     [][]float64
	gamma float64
	full  []float64 // l×l、事前計算しない場合は nil
	cache *rowCache
}

func newKernel(x [][]float64, gamma float64) *kernel {
	l := len(x)
	if l <= kernelCacheLimit {
		return newFullKernel(x, gamma)
	}
	return newCachedKernel(x, gamma, kernelCacheBytes/(8*l))
}

func newFullKernel(x [][]float64, gamma float64) *kernel {
	l := len(x)
	k := &kernel{x: x, gamma: gamma, full: make([]float64, l*l)}
	parallel.ParallelizeWithThreshold(l, 128, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < l; j++ {
				k.full[i*l+j] = rbf(x[i], x[j], gamma)
			}
		}
	})
	return k
}

// newCachedKernel は最大 rows 行を保持するカーネルを作る。SMOは同時に2行を
// 参照するため、rows は2以上に切り上げる
func newCachedKernel(x [][]float64, gamma float64, rows int) *kernel {
	l := len(x)
	rows = min(max(rows, 2), l)
	return &kernel{x: x, gamma: gamma, cache: newRowCache(rows, l)}
}

// diag はK(i, i)を返す
func (k *kernel) diag(i int) float64 {
	if k.full != nil {
		return k.full[i*len(k.x)+i]
	}
	return rbf(k.x[i], k.x[i], k.gamma)
}

// row はK(i, ·)を返す。返した行は他の行を2つ取得するまで有効
func (k *kernel) row(i int) []float64 {
	l := len(k.x)
	if k.full != nil {
		return k.full[i*l : (i+1)*l]
	}
	if r, ok := k.cache.get(i); ok {
		return r
	}
	buf := k.cache.put(i)
	xi := k.x[i]
	parallel.ParallelizeWithThreshold(l, 4096, func(start, end int) {
		for j := start; j < end; j++ {
			buf[j] = rbf(xi, k.x[j], k.gamma)
		}
	})
	return buf
}

// rowCache は行番号をキーにしたカーネル行のLRUキャッシュ。
// 追い出した行の領域は次の行に再利用する
type rowCache struct {
	capacity int
	width    int
	items    map[int]*list.Element
	order    *list.List // 先頭が最近使った行

	hits   int
	misses int
}

type cachedRow struct {
	index  int
	values []float64
}

func newRowCache(capacity, width int) *rowCache {
	return &rowCache{
		capacity: capacity,
		width:    width,
		items:    make(map[int]*list.Element, capacity),
		order:    list.New(),
	}
}

func (c *rowCache) get(i int) ([]float64, bool) {
	elem, ok := c.items[i]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(elem)
	return elem.Value.(*cachedRow).values, true
}

// put は行 i の領域を最近使った位置に確保して返す。中身は呼び出し側が埋める
func (c *rowCache) put(i int) []float64 {
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		entry := oldest.Value.(*cachedRow)
		delete(c.items, entry.index)
		entry.index = i
		c.order.MoveToFront(oldest)
		c.items[i] = oldest
		return entry.values
	}
	entry := &cachedRow{index: i, values: make([]float64, c.width)}
	c.items[i] = c.order.PushFront(entry)
	return entry.values
}

func (c *rowCache) len() int {
	return c.order.Len()
}

// Fit はSMO法で双対問題を解く
func (s *SVR) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "SVR.Fit")

	if s.c <= 0 {
		return errors.NewValidationError("C", "must be > 0", s.c)
	}
	if s.epsilon < 0 {
		return errors.NewValidationError("epsilon", "must be >= 0", s.epsilon)
	}
	rows, cols, err := model.CheckFitInput("SVR.Fit", X, y)
	if err != nil {
		return err
	}

	x := make([][]float64, rows)
	for i := range x {
		x[i] = make([]float64, cols)
		mat.Row(x[i], i, X)
	}
	target := model.ColumnOf(y)

	s.gammaFit = s.gamma
	if s.gammaFit <= 0 {
		s.gammaFit = scaleGamma(X)
	}

	k := newKernel(x, s.gammaFit)
	alpha, rho, nIter := s.solve(k, target)
	if err := errors.CheckFinite("SVR.Fit", alpha, nIter); err != nil {
		return err
	}
	if err := errors.CheckFinite("SVR.Fit", []float64{rho}, nIter); err != nil {
		return err
	}

	// サポートベクターのみを保持する
	s.supportVectors = s.supportVectors[:0]
	s.dualCoef = s.dualCoef[:0]
	for i := 0; i < rows; i++ {
		coef := alpha[i] - alpha[i+rows]
		if coef != 0 {
			s.supportVectors = append(s.supportVectors, x[i])
			s.dualCoef = append(s.dualCoef, coef)
		}
	}
	s.rho = rho
	s.nIter = nIter

	s.state.SetFitted(cols, rows)
	s.logger.Debug("Model fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.IterationKey, nIter,
		"support_vectors", len(s.dualCoef),
		"gamma", s.gammaFit,
	)
	if k.cache != nil {
		s.logger.Debug("Kernel row cache",
			"rows", k.cache.capacity,
			"hits", k.cache.hits,
			"misses", k.cache.misses,
		)
	}
	return nil
}

// solve はε-SVRの双対問題を解き、α（2l個）、rho、反復回数を返す
func (s *SVR) solve(k *kernel, target []float64) ([]float64, float64, int) {
	l := len(target)
	n := 2 * l

	sign := make([]float64, n)
	grad := make([]float64, n)
	alpha := make([]float64, n)
	for i := 0; i < l; i++ {
		sign[i] = 1
		sign[i+l] = -1
		grad[i] = s.epsilon - target[i]
		grad[i+l] = s.epsilon + target[i]
	}

	// Q_ij = sign_i sign_j K(i mod l, j mod l)、対角は K(i, i)
	qd := make([]float64, n)
	for i := 0; i < l; i++ {
		qd[i] = k.diag(i)
		qd[i+l] = qd[i]
	}
	qAt := func(kr []float64, si float64, j int) float64 {
		return si * sign[j] * kr[j%l]
	}

	isUpper := func(i int) bool { return alpha[i] >= s.c }
	isLower := func(i int) bool { return alpha[i] <= 0 }

	maxIter := s.maxIter
	if maxIter <= 0 {
		maxIter = 100 * n
		if maxIter < 10_000_000 {
			maxIter = 10_000_000
		}
	}

	iter := 0
	for iter < maxIter {
		// 作業集合の選択
		gmax, gmax2 := math.Inf(-1), math.Inf(-1)
		gmaxIdx, gminIdx := -1, -1
		for t := 0; t < n; t++ {
			if sign[t] > 0 {
				if !isUpper(t) && -grad[t] >= gmax {
					gmax, gmaxIdx = -grad[t], t
				}
			} else if !isLower(t) && grad[t] >= gmax {
				gmax, gmaxIdx = grad[t], t
			}
		}
		if gmaxIdx == -1 {
			break
		}
		i := gmaxIdx
		ki := k.row(i % l)

		objDiffMin := math.Inf(1)
		for j := 0; j < n; j++ {
			var gradDiff, quad float64
			if sign[j] > 0 {
				if isLower(j) {
					continue
				}
				gradDiff = gmax + grad[j]
				if grad[j] >= gmax2 {
					gmax2 = grad[j]
				}
				quad = qd[i] + qd[j] - 2*sign[i]*qAt(ki, sign[i], j)
			} else {
				if isUpper(j) {
					continue
				}
				gradDiff = gmax - grad[j]
				if -grad[j] >= gmax2 {
					gmax2 = -grad[j]
				}
				quad = qd[i] + qd[j] + 2*sign[i]*qAt(ki, sign[i], j)
			}
			if gradDiff <= 0 {
				continue
			}
			if quad <= 0 {
				quad = tau
			}
			if objDiff := -(gradDiff * gradDiff) / quad; objDiff <= objDiffMin {
				gminIdx, objDiffMin = j, objDiff
			}
		}
		if gmax+gmax2 < s.tol || gminIdx == -1 {
			break
		}
		iter++

		j := gminIdx
		kj := k.row(j % l)
		qij := qAt(ki, sign[i], j)
		oldAi, oldAj := alpha[i], alpha[j]
		c := s.c

		if sign[i] != sign[j] {
			quad := qd[i] + qd[j] + 2*qij
			if quad <= 0 {
				quad = tau
			}
			delta := (-grad[i] - grad[j]) / quad
			diff := alpha[i] - alpha[j]
			alpha[i] += delta
			alpha[j] += delta
			if diff > 0 {
				if alpha[j] < 0 {
					alpha[j] = 0
					alpha[i] = diff
				}
			} else if alpha[i] < 0 {
				alpha[i] = 0
				alpha[j] = -diff
			}
			if diff > 0 {
				if alpha[i] > c {
					alpha[i] = c
					alpha[j] = c - diff
				}
			} else if alpha[j] > c {
				alpha[j] = c
				alpha[i] = c + diff
			}
		} else {
			quad := qd[i] + qd[j] - 2*qij
			if quad <= 0 {
				quad = tau
			}
			delta := (grad[i] - grad[j]) / quad
			sum := alpha[i] + alpha[j]
			alpha[i] -= delta
			alpha[j] += delta
			if sum > c {
				if alpha[i] > c {
					alpha[i] = c
					alpha[j] = sum - c
				}
			} else if alpha[j] < 0 {
				alpha[j] = 0
				alpha[i] = sum
			}
			if sum > c {
				if alpha[j] > c {
					alpha[j] = c
					alpha[i] = sum - c
				}
			} else if alpha[i] < 0 {
				alpha[i] = 0
				alpha[j] = sum
			}
		}

		dAi, dAj := alpha[i]-oldAi, alpha[j]-oldAj
		for t := 0; t < n; t++ {
			grad[t] += qAt(ki, sign[i], t)*dAi + qAt(kj, sign[j], t)*dAj
		}
	}

	if iter >= maxIter {
		errors.Warn(errors.NewConvergenceWarning("SVR", iter,
			"SMO reached the iteration limit before the KKT conditions were met"))
	}

	// rho: 自由変数の sign·grad の平均、なければ上下界の中点
	var sumFree float64
	nFree := 0
	ub, lb := math.Inf(1), math.Inf(-1)
	for t := 0; t < n; t++ {
		yg := sign[t] * grad[t]
		switch {
		case isUpper(t):
			if sign[t] < 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case isLower(t):
			if sign[t] > 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			nFree++
			sumFree += yg
		}
	}
	rho := (ub + lb) / 2
	if nFree > 0 {
		rho = sumFree / float64(nFree)
	}
	return alpha, rho, iter
}

// Predict は Σ(α_i - α*_i)K(x_i, x) - rho を返す
func (s *SVR) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequireFeatures("Predict", X); err != nil {
		return nil, err
	}

	rows, cols := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	parallel.ParallelizeWithThreshold(rows, 64, func(start, end int) {
		query := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(query, i, X)
			var sum float64
			for j, sv := range s.supportVectors {
				sum += s.dualCoef[j] * rbf(sv, query, s.gammaFit)
			}
			out.Set(i, 0, sum-s.rho)
		}
	})
	return out, nil
}

// Clone は同じハイパーパラメータの未学習モデルを返す
func (s *SVR) Clone() model.Regressor {
	return NewSVR(
		WithC(s.c),
		WithEpsilon(s.epsilon),
		WithTol(s.tol),
		WithGamma(s.gamma),
		WithMaxIter(s.maxIter),
	)
}

// GetParams はハイパーパラメータを返す
func (s *SVR) GetParams() map[string]interface{} {
	gamma := interface{}("scale")
	if s.gamma > 0 {
		gamma = s.gamma
	}
	return map[string]interface{}{
		"kernel":  "rbf",
		"C":       s.c,
		"epsilon": s.epsilon,
		"tol":     s.tol,
		"gamma":   gamma,
	}
}

// NSupport はサポートベクターの数を返す
func (s *SVR) NSupport() int {
	return len(s.dualCoef)
}

// NIter はSMOの反復回数を返す
func (s *SVR) NIter() int {
	return s.nIter
}

// Gamma は学習時に使われたγを返す
func (s *SVR) Gamma() float64 {
	return s.gammaFit
}

// IsFitted は学習済みかどうかを返す
func (s *SVR) IsFitted() bool {
	return s.state.IsFitted()
}

func (s *SVR) String() string {
	return fmt.Sprintf("SVR(kernel=rbf, C=%g, epsilon=%g)", s.c, s.epsilon)
}
