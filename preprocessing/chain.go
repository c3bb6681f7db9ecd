package preprocessing

import (
	"github.com/YuminosukeSato/devperf/core/model"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Chain は複数のTransformerを順に適用する
// 各ステップは前段の学習データ変換結果で学習する。
type Chain struct {
	steps  []model.TransformerCloner
	fitted bool
}

// NewChain はステップを順に適用するChainを作成する
func NewChain(steps ...model.TransformerCloner) *Chain {
	return &Chain{steps: steps}
}

// NewPreprocessor は中央値補完と標準化を順に行う前処理器を返す
func NewPreprocessor() *Chain {
	return NewChain(NewSimpleImputer(), NewStandardScalerDefault())
}

// Fit は各ステップを順に学習する
func (c *Chain) Fit(X mat.Matrix) error {
	_, err := c.FitTransform(X)
	return err
}

// FitTransform は各ステップを学習しながら変換結果を次に渡す
func (c *Chain) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if len(c.steps) == 0 {
		return nil, errors.NewValueError("Chain.Fit", "no steps")
	}
	cur := X
	for _, s := range c.steps {
		next, err := s.FitTransform(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	c.fitted = true
	return cur, nil
}

// Transform は学習済みの全ステップを適用する
func (c *Chain) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !c.fitted {
		return nil, errors.NewNotFittedError("Chain", "Transform")
	}
	cur := X
	for _, s := range c.steps {
		next, err := s.Transform(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// IsFitted は学習済みかどうかを返す
func (c *Chain) IsFitted() bool {
	return c.fitted
}

// Steps は各ステップを返す
func (c *Chain) Steps() []model.Transformer {
	out := make([]model.Transformer, len(c.steps))
	for i, s := range c.steps {
		out[i] = s
	}
	return out
}

// CloneTransformer は全ステップを未学習で複製する
func (c *Chain) CloneTransformer() model.Transformer {
	steps := make([]model.TransformerCloner, len(c.steps))
	for i, s := range c.steps {
		steps[i] = s.CloneTransformer().(model.TransformerCloner)
	}
	return &Chain{steps: steps}
}
