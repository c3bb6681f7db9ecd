// Package compose は前処理と回帰器を組み合わせるラッパーを提供する
package compose

import (
	"github.com/YuminosukeSato/devperf/core/model"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Pipeline は特徴量の前処理と回帰器を連結する
// Fit では前処理を訓練データのみで学習し、Predict では学習済みの
// パラメータをそのまま適用する。
type Pipeline struct {
	preprocessor model.TransformerCloner
	regressor    model.ClonableRegressor
	fitted       bool
}

// NewPipeline は前処理と回帰器からPipelineを作成する
func NewPipeline(preprocessor model.TransformerCloner, regressor model.ClonableRegressor) *Pipeline {
	return &Pipeline{preprocessor: preprocessor, regressor: regressor}
}

// Fit は前処理を学習・適用した後に回帰器を学習する
func (p *Pipeline) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Pipeline.Fit")

	Xt, err := p.preprocessor.FitTransform(X)
	if err != nil {
		return errors.Wrap(err, "pipeline: preprocess")
	}
	if err := errors.CheckMatrix("Pipeline.Fit", Xt, 0); err != nil {
		return err
	}
	if err := p.regressor.Fit(Xt, y); err != nil {
		return err
	}
	p.fitted = true
	return nil
}

// Predict は学習済みの前処理を適用してから予測する
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !p.fitted {
		return nil, errors.NewNotFittedError("Pipeline", "Predict")
	}
	Xt, err := p.preprocessor.Transform(X)
	if err != nil {
		return nil, errors.Wrap(err, "pipeline: preprocess")
	}
	return p.regressor.Predict(Xt)
}

// Clone は前処理と回帰器を未学習の状態で複製する
func (p *Pipeline) Clone() model.Regressor {
	pre, ok := p.preprocessor.CloneTransformer().(model.TransformerCloner)
	if !ok {
		pre = p.preprocessor
	}
	return NewPipeline(pre, p.regressor.Clone().(model.ClonableRegressor))
}

// Regressor は内部の回帰器を返す
func (p *Pipeline) Regressor() model.Regressor {
	return p.regressor
}

// Preprocessor は内部の前処理を返す
func (p *Pipeline) Preprocessor() model.Transformer {
	return p.preprocessor
}

// IsFitted は学習済みかどうかを返す
func (p *Pipeline) IsFitted() bool {
	return p.fitted
}

// GetParams は回帰器のハイパーパラメータを返す
func (p *Pipeline) GetParams() map[string]interface{} {
	if pg, ok := p.regressor.(model.ParameterGetter); ok {
		return pg.GetParams()
	}
	return map[string]interface{}{}
}
