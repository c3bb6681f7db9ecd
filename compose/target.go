package compose

import (
	"github.com/YuminosukeSato/devperf/core/model"
	"github.com/YuminosukeSato/devperf/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// TransformedTargetRegressor は目的変数を変換した空間で回帰器を学習し、
// 予測を逆変換して元のスケールで返す
type TransformedTargetRegressor struct {
	regressor   model.ClonableRegressor
	newTarget   func() model.InverseTransformer
	transformer model.InverseTransformer
	fitted      bool
}

// NewTransformedTargetRegressor は回帰器と目的変数変換のファクトリから作成する
// ファクトリはFitのたびに新しい変換器を作るために使われる。
func NewTransformedTargetRegressor(regressor model.ClonableRegressor, newTarget func() model.InverseTransformer) *TransformedTargetRegressor {
	return &TransformedTargetRegressor{regressor: regressor, newTarget: newTarget}
}

// Fit は y を変換してから回帰器を学習する
func (t *TransformedTargetRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "TransformedTargetRegressor.Fit")

	if _, _, err := model.CheckFitInput("TransformedTargetRegressor.Fit", X, y); err != nil {
		return err
	}
	tr := t.newTarget()
	yt, err := tr.FitTransform(y)
	if err != nil {
		return errors.Wrap(err, "transform target")
	}
	if err := t.regressor.Fit(X, yt); err != nil {
		return err
	}
	t.transformer = tr
	t.fitted = true
	return nil
}

// Predict は回帰器の予測を元のスケールに戻す
func (t *TransformedTargetRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !t.fitted {
		return nil, errors.NewNotFittedError("TransformedTargetRegressor", "Predict")
	}
	pred, err := t.regressor.Predict(X)
	if err != nil {
		return nil, err
	}
	return t.transformer.InverseTransform(pred)
}

// Clone は未学習の複製を返す
func (t *TransformedTargetRegressor) Clone() model.Regressor {
	return NewTransformedTargetRegressor(t.regressor.Clone().(model.ClonableRegressor), t.newTarget)
}

// Regressor は内部の回帰器を返す
func (t *TransformedTargetRegressor) Regressor() model.Regressor {
	return t.regressor
}

// GetParams は内部の回帰器のハイパーパラメータを返す
func (t *TransformedTargetRegressor) GetParams() map[string]interface{} {
	if pg, ok := t.regressor.(model.ParameterGetter); ok {
		return pg.GetParams()
	}
	return map[string]interface{}{}
}
