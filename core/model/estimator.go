package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	// y は n×1 の列ベクトル
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	// 戻り値は n×1 の列ベクトル
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Regressor は回帰モデルの共通インターフェース
// 評価器はこのインターフェースだけを通してモデルを扱う
type Regressor interface {
	Fitter
	Predictor
}

// Cloner は未学習のコピーを作成できるモデルのインターフェース
// ハイパーパラメータのみを引き継ぎ、学習済みの状態は引き継がない
type Cloner interface {
	Clone() Regressor
}

// ClonableRegressor はレジストリに登録できる回帰モデル
type ClonableRegressor interface {
	Regressor
	Cloner
}

// ParameterGetter はハイパーパラメータを公開するモデルのインターフェース
type ParameterGetter interface {
	// GetParams はモデルのハイパーパラメータを返す
	GetParams() map[string]interface{}
}
