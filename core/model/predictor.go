package model

import (
	"context"

	"gonum.org/v1/gonum/mat"
)

// Predictor は説明対象となるブラックボックスモデルのインターフェース
//
// Predict は rows×M の入力に対して rows×D の出力を返す。
// 説明器はモデルを学習・変更せず、この呼び出しのみを行う。
// X は再利用されるバッファの場合があるため、呼び出し後に保持してはならない。
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// ContextPredictor はキャンセル可能な予測を提供するモデル
//
// 説明器は Predictor がこのインターフェースも満たす場合、
// PredictContext を優先して呼び出す。
type ContextPredictor interface {
	Predictor
	// PredictContext はコンテキスト付きで予測を行う
	PredictContext(ctx context.Context, X mat.Matrix) (mat.Matrix, error)
}

// PredictorFunc は関数を Predictor として扱うためのアダプタ
type PredictorFunc func(X mat.Matrix) (mat.Matrix, error)

// Predict は f(X) を呼び出す
func (f PredictorFunc) Predict(X mat.Matrix) (mat.Matrix, error) {
	return f(X)
}

// RowFunc は1行を受け取りスカラーを返す単一出力モデル
//
// 使用例:
//
//	m := model.RowFunc(func(x []float64) float64 { return x[0] + 2*x[1] })
//	exp, err := explainer.NewKernelExplainer(ctx, m, bg)
type RowFunc func(x []float64) float64

// Predict は各行に f を適用し rows×1 の行列を返す
func (f RowFunc) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, c := X.Dims()
	out := mat.NewDense(r, 1, nil)
	row := make([]float64, c)
	for i := 0; i < r; i++ {
		mat.Row(row, i, X)
		out.Set(i, 0, f(row))
	}
	return out, nil
}

// Call は p を ctx 付きで呼び出す
//
// p が ContextPredictor であれば PredictContext を使用し、
// そうでなければ呼び出し前に ctx の終了を確認してから Predict を使用する。
func Call(ctx context.Context, p Predictor, X mat.Matrix) (mat.Matrix, error) {
	if cp, ok := p.(ContextPredictor); ok {
		return cp.PredictContext(ctx, X)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.Predict(X)
}
