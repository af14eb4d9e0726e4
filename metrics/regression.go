// Package metrics は代理線形モデルの当てはまりを評価する回帰指標を提供する
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/kernelshap/pkg/errors"
)

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	return WeightedMSE(vecData(yTrue), vecData(yPred), nil)
}

// R2Score は決定係数（R²）を計算する
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	return WeightedR2Score(vecData(yTrue), vecData(yPred), nil)
}

// WeightedMSE は重み付き平均二乗誤差を計算する
//
// weights が nil の場合は一様重み。MSE = Σw(yTrue - yPred)² / Σw
func WeightedMSE(yTrue, yPred, weights []float64) (float64, error) {
	sumW, err := validate("WeightedMSE", yTrue, yPred, weights)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := range yTrue {
		diff := yTrue[i] - yPred[i]
		sum += weightAt(weights, i) * diff * diff
	}
	return sum / sumW, nil
}

// WeightedR2Score は重み付き決定係数を計算する
//
// yTrue に分散がない場合、完全一致なら1、そうでなければ0を返す。
// カーネル重み付き回帰では定数出力が正常に起こりうるため、エラーにはしない。
func WeightedR2Score(yTrue, yPred, weights []float64) (float64, error) {
	sumW, err := validate("WeightedR2Score", yTrue, yPred, weights)
	if err != nil {
		return 0, err
	}

	// 重み付き平均
	var yMean float64
	for i, v := range yTrue {
		yMean += weightAt(weights, i) * v
	}
	yMean /= sumW

	// 全変動（TSS）と残差変動（RSS）を計算
	var tss, rss float64
	for i := range yTrue {
		w := weightAt(weights, i)
		tss += w * (yTrue[i] - yMean) * (yTrue[i] - yMean)
		rss += w * (yTrue[i] - yPred[i]) * (yTrue[i] - yPred[i])
	}

	if tss <= 1e-300 {
		if rss <= 1e-12*math.Max(1, sumW) {
			return 1, nil
		}
		return 0, nil
	}

	// R² = 1 - RSS/TSS
	return 1 - rss/tss, nil
}

func validate(op string, yTrue, yPred, weights []float64) (float64, error) {
	n := len(yTrue)
	if n == 0 {
		return 0, errors.Wrap(errors.ErrEmptyData, op)
	}
	if len(yPred) != n {
		return 0, errors.NewDimensionError(op, n, len(yPred))
	}
	if weights == nil {
		return float64(n), nil
	}
	if len(weights) != n {
		return 0, errors.NewDimensionError(op, n, len(weights))
	}
	var sumW float64
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return 0, errors.NewInvalidInputError(op, "weights", "weights must be non-negative", w)
		}
		sumW += w
	}
	if sumW <= 0 || math.IsInf(sumW, 0) {
		return 0, errors.NewInvalidInputError(op, "weights", "weights must have a positive finite sum", sumW)
	}
	return sumW, nil
}

func weightAt(weights []float64, i int) float64 {
	if weights == nil {
		return 1
	}
	return weights[i]
}

func vecData(v *mat.VecDense) []float64 {
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}
