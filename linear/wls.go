// Package linear は重み付き・効率性制約付きの最小二乗ソルバーと
// L1正則化による特徴量選択を提供する
package linear

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/kernelshap/core/parallel"
	"github.com/YuminosukeSato/kernelshap/metrics"
	"github.com/YuminosukeSato/kernelshap/pkg/errors"
)

// svdRankTol は擬似逆行列で0とみなす特異値の相対閾値
const svdRankTol = 1e-10

// Result は制約付き重み付き最小二乗の解
type Result struct {
	// Phi は M×D の係数（寄与度）行列
	Phi *mat.Dense
	// Degenerate は出力ごとに擬似逆行列へフォールバックしたかを示す
	Degenerate []bool
	// Rank は出力ごとの有効な未知数の階数
	Rank []int
	// Condition は出力ごとの正規方程式の条件数
	Condition []float64
	// Selected は出力ごとに選択された特徴量のインデックス（昇順）
	Selected [][]int
	// R2 は出力ごとの代理線形モデルの重み付き決定係数
	// 内部の連合が存在しない場合は NaN
	R2 []float64
}

// SolveConstrained は効率性制約 Σφ = total の下で重み付き最小二乗問題を解く
//
//	min Σ_i w_i (y_i - Z_i φ)^2   subject to  Σ_j φ_j = total
//
// 最後に選択された特徴量を φ_last = total - Σ(他) で消去し、
// 残りの未知数について正規方程式 (X^T W X) β = X^T W ỹ をコレスキー分解で解く。
// 分解に失敗した場合や条件数が閾値を超える場合は SVD による最小ノルム解を用い、
// Degenerate を立てる。出力列ごとに独立に解き、列同士は並列に処理する。
//
// パラメータ:
//   - Z: n×M のマスク行列（1=インスタンスから、0=背景から）
//   - w: 長さ n の正の重み
//   - Y: n×D のリンク空間での出力から基準値を引いたもの
//   - total: 長さ D の制約値 link(f(x)) - base
func SolveConstrained(Z mat.Matrix, w []float64, Y mat.Matrix, total []float64, opts ...Option) (*Result, error) {
	const op = "linear.SolveConstrained"
	cfg := defaultSolveConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	n, m := Z.Dims()
	ny, d := Y.Dims()
	if m == 0 || d == 0 {
		return nil, errors.NewInvalidInputError(op, "Z", "at least one feature and one output are required", []int{m, d})
	}
	if ny != n || len(w) != n {
		return nil, errors.NewShapeMismatchError(op, []int{n, n}, []int{ny, len(w)})
	}
	if len(total) != d {
		return nil, errors.NewShapeMismatchError(op, []int{d}, []int{len(total)})
	}
	for _, v := range w {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NewInvalidInputError(op, "weights", "weights must be finite and non-negative", v)
		}
	}

	var zd *mat.Dense
	if n > 0 {
		zd = mat.DenseCopyOf(Z)
		if err := errors.CheckNumericalStability(op, mat.DenseCopyOf(Y).RawMatrix().Data); err != nil {
			return nil, err
		}
	}
	if err := errors.CheckNumericalStability(op, total); err != nil {
		return nil, err
	}

	res := &Result{
		Phi:        mat.NewDense(m, d, nil),
		Degenerate: make([]bool, d),
		Rank:       make([]int, d),
		Condition:  make([]float64, d),
		Selected:   make([][]int, d),
		R2:         make([]float64, d),
	}

	all := make([]int, m)
	for j := range all {
		all[j] = j
	}

	solveErrs := make([]error, d)
	parallel.ParallelizeN(d, parallel.Workers(cfg.workers), func(start, end int) {
		for out := start; out < end; out++ {
			y := make([]float64, n)
			for i := range y {
				y[i] = Y.At(i, out)
			}

			selected := all
			if n > 0 {
				sel, err := SelectFeatures(zd, w, y, total[out], cfg.selection, cfg.spaceFraction)
				if err != nil {
					solveErrs[out] = err
					continue
				}
				if sel != nil {
					selected = sel
				}
			}

			sol := solveOutput(zd, w, y, total[out], m, selected, cfg.condLimit)
			res.Phi.SetCol(out, sol.phi)
			res.Degenerate[out] = sol.degenerate
			res.Rank[out] = sol.rank
			res.Condition[out] = sol.cond
			res.Selected[out] = append([]int(nil), selected...)
			res.R2[out] = fitR2(zd, w, y, sol.phi)
		}
	})
	for _, err := range solveErrs {
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

type outputSolution struct {
	phi        []float64
	degenerate bool
	rank       int
	cond       float64
}

// solveOutput は1出力分の制約付き問題を解く
func solveOutput(Z *mat.Dense, w, y []float64, total float64, m int, selected []int, condLimit float64) outputSolution {
	sol := outputSolution{phi: make([]float64, m), cond: 1}
	k := len(selected)
	switch k {
	case 0:
		return sol
	case 1:
		sol.phi[selected[0]] = total
		sol.rank = 1
		return sol
	}

	last := selected[k-1]
	p := k - 1
	n := len(y)
	if n == 0 {
		// 方程式がない場合の最小ノルム解
		sol.phi[last] = total
		sol.degenerate = true
		sol.cond = math.Inf(1)
		return sol
	}

	// 最後の特徴量を消去し、√w を掛けた計画行列を作る
	xw := mat.NewDense(n, p, nil)
	yw := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		sw := math.Sqrt(w[i])
		zl := Z.At(i, last)
		yw.SetVec(i, sw*(y[i]-zl*total))
		for j := 0; j < p; j++ {
			xw.Set(i, j, sw*(Z.At(i, selected[j])-zl))
		}
	}

	// 正規方程式 (X^T W X) β = X^T W ỹ
	var a mat.SymDense
	a.SymOuterK(1, xw.T())
	var b mat.VecDense
	b.MulVec(xw.T(), yw)

	beta := mat.NewVecDense(p, nil)
	solved := false
	var chol mat.Cholesky
	if chol.Factorize(&a) {
		sol.cond = chol.Cond()
		if sol.cond <= condLimit {
			if err := chol.SolveVecTo(beta, &b); err == nil {
				solved = true
				sol.rank = k
			}
		}
	} else {
		sol.cond = math.Inf(1)
	}

	if !solved {
		// SVD による最小ノルム解
		sol.degenerate = true
		var svd mat.SVD
		if svd.Factorize(xw, mat.SVDThin) {
			rank := svd.Rank(svdRankTol)
			sol.rank = rank + 1
			if c := svd.Cond(); !math.IsNaN(c) {
				sol.cond = c
			}
			if rank > 0 {
				svd.SolveVecTo(beta, yw, rank)
			}
		}
	}

	var sum float64
	for j := 0; j < p; j++ {
		v := beta.AtVec(j)
		sol.phi[selected[j]] = v
		sum += v
	}
	sol.phi[last] = total - sum
	return sol
}

func fitR2(Z *mat.Dense, w, y, phi []float64) float64 {
	if len(y) == 0 {
		return math.NaN()
	}
	coef := mat.NewVecDense(len(phi), phi)
	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = mat.Dot(Z.RowView(i), coef)
	}
	r2, err := metrics.WeightedR2Score(y, pred, w)
	if err != nil {
		return math.NaN()
	}
	return r2
}
