package linear

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/kernelshap/pkg/errors"
)

// Rule は L1 による特徴量選択の規則
type Rule string

const (
	// RuleOff は選択を行わない
	RuleOff Rule = "off"
	// RuleAuto は評価した連合が空間の20%未満のとき AIC を用いる
	RuleAuto Rule = "auto"
	// RuleAlpha は固定の正則化係数で選択する
	RuleAlpha Rule = "alpha"
	// RuleNumFeatures は正則化パス上で最初に入る k 個を選択する
	RuleNumFeatures Rule = "num_features"
	// RuleAIC は正則化パス上で AIC 最小の点を選ぶ
	RuleAIC Rule = "aic"
	// RuleBIC は正則化パス上で BIC 最小の点を選ぶ
	RuleBIC Rule = "bic"
)

// autoSpaceFraction は RuleAuto が選択を有効にする評価割合の上限
const autoSpaceFraction = 0.2

// ParseRule は文字列から Rule を返す
func ParseRule(s string) (Rule, error) {
	r := Rule(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case "":
		return RuleOff, nil
	case RuleOff, RuleAuto, RuleAlpha, RuleNumFeatures, RuleAIC, RuleBIC:
		return r, nil
	default:
		return "", errors.NewInvalidInputError("linear.ParseRule", "l1_reg", "unknown selection rule", s)
	}
}

// Selection は特徴量選択の設定
type Selection struct {
	Rule  Rule
	Alpha float64 // RuleAlpha の正則化係数
	K     int     // RuleNumFeatures の特徴量数
}

// Validate は設定の整合性を確認する
func (s Selection) Validate() error {
	const op = "linear.Selection"
	if _, err := ParseRule(string(s.Rule)); err != nil {
		return err
	}
	switch s.Rule {
	case RuleAlpha:
		if !(s.Alpha > 0) || math.IsInf(s.Alpha, 0) {
			return errors.NewInvalidInputError(op, "alpha", "alpha must be positive and finite", s.Alpha)
		}
	case RuleNumFeatures:
		if s.K < 1 {
			return errors.NewInvalidInputError(op, "k", "number of features must be at least 1", s.K)
		}
	}
	return nil
}

// 正則化パスと座標降下の設定
const (
	pathLength   = 100
	pathEps      = 1e-3
	lassoMaxIter = 1000
	lassoTol     = 1e-4
)

// SelectFeatures は1出力分の L1 特徴量選択を行い、選ばれた特徴量のインデックスを返す
//
// 選択を行わない場合は nil を返す。どの係数も残らない場合は最後の特徴量だけを返す。選択は制約を組み込んだ拡張計画行列
// （各連合 z に対し z と z-1 の2行、重み w(M-|z|) と w|z|、目的変数 y と y-total）
// 上の座標降下 LASSO で行う。
func SelectFeatures(Z *mat.Dense, w, y []float64, total float64, sel Selection, spaceFraction float64) ([]int, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	rule := sel.Rule
	if rule == "" {
		rule = RuleOff
	}
	if rule == RuleAuto {
		if spaceFraction >= autoSpaceFraction {
			return nil, nil
		}
		rule = RuleAIC
	}
	if rule == RuleOff {
		return nil, nil
	}

	_, m := Z.Dims()
	if rule == RuleNumFeatures && sel.K >= m {
		return nil, nil
	}

	la := newAugmented(Z, w, y, total)
	var selected []int
	switch rule {
	case RuleAlpha:
		beta := make([]float64, m)
		if !la.fit(sel.Alpha, beta) {
			errors.Warn(errors.NewConvergenceWarning("lasso", lassoMaxIter,
				fmt.Sprintf("coordinate descent did not converge at alpha=%g", sel.Alpha)))
		}
		selected = nonzero(beta)
	case RuleNumFeatures:
		selected = la.firstEntering(sel.K)
	default:
		selected = la.informationCriterion(rule)
	}

	// 効率性制約 Σφ = total を保つため、少なくとも最後の特徴量は残す
	if len(selected) == 0 {
		selected = []int{m - 1}
	}
	return selected, nil
}

func nonzero(beta []float64) []int {
	idx := []int{}
	for j, v := range beta {
		if v != 0 {
			idx = append(idx, j)
		}
	}
	return idx
}

// augmented は中心化済みの拡張計画行列（列優先）
type augmented struct {
	cols  [][]float64
	norms []float64 // ||X_j||^2 / n
	y     []float64
	n     int
}

func newAugmented(Z *mat.Dense, w, y []float64, total float64) *augmented {
	n, m := Z.Dims()
	cols := make([][]float64, m)
	for j := range cols {
		cols[j] = make([]float64, 2*n)
	}
	ya := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		s := 0.0
		for j := 0; j < m; j++ {
			s += Z.At(i, j)
		}
		w1 := math.Sqrt(w[i] * (float64(m) - s))
		w2 := math.Sqrt(w[i] * s)
		ya[i] = w1 * y[i]
		ya[n+i] = w2 * (y[i] - total)
		for j := 0; j < m; j++ {
			z := Z.At(i, j)
			cols[j][i] = w1 * z
			cols[j][n+i] = w2 * (z - 1)
		}
	}

	// 切片の代わりに中心化する
	nn := float64(2 * n)
	floats.AddConst(-floats.Sum(ya)/nn, ya)
	norms := make([]float64, m)
	for j, c := range cols {
		floats.AddConst(-floats.Sum(c)/nn, c)
		norms[j] = floats.Dot(c, c) / nn
	}
	return &augmented{cols: cols, norms: norms, y: ya, n: 2 * n}
}

// alphaMax は全係数が0になる最小の正則化係数
func (a *augmented) alphaMax() float64 {
	best := 0.0
	for _, c := range a.cols {
		best = math.Max(best, math.Abs(floats.Dot(c, a.y)))
	}
	return best / float64(a.n)
}

// fit は (1/2n)||y - Xβ||² + α||β||₁ を座標降下で最小化する
// beta は初期値（ウォームスタート）として使われ、解で上書きされる
func (a *augmented) fit(alpha float64, beta []float64) bool {
	r := make([]float64, a.n)
	copy(r, a.y)
	for j, b := range beta {
		if b != 0 {
			floats.AddScaled(r, -b, a.cols[j])
		}
	}

	nn := float64(a.n)
	for iter := 0; iter < lassoMaxIter; iter++ {
		maxDelta, maxBeta := 0.0, 0.0
		for j, c := range a.cols {
			if a.norms[j] == 0 {
				beta[j] = 0
				continue
			}
			old := beta[j]
			rho := floats.Dot(c, r)/nn + a.norms[j]*old
			nb := softThreshold(rho, alpha) / a.norms[j]
			if nb != old {
				floats.AddScaled(r, old-nb, c)
				beta[j] = nb
			}
			maxDelta = math.Max(maxDelta, math.Abs(nb-old))
			maxBeta = math.Max(maxBeta, math.Abs(nb))
		}
		if maxDelta <= lassoTol*maxBeta || maxDelta < 1e-12 {
			return true
		}
	}
	return false
}

func softThreshold(x, lambda float64) float64 {
	switch {
	case x > lambda:
		return x - lambda
	case x < -lambda:
		return x + lambda
	default:
		return 0
	}
}

// path は alphaMax から alphaMax*eps まで対数等間隔の正則化パスを辿り、
// 各点で visit を呼ぶ。visit が false を返すと打ち切る。
func (a *augmented) path(visit func(alpha float64, beta []float64) bool) {
	amax := a.alphaMax()
	beta := make([]float64, len(a.cols))
	if amax == 0 {
		visit(0, beta)
		return
	}
	notConverged := 0
	ratio := math.Pow(pathEps, 1/float64(pathLength-1))
	alpha := amax
	for i := 0; i < pathLength; i++ {
		if !a.fit(alpha, beta) {
			notConverged++
		}
		if !visit(alpha, beta) {
			break
		}
		alpha *= ratio
	}
	if notConverged > 0 {
		errors.Warn(errors.NewConvergenceWarning("lasso", lassoMaxIter,
			fmt.Sprintf("coordinate descent did not converge at %d points of the regularization path", notConverged)))
	}
}

// firstEntering はパス上で係数が非ゼロになった順に最初の k 個を返す
func (a *augmented) firstEntering(k int) []int {
	var order []int
	entered := make([]bool, len(a.cols))
	a.path(func(_ float64, beta []float64) bool {
		var fresh []int
		for j, b := range beta {
			if b != 0 && !entered[j] {
				fresh = append(fresh, j)
			}
		}
		// 同時に入った特徴量は係数の大きい順
		sort.SliceStable(fresh, func(x, y int) bool {
			return math.Abs(beta[fresh[x]]) > math.Abs(beta[fresh[y]])
		})
		for _, j := range fresh {
			entered[j] = true
			order = append(order, j)
		}
		return len(order) < k
	})
	if len(order) > k {
		order = order[:k]
	}
	sort.Ints(order)
	return order
}

// informationCriterion はパス上で AIC/BIC が最小となる点の非ゼロ係数を返す
//
//	crit = n log(RSS/n) + c·df,  c = 2 (AIC) または log n (BIC)
func (a *augmented) informationCriterion(rule Rule) []int {
	nn := float64(a.n)
	penalty := 2.0
	if rule == RuleBIC {
		penalty = math.Log(nn)
	}

	best := math.Inf(1)
	var chosen []int
	r := make([]float64, a.n)
	a.path(func(_ float64, beta []float64) bool {
		copy(r, a.y)
		for j, b := range beta {
			if b != 0 {
				floats.AddScaled(r, -b, a.cols[j])
			}
		}
		rss := math.Max(floats.Dot(r, r), 1e-300)
		df := len(nonzero(beta))
		crit := nn*math.Log(rss/nn) + penalty*float64(df)
		if crit < best {
			best = crit
			chosen = nonzero(beta)
		}
		return true
	})
	if chosen == nil {
		chosen = []int{}
	}
	return chosen
}
