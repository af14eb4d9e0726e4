package linear

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/kernelshap/coalition"
	"github.com/YuminosukeSato/kernelshap/pkg/errors"
)

// exhaustiveDesign は全連合のマスク行列とカーネル重みを作る
func exhaustiveDesign(m int) (*mat.Dense, []float64) {
	var rows [][]float64
	var w []float64
	for mask := range coalition.Enumerate(m) {
		row := make([]float64, m)
		for j, on := range mask {
			if on {
				row[j] = 1
			}
		}
		rows = append(rows, row)
		w = append(w, coalition.KernelWeight(m, mask.Size()))
	}
	Z := mat.NewDense(len(rows), m, nil)
	for i, r := range rows {
		Z.SetRow(i, r)
	}
	return Z, w
}

// linearTargets は y = Z·coef を返す
func linearTargets(Z *mat.Dense, coef ...[]float64) *mat.Dense {
	n, _ := Z.Dims()
	Y := mat.NewDense(n, len(coef), nil)
	for d, c := range coef {
		for i := 0; i < n; i++ {
			Y.Set(i, d, mat.Dot(Z.RowView(i), mat.NewVecDense(len(c), c)))
		}
	}
	return Y
}

func TestSolveConstrainedLinearModel(t *testing.T) {
	Z, w := exhaustiveDesign(3)
	Y := linearTargets(Z, []float64{1, 2, 0})

	res, err := SolveConstrained(Z, w, Y, []float64{3})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2, 0}, mat.Col(nil, 0, res.Phi), 1e-10)
	assert.False(t, res.Degenerate[0])
	assert.Equal(t, 3, res.Rank[0])
	assert.InDelta(t, 1.0, res.R2[0], 1e-10)
	assert.Equal(t, []int{0, 1, 2}, res.Selected[0])
}

func TestSolveConstrainedMultiOutput(t *testing.T) {
	Z, w := exhaustiveDesign(4)
	Y := linearTargets(Z, []float64{1, -1, 0.5, 0}, []float64{0, 0, 0, 2})

	res, err := SolveConstrained(Z, w, Y, []float64{0.5, 2}, WithWorkers(2))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, -1, 0.5, 0}, mat.Col(nil, 0, res.Phi), 1e-10)
	assert.InDeltaSlice(t, []float64{0, 0, 0, 2}, mat.Col(nil, 1, res.Phi), 1e-10)
}

func TestSolveConstrainedEnforcesTotal(t *testing.T) {
	// 非線形な目的変数でも Σφ = total は厳密に成り立つ
	Z, w := exhaustiveDesign(4)
	n, _ := Z.Dims()
	Y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		Y.Set(i, 0, Z.At(i, 0)*Z.At(i, 1)+Z.At(i, 2))
	}
	res, err := SolveConstrained(Z, w, Y, []float64{2})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, mat.Sum(res.Phi), 1e-12)
	// 交互作用は等分される
	assert.InDelta(t, res.Phi.At(0, 0), res.Phi.At(1, 0), 1e-10)
	assert.InDelta(t, 0.5, res.Phi.At(0, 0), 1e-10)
	assert.InDelta(t, 1.0, res.Phi.At(2, 0), 1e-10)
	assert.InDelta(t, 0.0, res.Phi.At(3, 0), 1e-10)
}

func TestSolveConstrainedDegenerate(t *testing.T) {
	// 特徴量0と1が常に同時に変化する計画
	Z := mat.NewDense(2, 3, []float64{
		1, 1, 0,
		0, 0, 1,
	})
	Y := mat.NewDense(2, 1, []float64{2, 1})

	res, err := SolveConstrained(Z, []float64{1, 1}, Y, []float64{3})
	require.NoError(t, err)
	assert.True(t, res.Degenerate[0])
	assert.InDeltaSlice(t, []float64{1, 1, 1}, mat.Col(nil, 0, res.Phi), 1e-9)
}

func TestSolveOutputSmallCases(t *testing.T) {
	Z := mat.NewDense(1, 3, []float64{1, 0, 0})

	sol := solveOutput(Z, []float64{1}, []float64{5}, 4, 3, []int{}, DefaultConditionLimit)
	assert.Equal(t, []float64{0, 0, 0}, sol.phi)

	sol = solveOutput(Z, []float64{1}, []float64{5}, 4, 3, []int{1}, DefaultConditionLimit)
	assert.Equal(t, []float64{0, 4, 0}, sol.phi)
}

func TestSolveConstrainedErrors(t *testing.T) {
	Z := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	Y := mat.NewDense(2, 1, []float64{1, 1})

	_, err := SolveConstrained(Z, []float64{1}, Y, []float64{2})
	assert.True(t, errors.Is(err, errors.ErrShapeMismatch))

	_, err = SolveConstrained(Z, []float64{1, 1}, Y, []float64{2, 3})
	assert.True(t, errors.Is(err, errors.ErrShapeMismatch))

	_, err = SolveConstrained(Z, []float64{1, -1}, Y, []float64{2})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = SolveConstrained(Z, []float64{1, 1}, Y, []float64{2}, WithSelection(Selection{Rule: RuleAlpha}))
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		in      string
		want    Rule
		wantErr bool
	}{
		{"", RuleOff, false},
		{"AIC", RuleAIC, false},
		{"num_features", RuleNumFeatures, false},
		{"lars", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRule(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, errors.ErrInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Error(t, Selection{Rule: RuleNumFeatures}.Validate())
	assert.NoError(t, Selection{Rule: RuleNumFeatures, K: 2}.Validate())
}

func TestSelectFeatures(t *testing.T) {
	Z, w := exhaustiveDesign(4)
	coef := []float64{3, 1, 0, 0}
	y := mat.Col(nil, 0, linearTargets(Z, coef))

	t.Run("off", func(t *testing.T) {
		sel, err := SelectFeatures(Z, w, y, 4, Selection{Rule: RuleOff}, 0.01)
		require.NoError(t, err)
		assert.Nil(t, sel)
	})

	t.Run("auto with full coverage", func(t *testing.T) {
		sel, err := SelectFeatures(Z, w, y, 4, Selection{Rule: RuleAuto}, 1)
		require.NoError(t, err)
		assert.Nil(t, sel)
	})

	t.Run("num features", func(t *testing.T) {
		sel, err := SelectFeatures(Z, w, y, 4, Selection{Rule: RuleNumFeatures, K: 2}, 1)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1}, sel)
	})

	t.Run("large alpha keeps the last feature", func(t *testing.T) {
		sel, err := SelectFeatures(Z, w, y, 4, Selection{Rule: RuleAlpha, Alpha: 1e6}, 1)
		require.NoError(t, err)
		assert.Equal(t, []int{3}, sel)
	})

	t.Run("aic keeps informative features", func(t *testing.T) {
		sel, err := SelectFeatures(Z, w, y, 4, Selection{Rule: RuleAIC}, 1)
		require.NoError(t, err)
		assert.Contains(t, sel, 0)
		assert.Contains(t, sel, 1)
	})
}

func TestSolveConstrainedWithSelection(t *testing.T) {
	Z, w := exhaustiveDesign(4)
	Y := linearTargets(Z, []float64{3, 1, 0, 0})

	res, err := SolveConstrained(Z, w, Y, []float64{4},
		WithSelection(Selection{Rule: RuleNumFeatures, K: 2}))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, res.Selected[0])
	assert.InDeltaSlice(t, []float64{3, 1, 0, 0}, mat.Col(nil, 0, res.Phi), 1e-10)

	res, err = SolveConstrained(Z, w, Y, []float64{4},
		WithSelection(Selection{Rule: RuleBIC}))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{3, 1, 0, 0}, mat.Col(nil, 0, res.Phi), 1e-8)
}

func TestSolveConstrainedEmptySelectionKeepsTotal(t *testing.T) {
	Z, w := exhaustiveDesign(4)
	Y := linearTargets(Z, []float64{3, 1, 0, 0})

	// 罰則が大きすぎて LASSO が全係数を 0 にする場合でも合計は保たれる
	res, err := SolveConstrained(Z, w, Y, []float64{4},
		WithSelection(Selection{Rule: RuleAlpha, Alpha: 1e6}))
	require.NoError(t, err)
	assert.Equal(t, []int{3}, res.Selected[0])
	assert.InDeltaSlice(t, []float64{0, 0, 0, 4}, mat.Col(nil, 0, res.Phi), 1e-12)
	assert.InDelta(t, 4.0, floats.Sum(mat.Col(nil, 0, res.Phi)), 1e-12)
}
