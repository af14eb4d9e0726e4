package explainer

import (
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/kernelshap/core/model"
	"github.com/YuminosukeSato/kernelshap/pkg/errors"
)

// Explanation is the attribution of one instance's prediction to its
// features. It is not modified after it is returned.
type Explanation struct {
	// Instance is a copy of the explained feature vector.
	Instance []float64
	// BaseValues holds link(E_bg[f]) per output.
	BaseValues []float64
	// OutputValues holds link(f(x)) per output.
	OutputValues []float64
	// Attributions is the M×D matrix of feature attributions.
	Attributions *mat.Dense
	// Link is the name of the link function the attributions are expressed in.
	Link string
	// Varying lists the features that differ from at least one background
	// row; every other feature has a zero attribution.
	Varying []int
	// NumCoalitions counts the coalitions used, the two anchors included.
	NumCoalitions int
	// ModelCalls counts the calls made into the model for this instance.
	ModelCalls int
	// Exhaustive reports that every coalition was evaluated.
	Exhaustive bool
	// Degenerate reports that at least one output needed the pseudo-inverse.
	Degenerate bool
	// AdditivityGap holds Σφ_d - (out_d - base_d) per output.
	AdditivityGap []float64
	// AdditivityOK reports that every gap is within tolerance.
	AdditivityOK bool
	// FitR2 is the weighted R² of the surrogate linear fit per output; NaN
	// when no interior coalition was evaluated.
	FitR2 []float64
	// SelectedFeatures counts the features kept by L1 selection per output.
	SelectedFeatures []int
}

// NumFeatures returns M.
func (e *Explanation) NumFeatures() int {
	r, _ := e.Attributions.Dims()
	return r
}

// NumOutputs returns D.
func (e *Explanation) NumOutputs() int {
	_, c := e.Attributions.Dims()
	return c
}

// Values returns a copy of the attributions for output d.
func (e *Explanation) Values(d int) []float64 {
	return mat.Col(nil, d, e.Attributions)
}

// Sum returns the sum of the attributions for output d.
func (e *Explanation) Sum(d int) float64 {
	var s float64
	for i := 0; i < e.NumFeatures(); i++ {
		s += e.Attributions.At(i, d)
	}
	return s
}

// TopFeatures returns the indices of the n features with the largest absolute
// attribution for output d, largest first. Ties keep feature order.
func (e *Explanation) TopFeatures(d, n int) []int {
	vals := e.Values(d)
	idx := make([]int, len(vals))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return math.Abs(vals[idx[a]]) > math.Abs(vals[idx[b]])
	})
	if n < len(idx) && n >= 0 {
		idx = idx[:n]
	}
	return idx
}

// Save writes the explanation in gob format.
func (e *Explanation) Save(w io.Writer) error {
	return model.SaveToWriter(e, w)
}

// LoadExplanation reads an explanation written by Save.
func LoadExplanation(r io.Reader) (*Explanation, error) {
	var e Explanation
	if err := model.LoadFromReader(&e, r); err != nil {
		return nil, err
	}
	if e.Attributions == nil {
		return nil, errors.NewInvalidInputError("explainer.LoadExplanation", "attributions", "decoded explanation has no attributions", nil)
	}
	return &e, nil
}

// checkAdditivity returns the per-output gap Σφ_d - (out_d - base_d), whether
// all gaps satisfy |gap| <= tol·max(1, |out_d - base_d|), and the output with
// the largest relative violation.
func checkAdditivity(phi *mat.Dense, out, base []float64, tol float64) ([]float64, bool, int) {
	m, d := phi.Dims()
	gaps := make([]float64, d)
	ok := true
	worst, worstRatio := -1, 0.0
	for o := 0; o < d; o++ {
		var sum float64
		for j := 0; j < m; j++ {
			sum += phi.At(j, o)
		}
		diff := out[o] - base[o]
		gaps[o] = sum - diff
		limit := tol * math.Max(1, math.Abs(diff))
		if ratio := math.Abs(gaps[o]) / limit; ratio > 1 || math.IsNaN(ratio) {
			ok = false
			if ratio > worstRatio || math.IsNaN(ratio) {
				worst, worstRatio = o, ratio
			}
		}
	}
	return gaps, ok, worst
}
