// Package background holds the reference distribution that absent features are
// drawn from, together with the summarizers (subsampling, weighted k-means)
// that keep it small and a bounded cache of summarized sets.
package background

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/kernelshap/pkg/errors"
)

// Set is an immutable K×M background sample with non-negative weights that
// sum to one. It is safe for concurrent reads.
type Set struct {
	data    *mat.Dense
	weights []float64
}

// NewSet copies data and validates weights. A nil weights slice means
// uniform weights; otherwise it must have one non-negative entry per row with
// a positive sum, and it is normalized.
func NewSet(data mat.Matrix, weights []float64) (*Set, error) {
	const op = "background.NewSet"
	if data == nil {
		return nil, errors.NewInvalidInputError(op, "data", "background data is nil", nil)
	}
	r, c := data.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewInvalidInputError(op, "data", "background must have at least one row and one feature", []int{r, c})
	}
	dense := mat.DenseCopyOf(data)
	if err := errors.CheckNumericalStability(op, dense.RawMatrix().Data); err != nil {
		return nil, err
	}

	w := make([]float64, r)
	if weights == nil {
		for i := range w {
			w[i] = 1 / float64(r)
		}
		return &Set{data: dense, weights: w}, nil
	}

	if len(weights) != r {
		return nil, errors.NewInvalidInputError(op, "weights", "one weight per background row is required", len(weights))
	}
	for i, v := range weights {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NewInvalidInputError(op, "weights", "weights must be finite and non-negative", v)
		}
		w[i] = v
	}
	sum := floats.Sum(w)
	if sum <= 0 {
		return nil, errors.NewInvalidInputError(op, "weights", "weights must have a positive sum", sum)
	}
	floats.Scale(1/sum, w)
	return &Set{data: dense, weights: w}, nil
}

// Rows returns K.
func (s *Set) Rows() int {
	r, _ := s.data.Dims()
	return r
}

// Features returns M.
func (s *Set) Features() int {
	_, c := s.data.Dims()
	return c
}

// Row returns a copy of background row k.
func (s *Set) Row(k int) []float64 {
	return mat.Row(nil, k, s.data)
}

// RowView returns background row k without copying. The slice must not be
// modified.
func (s *Set) RowView(k int) []float64 {
	return s.data.RawRowView(k)
}

// At returns the value of feature j in background row k.
func (s *Set) At(k, j int) float64 {
	return s.data.At(k, j)
}

// Weight returns the normalized weight of row k.
func (s *Set) Weight(k int) float64 {
	return s.weights[k]
}

// Weights returns a copy of the normalized weights.
func (s *Set) Weights() []float64 {
	w := make([]float64, len(s.weights))
	copy(w, s.weights)
	return w
}

// Data returns a copy of the background matrix.
func (s *Set) Data() *mat.Dense {
	return mat.DenseCopyOf(s.data)
}

// Varying returns the indices of the features for which at least one
// background row differs from x. Values are compared with an absolute
// tolerance of 1e-8 plus a relative tolerance of 1e-5, and two NaNs compare
// equal. Features outside the result cannot change any synthetic row.
func (s *Set) Varying(x []float64) ([]int, error) {
	if len(x) != s.Features() {
		return nil, errors.NewDimensionError("background.Varying", s.Features(), len(x))
	}
	var varying []int
	for j, xv := range x {
		for k := 0; k < s.Rows(); k++ {
			if !isClose(xv, s.data.At(k, j)) {
				varying = append(varying, j)
				break
			}
		}
	}
	return varying, nil
}

func isClose(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= 1e-8+1e-5*math.Abs(b)
}
