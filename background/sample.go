package background

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/kernelshap/pkg/errors"
)

// Sample draws k rows of data uniformly without replacement and returns them
// as a uniformly weighted Set. When k is at least the number of rows every row
// is kept in its original order. The same seed always selects the same rows.
func Sample(data mat.Matrix, k int, seed int64) (*Set, error) {
	const op = "background.Sample"
	if data == nil {
		return nil, errors.NewInvalidInputError(op, "data", "background data is nil", nil)
	}
	n, m := data.Dims()
	if n == 0 || m == 0 {
		return nil, errors.NewInvalidInputError(op, "data", "cannot sample from empty data", []int{n, m})
	}
	if k < 1 {
		return nil, errors.NewInvalidInputError(op, "k", "sample size must be at least 1", k)
	}
	if k >= n {
		return NewSet(data, nil)
	}

	rng := rand.New(rand.NewSource(seed))
	idx := rng.Perm(n)[:k]

	out := mat.NewDense(k, m, nil)
	row := make([]float64, m)
	for i, src := range idx {
		mat.Row(row, src, data)
		out.SetRow(i, row)
	}
	return NewSet(out, nil)
}
