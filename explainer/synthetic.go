package explainer

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/kernelshap/background"
	"github.com/YuminosukeSato/kernelshap/coalition"
	"github.com/YuminosukeSato/kernelshap/pkg/errors"
)

// fillSynthetic writes bg.Rows() rows per mask into dst, starting at row 0.
// mask[v] refers to feature varying[v]: when set, the instance value is used,
// otherwise the background value. Features outside varying keep their
// background value.
func fillSynthetic(dst *mat.Dense, x []float64, varying []int, masks []coalition.Mask, bg *background.Set) {
	k := bg.Rows()
	for i, mask := range masks {
		for r := 0; r < k; r++ {
			row := dst.RawRowView(i*k + r)
			copy(row, bg.RowView(r))
			for v, on := range mask {
				if on {
					j := varying[v]
					row[j] = x[j]
				}
			}
		}
	}
}

// Synthesize returns the K synthetic instances for one full-length mask: row
// k holds the instance value of feature j where mask[j] is set and background
// row k's value elsewhere.
func Synthesize(x []float64, mask coalition.Mask, bg *background.Set) (*mat.Dense, error) {
	const op = "explainer.Synthesize"
	if bg == nil {
		return nil, errors.NewInvalidInputError(op, "background", "background set is nil", nil)
	}
	m := bg.Features()
	if len(x) != m {
		return nil, errors.NewDimensionError(op, m, len(x))
	}
	if len(mask) != m {
		return nil, errors.NewInvalidInputError(op, "mask", "mask length must equal the number of features", len(mask))
	}
	all := make([]int, m)
	for j := range all {
		all[j] = j
	}
	dst := mat.NewDense(bg.Rows(), m, nil)
	fillSynthetic(dst, x, all, []coalition.Mask{mask}, bg)
	return dst, nil
}
