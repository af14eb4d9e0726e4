package coalition

import (
	"iter"

	"gonum.org/v1/gonum/stat/combin"
)

// Enumerate lazily yields all 2^m - 2 non-degenerate masks of m features,
// ordered by size with complementary sizes interleaved: size 1, size m-1,
// size 2, size m-2, and so on. Each yielded mask is freshly allocated.
func Enumerate(m int) iter.Seq[Mask] {
	return func(yield func(Mask) bool) {
		for s := 1; s <= m/2; s++ {
			if !yieldSize(m, s, yield) {
				return
			}
			if m-s != s {
				if !yieldSize(m, m-s, yield) {
					return
				}
			}
		}
	}
}

// EnumerateSize lazily yields every mask of m features with exactly s set.
func EnumerateSize(m, s int) iter.Seq[Mask] {
	return func(yield func(Mask) bool) {
		yieldSize(m, s, yield)
	}
}

func yieldSize(m, s int, yield func(Mask) bool) bool {
	if s < 1 || s >= m {
		return true
	}
	gen := combin.NewCombinationGenerator(m, s)
	idx := make([]int, s)
	for gen.Next() {
		gen.Combination(idx)
		if !yield(FromIndices(m, idx)) {
			return false
		}
	}
	return true
}
