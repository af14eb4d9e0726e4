package coalition

import (
	"math"

	"gonum.org/v1/gonum/stat/combin"
)

// KernelWeight returns the Shapley kernel weight of a coalition of size s
// among m features:
//
//	(m-1) / (C(m,s) * s * (m-s))
//
// The binomial is evaluated in log space so large m does not overflow. The
// degenerate sizes s = 0 and s = m have infinite weight; those coalitions are
// enforced as constraints instead of being weighted.
func KernelWeight(m, s int) float64 {
	if s <= 0 || s >= m {
		return math.Inf(1)
	}
	logW := math.Log(float64(m-1)) -
		combin.LogGeneralizedBinomial(float64(m), float64(s)) -
		math.Log(float64(s)) -
		math.Log(float64(m-s))
	return math.Exp(logW)
}

// SizeWeight returns the total kernel mass of all coalitions of size s,
// (m-1)/(s(m-s)).
func SizeWeight(m, s int) float64 {
	if s <= 0 || s >= m {
		return math.Inf(1)
	}
	return float64(m-1) / (float64(s) * float64(m-s))
}

// SpaceSize returns the number of non-degenerate coalitions, 2^m - 2, as a
// float64 so that large m does not overflow.
func SpaceSize(m int) float64 {
	if m < 1 {
		return 0
	}
	return math.Exp2(float64(m)) - 2
}

// binomial returns C(n,k) as a float64.
func binomial(n, k int) float64 {
	if n <= 50 {
		return float64(combin.Binomial(n, k))
	}
	return math.Round(math.Exp(combin.LogGeneralizedBinomial(float64(n), float64(k))))
}
