package coalition

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/YuminosukeSato/kernelshap/pkg/errors"
)

const (
	// Auto selects a budget of 2M + 2048 coalitions.
	Auto = -1
	// Exhaustive evaluates every coalition; it requires M <= MaxExhaustiveFeatures.
	Exhaustive = -2

	// MaxExhaustiveFeatures bounds exhaustive enumeration.
	MaxExhaustiveFeatures = 30
)

// ResolveBudget turns a configured budget (a positive count, Auto or
// Exhaustive) into the number of non-anchor coalitions to evaluate for m
// features.
func ResolveBudget(m, budget int) (int, error) {
	const op = "coalition.ResolveBudget"
	if m < 1 {
		return 0, errors.NewInvalidInputError(op, "features", "at least one feature is required", m)
	}
	switch {
	case budget == Auto:
		return 2*m + 2048, nil
	case budget == Exhaustive:
		if m > MaxExhaustiveFeatures {
			return 0, errors.NewInvalidInputError(op, "nsamples",
				"exhaustive enumeration is limited to 30 varying features", m)
		}
		return int(SpaceSize(m)), nil
	case budget > 0:
		return budget, nil
	case budget == 0 && m == 1:
		return 0, nil
	default:
		return 0, errors.NewInvalidInputError(op, "nsamples", "coalition budget must be positive, Auto or Exhaustive", budget)
	}
}

// Coalition is a mask and its weight in the regression. The two anchors carry
// an infinite weight.
type Coalition struct {
	Mask   Mask
	Weight float64
}

// Plan is the deduplicated list of coalitions to evaluate for one instance.
// Entries[0] is the all-false anchor and Entries[1] the all-true anchor.
type Plan struct {
	// M is the number of features the masks range over.
	M int
	// Entries holds the anchors followed by the weighted coalitions.
	Entries []Coalition
	// Exhaustive reports that every coalition was enumerated.
	Exhaustive bool
	// FullSizes is the number of coalition sizes (counting a size and its
	// complement once) that were enumerated completely.
	FullSizes int
}

// Interior returns the coalitions after the two anchors.
func (p *Plan) Interior() []Coalition {
	return p.Entries[2:]
}

// Len returns the number of entries including the anchors.
func (p *Plan) Len() int {
	return len(p.Entries)
}

// Masks returns every mask in plan order.
func (p *Plan) Masks() []Mask {
	out := make([]Mask, len(p.Entries))
	for i, c := range p.Entries {
		out[i] = c.Mask
	}
	return out
}

// SpaceFraction returns the share of the 2^M - 2 coalition space covered by
// the interior coalitions.
func (p *Plan) SpaceFraction() float64 {
	space := SpaceSize(p.M)
	if space <= 0 {
		return 1
	}
	return float64(len(p.Entries)-2) / space
}

// NewPlan builds the coalition plan for m features under budget, which is a
// positive count, Auto or Exhaustive.
//
// When the whole space fits the budget every coalition is listed with its
// kernel weight. Otherwise coalition sizes are visited from the outside in
// (size s together with m-s): sizes whose complete enumeration fits their
// share of the remaining budget are enumerated, and the rest of the budget is
// sampled by drawing a size from the remaining size distribution and then a
// uniform mask of that size together with its complement. Repeated draws add
// to the weight of the existing entry, and sampled weights are rescaled to the
// kernel mass of the sizes that were not enumerated.
func NewPlan(m, budget int, rng *rand.Rand) (*Plan, error) {
	n, err := ResolveBudget(m, budget)
	if err != nil {
		return nil, err
	}
	p := &Plan{
		M: m,
		Entries: []Coalition{
			{Mask: Empty(m), Weight: math.Inf(1)},
			{Mask: Full(m), Weight: math.Inf(1)},
		},
	}
	if m == 1 {
		p.Exhaustive = true
		return p, nil
	}

	if SpaceSize(m) <= float64(n) {
		p.Exhaustive = true
		p.FullSizes = m / 2
		for mask := range Enumerate(m) {
			p.Entries = append(p.Entries, Coalition{Mask: mask, Weight: KernelWeight(m, mask.Size())})
		}
		return p, nil
	}

	if rng == nil {
		return nil, errors.NewInvalidInputError("coalition.NewPlan", "rng", "a random source is required for sampled plans", nil)
	}
	b := &planBuilder{plan: p, index: make(map[string]int)}
	b.stratified(n, rng)
	return p, nil
}

type planBuilder struct {
	plan  *Plan
	index map[string]int
}

// add appends mask with weight, or accumulates weight into an existing entry.
// It reports whether a new entry was created.
func (b *planBuilder) add(mask Mask, weight float64) bool {
	key := mask.Key()
	if i, ok := b.index[key]; ok {
		b.plan.Entries[i].Weight += weight
		return false
	}
	b.index[key] = len(b.plan.Entries)
	b.plan.Entries = append(b.plan.Entries, Coalition{Mask: mask, Weight: weight})
	return true
}

func (b *planBuilder) stratified(budget int, rng *rand.Rand) {
	m := b.plan.M
	numSizes := m / 2 // ceil((m-1)/2)
	numPaired := (m - 1) / 2

	// サイズごとのカーネル質量（補集合サイズと対にしたものは2倍）
	sizeWeights := make([]float64, numSizes)
	for i := range sizeWeights {
		s := i + 1
		sizeWeights[i] = SizeWeight(m, s)
		if s <= numPaired {
			sizeWeights[i] *= 2
		}
	}
	floats.Scale(1/floats.Sum(sizeWeights), sizeWeights)

	remaining := make([]float64, numSizes)
	copy(remaining, sizeWeights)
	samplesLeft := float64(budget)

	// 予算の取り分に全列挙が収まるサイズは全列挙する
	full := 0
	for i := 0; i < numSizes; i++ {
		s := i + 1
		paired := s <= numPaired
		nsubsets := binomial(m, s)
		if paired {
			nsubsets *= 2
		}
		if samplesLeft*remaining[i]/nsubsets < 1-1e-8 {
			break
		}
		full++
		samplesLeft -= nsubsets
		if remaining[i] < 1 {
			floats.Scale(1/(1-remaining[i]), remaining)
		}

		w := sizeWeights[i] / binomial(m, s)
		if paired {
			w /= 2
		}
		for mask := range EnumerateSize(m, s) {
			b.add(mask, w)
			if paired {
				b.add(mask.Complement(), w)
			}
		}
	}
	b.plan.FullSizes = full
	if full == numSizes {
		return
	}

	fixed := len(b.plan.Entries)
	left := budget - (fixed - 2)
	if left <= 0 {
		return
	}

	// 残りのサイズ分布（補集合は同時に追加されるため対のサイズは半分）
	dist := make([]float64, numSizes-full)
	for i := range dist {
		s := full + i + 1
		dist[i] = sizeWeights[full+i]
		if s <= numPaired {
			dist[i] /= 2
		}
	}
	floats.Scale(1/floats.Sum(dist), dist)
	cum := make([]float64, len(dist))
	floats.CumSum(cum, dist)

	maxDraws := 4 * left
	for draw := 0; left > 0 && draw < maxDraws; draw++ {
		i := sort.SearchFloat64s(cum, rng.Float64())
		if i >= len(cum) {
			i = len(cum) - 1
		}
		s := full + i + 1

		mask := Empty(m)
		for _, j := range rng.Perm(m)[:s] {
			mask[j] = true
		}
		if b.add(mask, 1) {
			left--
		}
		if left > 0 && s <= numPaired {
			if b.add(mask.Complement(), 1) {
				left--
			}
		}
	}

	// 抽出した重みを未列挙サイズのカーネル質量に合わせる
	sampled := b.plan.Entries[fixed:]
	if len(sampled) == 0 {
		return
	}
	total := 0.0
	for _, c := range sampled {
		total += c.Weight
	}
	weightLeft := floats.Sum(sizeWeights[full:])
	for i := range sampled {
		sampled[i].Weight *= weightLeft / total
	}
}
