// Package coalition enumerates and samples feature coalitions and assigns
// them their Shapley kernel weights.
package coalition

// Mask marks which features are taken from the instance (true) and which from
// the background (false).
type Mask []bool

// Empty returns the all-false mask of length m.
func Empty(m int) Mask {
	return make(Mask, m)
}

// Full returns the all-true mask of length m.
func Full(m int) Mask {
	mask := make(Mask, m)
	for i := range mask {
		mask[i] = true
	}
	return mask
}

// FromIndices returns a mask of length m with the given features set.
func FromIndices(m int, idx []int) Mask {
	mask := make(Mask, m)
	for _, i := range idx {
		mask[i] = true
	}
	return mask
}

// Size returns the number of features taken from the instance.
func (m Mask) Size() int {
	n := 0
	for _, on := range m {
		if on {
			n++
		}
	}
	return n
}

// Complement returns a new mask with every entry flipped.
func (m Mask) Complement() Mask {
	out := make(Mask, len(m))
	for i, on := range m {
		out[i] = !on
	}
	return out
}

// Clone returns a copy of m.
func (m Mask) Clone() Mask {
	out := make(Mask, len(m))
	copy(out, m)
	return out
}

// Key returns a compact string identifying m, usable as a map key.
func (m Mask) Key() string {
	b := make([]byte, len(m))
	for i, on := range m {
		if on {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}

// Indices returns the positions of the set features in increasing order.
func (m Mask) Indices() []int {
	idx := make([]int, 0, len(m))
	for i, on := range m {
		if on {
			idx = append(idx, i)
		}
	}
	return idx
}

// String renders m as a bit string, e.g. "0110".
func (m Mask) String() string {
	return m.Key()
}
