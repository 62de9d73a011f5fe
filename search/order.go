package search

import "errors"

var errNotPermutation = errors.New("search: order is not a permutation")

// Order maps each original palette index to its output slot.
type Order []byte

// Identity returns the identity order for n colors.
func Identity(n int) Order {
	o := make(Order, n)
	for i := range o {
		o[i] = byte(i)
	}
	return o
}

// Swap exchanges the output slots of original indices i and j.
func (o Order) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
}

// Clone returns a copy of o.
func (o Order) Clone() Order {
	return append(Order(nil), o...)
}

// Valid reports whether o is a bijection on [0, len(o)).
func (o Order) Valid() bool {
	if len(o) > 256 {
		return false
	}
	var seen [256]bool
	for _, v := range o {
		if int(v) >= len(o) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// Inverse returns the mapping from output slot to original index, which is
// the order the palette entries should be emitted in.
func (o Order) Inverse() []int {
	inv := make([]int, len(o))
	for i, v := range o {
		inv[v] = i
	}
	return inv
}
