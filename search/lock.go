package search

// LockMask marks original palette indices that must keep their output slot.
// The zero value locks nothing.
type LockMask struct {
	locked []bool
}

// NewLockMask returns a LockMask over n colors with the given indices
// locked. Indices outside [0, n) are ignored and returned so the caller can
// warn about them.
func NewLockMask(n int, indices []int) (LockMask, []int) {
	var ignored []int
	locked := make([]bool, n)
	for _, i := range indices {
		if i < 0 || i >= n {
			ignored = append(ignored, i)
			continue
		}
		locked[i] = true
	}
	return LockMask{locked: locked}, ignored
}

// IsLocked reports whether index i is locked.
func (m LockMask) IsLocked(i int) bool {
	return i >= 0 && i < len(m.locked) && m.locked[i]
}

// Unlocked returns the indices in [0, n) that are not locked, in ascending
// order.
func (m LockMask) Unlocked(n int) []int {
	free := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if !m.IsLocked(i) {
			free = append(free, i)
		}
	}
	return free
}

// Locked returns the locked indices in ascending order.
func (m LockMask) Locked() []int {
	var l []int
	for i, v := range m.locked {
		if v {
			l = append(l, i)
		}
	}
	return l
}
