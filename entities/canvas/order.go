package canvas

import "math/rand/v2"

// newRevealOrder returns a uniformly random permutation of [0, n).
func newRevealOrder(n int, rng *rand.Rand) []int {
	if n <= 0 {
		return nil
	}
	return rng.Perm(n)
}

// visibleIndices selects the components drawn at stage: every index in
// list order at stage 0, otherwise the first len(order)-stage entries of
// the reveal order. The prefix is clamped to the permutation length.
func visibleIndices(stage int, order []int) []int {
	n := len(order)
	if stage == 0 {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	remaining := min(n-stage, n)
	if remaining <= 0 {
		return nil
	}
	return append([]int(nil), order[:remaining]...)
}
