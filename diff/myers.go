package diff

// myersDiff implements the classic Myers O(ND) algorithm: a forward
// search over the edit graph recording, for every explored diagonal k at
// every depth D, the furthest-reaching x coordinate reached on that
// diagonal (the "trace"), followed by a backtrack over the trace to
// recover the edit script.
//
// Grounded on the single-file V-array trace + backtrack shape used by
// teleivo-diff, generalized to emit the shared opScript representation
// instead of a dedicated Edit type.
func myersDiff(old, new []string) []Run {
	n, m := len(old), len(new)
	max := n + m
	if max == 0 {
		return nil
	}

	trace := shortestEditTrace(old, new, max)
	ops := backtrack(old, new, trace, n, m)
	return runsFromOps(ops)
}

// shortestEditTrace returns, for each depth D (0..len(trace)-1), the
// V-array snapshot at that depth. v is indexed by k+max to stay
// non-negative; v[k+max] holds the furthest x reached on diagonal k.
func shortestEditTrace(old, new []string, max int) [][]int {
	n, m := len(old), len(new)
	v := make([]int, 2*max+1)
	var trace [][]int

	for d := 0; d <= max; d++ {
		snapshot := make([]int, len(v))
		copy(snapshot, v)
		trace = append(trace, snapshot)

		for k := -d; k <= d; k += 2 {
			var x int
			if k == -d || (k != d && v[k-1+max] < v[k+1+max]) {
				x = v[k+1+max]
			} else {
				x = v[k-1+max] + 1
			}
			y := x - k

			for x < n && y < m && old[x] == new[y] {
				x++
				y++
			}

			v[k+max] = x

			if x >= n && y >= m {
				return trace
			}
		}
	}
	return trace
}

// backtrack walks the trace from the final depth back to depth 0,
// recovering the path taken through the edit graph and converting it
// into a line-ordered opScript (oldest line first).
func backtrack(old, new []string, trace [][]int, n, m int) opScript {
	max := n + m
	if max == 0 {
		return nil
	}

	x, y := n, m
	var reversed opScript

	for d := len(trace) - 1; d >= 0; d-- {
		v := trace[d]
		k := x - y

		var prevK int
		if k == -d || (k != d && v[k-1+max] < v[k+1+max]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := v[prevK+max]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			reversed = append(reversed, Equal)
			x--
			y--
		}

		if d > 0 {
			if x == prevX {
				reversed = append(reversed, Insert)
				y--
			} else {
				reversed = append(reversed, Delete)
				x--
			}
		}
	}

	ops := make(opScript, len(reversed))
	for i, op := range reversed {
		ops[len(reversed)-1-i] = op
	}
	return ops
}
