package diff

// xdiffDiff implements Myers' divide-and-conquer bisect variant: rather
// than tracing the whole edit graph forward, it finds a single "middle
// snake" by running the forward and backward O(ND) frontiers toward each
// other until they overlap, splits the problem at that point, and
// recurses on the two halves. This keeps memory at O(N) instead of
// O(D^2) and is the algorithm selected by default.
//
// Grounded on the diffBisect/diffBisectSplit pair from the
// google-diff-match-patch-derived implementation in the pack, adapted
// from rune-level text diffing to line-level slice diffing.
func xdiffDiff(old, new []string) []Run {
	ops := bisectDiff(old, new)
	return runsFromOps(ops)
}

const xdiffHeuristicLimit = 4000

func bisectDiff(old, new []string) opScript {
	n, m := len(old), len(new)
	switch {
	case n == 0 && m == 0:
		return nil
	case n == 0:
		return repeatOp(Insert, m)
	case m == 0:
		return repeatOp(Delete, n)
	}

	// trim common prefix/suffix before doing any graph search.
	prefix := commonPrefix(old, new)
	old2, new2 := old[prefix:], new[prefix:]
	suffix := commonSuffix(old2, new2)
	mid := old2[:len(old2)-suffix]
	midNew := new2[:len(new2)-suffix]

	var ops opScript
	ops = append(ops, repeatOp(Equal, prefix)...)
	ops = append(ops, bisectCore(mid, midNew)...)
	ops = append(ops, repeatOp(Equal, suffix)...)
	return ops
}

func bisectCore(old, new []string) opScript {
	n, m := len(old), len(new)
	switch {
	case n == 0 && m == 0:
		return nil
	case n == 0:
		return repeatOp(Insert, m)
	case m == 0:
		return repeatOp(Delete, n)
	case n == 1 && m == 1:
		if old[0] == new[0] {
			return opScript{Equal}
		}
		return opScript{Delete, Insert}
	}

	if n+m > xdiffHeuristicLimit*2 {
		// Heuristic fallback for very large inputs (more than
		// 2*xdiffHeuristicLimit lines in total, whatever their
		// similarity): avoid the O(ND) bisect cost entirely and fall back
		// to the cheaper windowed match.
		return naiveOps(old, new)
	}

	// Both halves go back through bisectDiff so that their common
	// prefix/suffix is trimmed before bisect sees them.
	if sx, sy, sl := middleSnake(old, new); sl > 0 {
		left := bisectDiff(old[:sx-sl], new[:sy-sl])
		right := bisectDiff(old[sx:], new[sy:])
		mid := repeatOp(Equal, sl)
		out := append(left, mid...)
		return append(out, right...)
	}

	x, y := bisect(old, new)
	left := bisectDiff(old[:x], new[:y])
	right := bisectDiff(old[x:], new[y:])
	return append(left, right...)
}

// middleSnake looks for a snake (a run of matching lines) at the very
// beginning of both inputs, i.e. a common prefix; when present it lets us
// skip the full bisect search. A snake ending at the end of the inputs is
// not looked for here.
func middleSnake(old, new []string) (x, y, l int) {
	n, m := len(old), len(new)
	best := 0
	bx, by := 0, 0
	limit := n
	if m < limit {
		limit = m
	}
	for i := 0; i < limit; i++ {
		if old[i] != new[i] {
			break
		}
		best++
		bx, by = i+1, i+1
	}
	if best > 0 {
		return bx, by, best
	}
	return 0, 0, 0
}

// bisect finds a middle point (x, y) on the edit graph for old x new by
// running forward and backward frontiers and returning the first point
// where they meet. For inputs with no common prefix or suffix (as
// bisectDiff leaves them) it always terminates with a split point that
// divides both inputs into smaller parts, even if that point does not lie
// on a maximal snake.
func bisect(old, new []string) (x, y int) {
	n, m := len(old), len(new)
	maxD := (n + m + 1) / 2
	vOffset := maxD
	vLen := 2*maxD + 1

	v1 := make([]int, vLen)
	v2 := make([]int, vLen)
	for i := range v1 {
		v1[i] = -1
		v2[i] = -1
	}
	v1[vOffset+1] = 0
	v2[vOffset+1] = 0

	delta := n - m
	front := delta%2 != 0

	for d := 0; d < maxD; d++ {
		for k1 := -d; k1 <= d; k1 += 2 {
			k1Off := k1 + vOffset
			var x1 int
			if k1 == -d || (k1 != d && v1[k1Off-1] < v1[k1Off+1]) {
				x1 = v1[k1Off+1]
			} else {
				x1 = v1[k1Off-1] + 1
			}
			y1 := x1 - k1
			for x1 < n && y1 < m && old[x1] == new[y1] {
				x1++
				y1++
			}
			v1[k1Off] = x1

			if front {
				k2Off := (delta - k1) + vOffset
				if k2Off >= 0 && k2Off < vLen && v2[k2Off] != -1 {
					x2 := n - v2[k2Off]
					if x1 >= x2 {
						return x1, y1
					}
				}
			}
		}

		for k2 := -d; k2 <= d; k2 += 2 {
			k2Off := k2 + vOffset
			var x2 int
			if k2 == -d || (k2 != d && v2[k2Off-1] < v2[k2Off+1]) {
				x2 = v2[k2Off+1]
			} else {
				x2 = v2[k2Off-1] + 1
			}
			y2 := x2 - k2
			for x2 < n && y2 < m && old[n-x2-1] == new[m-y2-1] {
				x2++
				y2++
			}
			v2[k2Off] = x2

			if !front {
				k1Off := (delta - k2) + vOffset
				if k1Off >= 0 && k1Off < vLen && v1[k1Off] != -1 {
					x1 := v1[k1Off]
					if x1 >= n-x2 {
						return x1, x1 - (delta - k2)
					}
				}
			}
		}
	}

	// Should be unreachable for finite inputs; split down the middle as
	// a last resort.
	return n / 2, m / 2
}

func commonPrefix(a, b []string) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func commonSuffix(a, b []string) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	return i
}

func repeatOp(k RunKind, n int) opScript {
	if n <= 0 {
		return nil
	}
	ops := make(opScript, n)
	for i := range ops {
		ops[i] = k
	}
	return ops
}
