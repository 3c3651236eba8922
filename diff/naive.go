package diff

// naiveW is the lookahead window used by the Naive algorithm to decide
// whether a mismatch is better explained as a pending insert, a pending
// delete, or an unrelated line-for-line replacement.
const naiveW = 10

// naiveDiff implements a simple greedy, windowed line matcher: it walks
// old and new in lockstep, and on a mismatch looks up to naiveW lines
// ahead in both inputs for the nearest resynchronization point rather
// than running a full alignment search. It is fast and adequate for
// small, mostly-similar inputs, but can easily misalign large or very
// dissimilar ones.
func naiveDiff(old, new []string) []Run {
	return runsFromOps(naiveOps(old, new))
}

func naiveOps(old, new []string) opScript {
	n, m := len(old), len(new)
	var ops opScript
	i, j := 0, 0

	for i < n && j < m {
		if old[i] == new[j] {
			ops = append(ops, Equal)
			i++
			j++
			continue
		}

		di, dj, found := nearestResync(old, new, i, j)
		if !found {
			// No resync within the window: treat as a straight
			// replacement of this one line and keep walking.
			ops = append(ops, Delete, Insert)
			i++
			j++
			continue
		}

		ops = append(ops, repeatOp(Delete, di)...)
		ops = append(ops, repeatOp(Insert, dj)...)
		i += di
		j += dj
	}

	ops = append(ops, repeatOp(Delete, n-i)...)
	ops = append(ops, repeatOp(Insert, m-j)...)
	return ops
}

// nearestResync searches the naiveW x naiveW window ahead of (i, j) for
// the closest pair (di, dj), di+dj minimal, such that old[i+di] ==
// new[j+dj]. Ties prefer the smallest di (delete before insert, matching
// the tie-break used by the other algorithms in this package).
func nearestResync(old, new []string, i, j int) (di, dj int, found bool) {
	n, m := len(old), len(new)
	bestDist := -1

	maxI := min(naiveW, n-i-1)
	maxJ := min(naiveW, m-j-1)

	for a := 0; a <= maxI; a++ {
		for b := 0; b <= maxJ; b++ {
			if a == 0 && b == 0 {
				continue
			}
			if old[i+a] != new[j+b] {
				continue
			}
			dist := a + b
			if bestDist == -1 || dist < bestDist || (dist == bestDist && a < di) {
				bestDist = dist
				di, dj = a, b
				found = true
			}
		}
	}
	return di, dj, found
}
