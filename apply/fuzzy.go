package apply

const (
	fuzzyWindow             = 50
	fuzzyLevenshteinAccept  = 0.75
	fuzzyAggregateThreshold = 0.6
)

// locateFuzzy searches a +/-fuzzyWindow window around expected (bounded
// to [i, len(lines)]) for the anchor whose consuming operations best
// match the source lines there, using exact / whitespace-normalized /
// Levenshtein-similarity scoring. If no candidate clears the aggregate
// threshold using every consuming operation, a fallback pass considers
// only the chunk's genuine Context lines (ignoring the consuming
// operations that originated from Remove); if that also fails,
// CannotLocateChunk is returned. A chunk that consumes no source lines
// has nothing to score and is placed exactly as locateStrict places it.
//
// Grounded on the half-match / bisect-adjacent scoring machinery in the
// kalafut-lightpatch-derived diff-match-patch file in the pack, adapted
// from rune-level text matching to line-level window search.
func locateFuzzy(lines []string, i, expected, length int, ops []role, chunkIndex int) (int, error) {
	if length == 0 {
		return locateStrict(lines, i, expected, length, ops, chunkIndex)
	}
	best, bestScore, found := searchWindow(lines, i, expected, length, ops, consumingFilter)
	if found && bestScore >= fuzzyAggregateThreshold {
		return best, nil
	}

	fallbackBest, fallbackScore, fallbackFound := searchWindow(lines, i, expected, length, ops, contextOnlyFilter)
	if fallbackFound && fallbackScore >= fuzzyAggregateThreshold {
		return fallbackBest, nil
	}

	reportScore := bestScore
	if fallbackFound && fallbackScore > reportScore {
		reportScore = fallbackScore
	}
	return 0, &ApplyError{
		Kind:       CannotLocateChunk,
		ChunkIndex: chunkIndex,
		Expected:   expected,
		SourceLine: -1,
		ChunkLine:  -1,
		Score:      reportScore,
		Msg:        "no window candidate reached the similarity threshold",
	}
}

func consumingFilter(r role) bool  { return r.Consuming }
func contextOnlyFilter(r role) bool { return r.Consuming && r.Producing }

// searchWindow scores every candidate anchor in [max(i,expected-W),
// min(len(lines), expected+W)] (further bounded so the chunk fits) using
// only the operations filter accepts, and returns the best one.
func searchWindow(lines []string, i, expected, length int, ops []role, filter func(role) bool) (best int, bestScore float64, found bool) {
	lo := max(i, expected-fuzzyWindow)
	hi := min(len(lines)-length, expected+fuzzyWindow)
	bestDist := -1

	for a := lo; a <= hi; a++ {
		score, ok := scoreCandidate(lines, a, ops, filter)
		if !ok {
			continue
		}
		dist := a - expected
		if dist < 0 {
			dist = -dist
		}
		better := !found ||
			score > bestScore ||
			(score == bestScore && dist < bestDist) ||
			(score == bestScore && dist == bestDist && a < best)
		if better {
			best, bestScore, bestDist, found = a, score, dist, true
		}
	}
	return best, bestScore, found
}

// scoreCandidate walks ops starting at source index a, scoring each
// operation filter accepts, and returns the mean score. ok is false if a
// is out of bounds for the chunk's consuming span.
func scoreCandidate(lines []string, a int, ops []role, filter func(role) bool) (float64, bool) {
	cursor := a
	var total float64
	var n int
	for _, r := range ops {
		if !r.Consuming {
			continue
		}
		if cursor >= len(lines) {
			return 0, false
		}
		if filter(r) {
			total += lineScore(lines[cursor], r.Line)
			n++
		}
		cursor++
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}

// lineScore scores how well source matches want, per the exact /
// whitespace-normalized / Levenshtein-similarity ladder.
func lineScore(source, want string) float64 {
	if source == want {
		return 1.0
	}
	if normalizeWhitespace(source) == normalizeWhitespace(want) {
		return 0.95
	}
	sim := levenshteinSimilarity(source, want)
	if sim >= fuzzyLevenshteinAccept {
		return sim
	}
	return 0
}

// levenshteinSimilarity computes 1 - edit_distance/max(len(a),len(b))
// over Unicode scalar values (runes), per the Unicode-scalar similarity
// scoring rule.
func levenshteinSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshteinDistance(ra, rb)
	return 1 - float64(dist)/float64(maxLen)
}

func levenshteinDistance(a, b []rune) int {
	n, m := len(a), len(b)
	prev := make([]int, m+1)
	cur := make([]int, m+1)
	for j := 0; j <= m; j++ {
		prev[j] = j
	}
	for i := 1; i <= n; i++ {
		cur[0] = i
		for j := 1; j <= m; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			cur[j] = min(del, min(ins, sub))
		}
		prev, cur = cur, prev
	}
	return prev[m]
}
