package apply

import (
	"strings"

	"github.com/thehowl/patchkit/diff"
	"github.com/thehowl/patchkit/patch"
)

// Strategy selects how a chunk's anchor is located in the source buffer.
type Strategy int

const (
	// Fuzzy searches a window around the expected anchor and scores
	// candidates by similarity; the default.
	Fuzzy Strategy = iota
	// Strict requires the actual anchor to equal the expected anchor
	// exactly.
	Strict
)

// Direction selects which side of the patch is reconstructed.
type Direction int

const (
	// Forward reconstructs NEW from OLD.
	Forward Direction = iota
	// Reverse reconstructs OLD from NEW.
	Reverse
)

// role describes how one operation participates in the generic chunk
// walk, independent of whether it came from a Context/Remove/Add
// operation: whether it consumes a line from the source buffer (and
// must be verified against it), and whether it contributes a line to the
// output.
type role struct {
	Line        string
	Consuming   bool
	Producing   bool
	NoNewlineAt bool // true if this op marks the source's terminal line as missing its newline
	OutNoNL     bool // true if this op marks the output's terminal line as missing its newline
}

// chunkView normalizes a Chunk's Operations for the given Direction: in
// Reverse mode Remove and Add swap roles (the patch's NEW side becomes
// the source, its OLD side the output), matching §4.5's "conceptually
// swap Add<->Remove" rule.
func chunkView(c patch.Chunk, dir Direction) (anchor, length int, ops []role) {
	if dir == Forward {
		anchor, length = c.OldStart, c.OldLines
	} else {
		anchor, length = c.NewStart, c.NewLines
	}

	ops = make([]role, len(c.Operations))
	for i, op := range c.Operations {
		r := role{Line: op.Line}
		switch op.Kind {
		case patch.Context:
			r.Consuming, r.Producing = true, true
			r.NoNewlineAt = op.NoNewlineOld
			r.OutNoNL = op.NoNewlineNew
			if dir == Reverse {
				r.NoNewlineAt, r.OutNoNL = op.NoNewlineNew, op.NoNewlineOld
			}
		case patch.Remove:
			if dir == Forward {
				r.Consuming = true
				r.NoNewlineAt = op.NoNewlineOld
			} else {
				r.Producing = true
				r.OutNoNL = op.NoNewlineOld
			}
		case patch.Add:
			if dir == Forward {
				r.Producing = true
				r.OutNoNL = op.NoNewlineNew
			} else {
				r.Consuming = true
				r.NoNewlineAt = op.NoNewlineNew
			}
		}
		ops[i] = r
	}
	return anchor, length, ops
}

// Apply applies p to src using strategy and dir, returning the
// reconstructed buffer.
//
// Grounded on the shared chunk-walk framework (§4.5 in the governing
// design), with the strict walk grounded on applyDiff in the
// google-go-patchutils-derived file in the pack and the fuzzy window
// search grounded on the half-match/bisect-adjacent scoring machinery in
// the kalafut-lightpatch-derived diff-match-patch file.
func Apply(src []byte, p patch.Patch, strategy Strategy, dir Direction) ([]byte, error) {
	lines, srcEndsWithNewline := diff.SplitLines(string(src))

	var out []string
	i := 0
	outNoNewline := false
	sawOutMarker := false

	for ci, c := range p.Chunks {
		anchor, length, ops := chunkView(c, dir)

		a, err := locateAnchor(lines, i, anchor, length, ops, ci, strategy)
		if err != nil {
			return nil, err
		}

		out = append(out, lines[i:a]...)

		for _, r := range ops {
			if r.Consuming {
				if r.Producing {
					out = append(out, lines[a])
				}
				if r.OutNoNL {
					sawOutMarker, outNoNewline = true, true
				}
				a++
			} else if r.Producing {
				out = append(out, r.Line)
				if r.OutNoNL {
					sawOutMarker, outNoNewline = true, true
				}
			}
		}
		i = a
	}
	tail := lines[i:]
	out = append(out, tail...)

	// The trailing newline state of the reconstructed output is only
	// inherited from the source when the source's own untouched tail
	// supplies the final line (it is copied through verbatim, newline
	// state included). When the last chunk itself supplies the final
	// line, a no-newline marker on its output side is authoritative; if
	// there is no such marker, the output's final line does end with a
	// newline, regardless of what the source's final line did.
	var endsWithNewline bool
	switch {
	case len(tail) > 0:
		endsWithNewline = srcEndsWithNewline
	case sawOutMarker:
		endsWithNewline = !outNoNewline
	default:
		endsWithNewline = true
	}
	return []byte(diff.JoinLines(out, endsWithNewline)), nil
}

func locateAnchor(lines []string, i, expected, length int, ops []role, chunkIndex int, strategy Strategy) (int, error) {
	switch strategy {
	case Strict:
		return locateStrict(lines, i, expected, length, ops, chunkIndex)
	default:
		return locateFuzzy(lines, i, expected, length, ops, chunkIndex)
	}
}

// linesEqual compares two lines by raw content, per the byte-equality
// comparison rule for line matching (similarity scoring, not equality,
// is the only place Unicode-scalar comparison applies).
func linesEqual(a, b string) bool { return a == b }

func normalizeWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
