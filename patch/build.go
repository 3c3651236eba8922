package patch

import "github.com/thehowl/patchkit/diff"

// Build folds a raw diff.Run edit script into unified-diff Chunks with
// up to `context` lines of surrounding Context on each side, merging
// change regions whose gap is small enough that the context windows
// would otherwise overlap.
//
// Grounded on the context-expansion / merge-on-overlap loop in
// znkr-diff's HunksFunc, adapted from that package's generic
// Edit[T]/Hunk[T] shape to patch.Operation/patch.Chunk and from
// per-element edits to diff.Run spans.
func Build(oldLines, newLines []string, oldEndsWithNewline, newEndsWithNewline bool, runs []diff.Run, context int) []Chunk {
	if context < 0 {
		context = 0
	}
	ops := expandOps(runs)

	var chunks []Chunk
	var hedits []Operation
	s0, t0 := 0, 0
	s, t := 0, 0
	run := 0
	idx := 0

	finishHunk := func() {
		chunks = append(chunks, Chunk{
			OldStart:   s0,
			OldLines:   s - s0,
			NewStart:   t0,
			NewLines:   t - t0,
			Operations: hedits,
		})
		hedits = nil
	}

	for s < len(oldLines) || t < len(newLines) {
		k := ops[idx]
		del, ins := k == Remove, k == Add

		if del || ins {
			run = 0
			if len(hedits) == 0 {
				ns0, nt0 := max(0, s-context), max(0, t-context)
				s1, t1 := ns0, nt0

				if n := len(chunks); n > 0 && chunks[n-1].OldStart+chunks[n-1].OldLines >= ns0 {
					prev := chunks[n-1]
					s1, t1 = prev.OldStart+prev.OldLines, prev.NewStart+prev.NewLines
					ns0, nt0 = prev.OldStart, prev.NewStart
					hedits = prev.Operations
					chunks = chunks[:n-1]
				}
				s0, t0 = ns0, nt0

				for u, v := s1, t1; u < s && v < t; u, v = u+1, v+1 {
					hedits = append(hedits, Operation{Kind: Context, Line: oldLines[u]})
				}
			}
		}

		switch {
		case del:
			hedits = append(hedits, Operation{Kind: Remove, Line: oldLines[s]})
			s++
		case ins:
			hedits = append(hedits, Operation{Kind: Add, Line: newLines[t]})
			t++
		default:
			if len(hedits) > 0 && run >= context {
				finishHunk()
			}
			if len(hedits) > 0 {
				hedits = append(hedits, Operation{Kind: Context, Line: oldLines[s]})
			}
			s++
			t++
			run++
		}
		idx++
	}
	if len(hedits) > 0 {
		finishHunk()
	}

	markNoNewline(chunks, len(oldLines), len(newLines), oldEndsWithNewline, newEndsWithNewline)
	return chunks
}

// expandOps turns a Run sequence into one OpKind per consumed line, in
// edit-script order: Equal consumes one old + one new line (Context),
// Delete consumes one old line (Remove), Insert consumes one new line
// (Add).
func expandOps(runs []diff.Run) []OpKind {
	var ops []OpKind
	for _, r := range runs {
		switch r.Kind {
		case diff.Equal:
			for i := 0; i < r.OldLen; i++ {
				ops = append(ops, Context)
			}
		case diff.Delete:
			for i := 0; i < r.OldLen; i++ {
				ops = append(ops, Remove)
			}
		case diff.Insert:
			for i := 0; i < r.NewLen; i++ {
				ops = append(ops, Add)
			}
		}
	}
	return ops
}

func markNoNewline(chunks []Chunk, oldLen, newLen int, oldEndsWithNewline, newEndsWithNewline bool) {
	if len(chunks) == 0 {
		return
	}
	last := &chunks[len(chunks)-1]

	if !oldEndsWithNewline && last.OldStart+last.OldLines == oldLen && last.OldLines > 0 {
		for i := len(last.Operations) - 1; i >= 0; i-- {
			if last.Operations[i].Kind == Context || last.Operations[i].Kind == Remove {
				last.Operations[i].NoNewlineOld = true
				break
			}
		}
	}
	if !newEndsWithNewline && last.NewStart+last.NewLines == newLen && last.NewLines > 0 {
		for i := len(last.Operations) - 1; i >= 0; i-- {
			if last.Operations[i].Kind == Context || last.Operations[i].Kind == Add {
				last.Operations[i].NoNewlineNew = true
				break
			}
		}
	}
}
