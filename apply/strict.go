package apply

// locateStrict requires the actual anchor to equal the expected anchor
// exactly and verifies every consuming operation of the chunk against
// the source lines at that anchor, line by line.
//
// Grounded on the strict forward walk in applyDiff from the
// google-go-patchutils-derived file in the pack.
func locateStrict(lines []string, i, expected, length int, ops []role, chunkIndex int) (int, error) {
	a := expected
	if a < i {
		a = i
	}
	if a+length > len(lines) {
		return 0, &ApplyError{
			Kind:       ChunkOutOfBounds,
			ChunkIndex: chunkIndex,
			Expected:   expected,
			SourceLine: len(lines),
			ChunkLine:  -1,
			Msg:        "chunk would read past end of source",
		}
	}

	cursor := a
	for opIdx, r := range ops {
		if !r.Consuming {
			continue
		}
		if !linesEqual(lines[cursor], r.Line) {
			return 0, &ApplyError{
				Kind:       ContextMismatch,
				ChunkIndex: chunkIndex,
				Expected:   expected,
				SourceLine: cursor,
				ChunkLine:  opIdx,
				Msg:        "source line does not match chunk's context/remove line",
			}
		}
		cursor++
	}
	return a, nil
}
