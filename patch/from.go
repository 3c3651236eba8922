package patch

import "github.com/thehowl/patchkit/diff"

// FromBuffers computes the diff between old and new using algo, folds it
// into Chunks with the given context, and returns the resulting Patch.
// oldFile/newFile become the patch's headers verbatim (callers pass
// patch.DevNull for creation/deletion).
func FromBuffers(oldFile, newFile, old, new string, algo diff.Algorithm, context int) Patch {
	oldLines, oldEnds := diff.SplitLines(old)
	newLines, newEnds := diff.SplitLines(new)
	runs := diff.Lines(oldLines, newLines, algo)
	chunks := Build(oldLines, newLines, oldEnds, newEnds, runs, context)
	return Patch{
		OldFile: oldFile,
		NewFile: newFile,
		Chunks:  chunks,
	}
}
