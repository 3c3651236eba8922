package patch

import (
	"io"
	"strings"
)

// ParseMultifile parses a concatenation of per-file unified-diff patches.
// Segmentation is implicit: parsePatch already consumes a file's
// preamble (including any "diff --git " line), its "--- "/"+++ "
// headers, and its chunks, then hands the next segment's leading line
// back to the scanner — so a multi-file bundle is just repeated calls to
// the single-file parser.
//
// A malformed segment does not abort the bundle: ParseMultifile skips
// forward to the next segment boundary (a line starting with
// "diff --git " or "--- ") and records the error, continuing to parse
// whatever segments remain.
//
// Grounded on the segment-independent recovery behavior described for
// the multi-file parser, and on the pushback-reader segmentation
// technique in creachadair-mds's mdiff reader.
func ParseMultifile(r io.Reader) (MultifilePatch, []error) {
	ls := newLineScanner(r)
	var mp MultifilePatch
	var errs []error

	for {
		// Stop at end of input; any other line, blank or not, is handed
		// back and starts the next segment (blank lines end up in that
		// segment's preamble).
		line, ok := ls.next()
		if !ok {
			return mp, errs
		}
		ls.unget(line)

		p, err := parsePatch(ls)
		if err != nil {
			errs = append(errs, err)
			if !resyncToNextSegment(ls) {
				return mp, errs
			}
			continue
		}
		mp.Patches = append(mp.Patches, p)
	}
}

// resyncToNextSegment discards lines until one starting with
// "diff --git " or "--- " is found (left for the next parsePatch call
// via unget), or EOF is reached. Returns false on EOF.
func resyncToNextSegment(ls *lineScanner) bool {
	for {
		line, ok := ls.next()
		if !ok {
			return false
		}
		if strings.HasPrefix(line, "diff --git ") || strings.HasPrefix(line, "--- ") {
			ls.unget(line)
			return true
		}
	}
}
