// Package diff implements the line-splitting model and the four
// line-oriented diff algorithms (Myers, XDiff, Naive, Similar) that the
// rest of patchkit builds chunks and patches on top of.
package diff

import "strings"

// SplitLines splits s into its constituent lines, each without its
// trailing newline, and reports whether s ends with a newline.
//
// A trailing newline is never represented as an empty trailing line: both
// "a\nb\n" and "a\nb" split into []string{"a", "b"}, distinguished only by
// the returned bool.
func SplitLines(s string) (lines []string, endsWithNewline bool) {
	if s == "" {
		return nil, false
	}
	endsWithNewline = strings.HasSuffix(s, "\n")
	trimmed := s
	if endsWithNewline {
		trimmed = s[:len(s)-1]
	}
	return strings.Split(trimmed, "\n"), endsWithNewline
}

// JoinLines is the inverse of SplitLines.
func JoinLines(lines []string, endsWithNewline bool) string {
	if len(lines) == 0 {
		return ""
	}
	s := strings.Join(lines, "\n")
	if endsWithNewline {
		s += "\n"
	}
	return s
}
