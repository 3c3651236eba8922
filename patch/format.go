package patch

import (
	"fmt"
	"io"
	"strings"
)

const noNewlineMarker = `\ No newline at end of file`

// Format writes p in the unified-diff textual form: optional preamble,
// "--- "/"+++ " headers (with a/ and b/ prefixes), then each chunk as an
// "@@ ... @@" header followed by its operation lines.
//
// Grounded on the header/hunk serialization shape in the
// sergi-go-diff-derived patchFormatUnified in the pack (patchMakeUnified
// + String()), adapted from that package's diff-match-patch Patch type to
// patch.Patch/patch.Chunk.
func (p Patch) Format(w io.Writer) error {
	if p.Preamble != "" {
		if _, err := io.WriteString(w, p.Preamble); err != nil {
			return err
		}
		if !strings.HasSuffix(p.Preamble, "\n") {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
	}

	oldHeader := headerPath(p.OldFile, "a/")
	newHeader := headerPath(p.NewFile, "b/")
	if _, err := fmt.Fprintf(w, "--- %s\n+++ %s\n", oldHeader, newHeader); err != nil {
		return err
	}

	for _, c := range p.Chunks {
		if err := c.format(w); err != nil {
			return err
		}
	}
	return nil
}

func headerPath(path, prefix string) string {
	if path == DevNull {
		return DevNull
	}
	return prefix + path
}

func (c Chunk) format(w io.Writer) error {
	osText := c.OldStart + 1
	if c.OldLines == 0 {
		osText = c.OldStart
	}
	nsText := c.NewStart + 1
	if c.NewLines == 0 {
		nsText = c.NewStart
	}

	var hdr strings.Builder
	hdr.WriteString("@@ -")
	hdr.WriteString(fmt.Sprint(osText))
	if c.OldLines != 1 {
		fmt.Fprintf(&hdr, ",%d", c.OldLines)
	}
	hdr.WriteString(" +")
	hdr.WriteString(fmt.Sprint(nsText))
	if c.NewLines != 1 {
		fmt.Fprintf(&hdr, ",%d", c.NewLines)
	}
	hdr.WriteString(" @@\n")
	if _, err := io.WriteString(w, hdr.String()); err != nil {
		return err
	}

	for _, op := range c.Operations {
		var prefix byte
		switch op.Kind {
		case Context:
			prefix = ' '
		case Remove:
			prefix = '-'
		case Add:
			prefix = '+'
		}
		if _, err := fmt.Fprintf(w, "%c%s\n", prefix, op.Line); err != nil {
			return err
		}
		if op.NoNewlineOld || op.NoNewlineNew {
			if _, err := io.WriteString(w, noNewlineMarker+"\n"); err != nil {
				return err
			}
		}
	}
	return nil
}

// Format writes every patch in mp in sequence, each exactly as Patch.Format
// would, with no separator beyond what each patch's own preamble/headers
// provide.
func (mp MultifilePatch) Format(w io.Writer) error {
	for _, p := range mp.Patches {
		if err := p.Format(w); err != nil {
			return err
		}
	}
	return nil
}

// String renders p via Format; parse errors from malformed internal state
// are not possible here since io.Writer into a strings.Builder never
// fails.
func (p Patch) String() string {
	var b strings.Builder
	_ = p.Format(&b)
	return b.String()
}

// String renders mp via Format.
func (mp MultifilePatch) String() string {
	var b strings.Builder
	_ = mp.Format(&b)
	return b.String()
}
