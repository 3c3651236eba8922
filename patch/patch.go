// Package patch defines the unified-diff value types (Operation, Chunk,
// Patch, MultifilePatch), folds a raw diff.Run edit script into chunks
// with context, and serializes/parses the textual unified-diff form.
package patch

// OpKind identifies the role a single Operation line plays within a
// Chunk.
type OpKind int

const (
	// Context is a line unchanged between OLD and NEW, included only to
	// locate the surrounding change.
	Context OpKind = iota
	// Remove is a line present in OLD and absent from NEW.
	Remove
	// Add is a line present in NEW and absent from OLD.
	Add
)

// Operation is one line of a Chunk's body.
type Operation struct {
	Kind OpKind
	Line string

	// NoNewlineOld, when true, records that this operation's line is the
	// final line of OLD and OLD does not end with a trailing newline.
	// Only meaningful on Context and Remove operations.
	NoNewlineOld bool
	// NoNewlineNew mirrors NoNewlineOld for NEW; only meaningful on
	// Context and Add operations.
	NoNewlineNew bool
}

// Symbol returns the leading unified-diff character for o's kind: ' '
// for Context, '-' for Remove, '+' for Add.
func (o Operation) Symbol() byte {
	switch o.Kind {
	case Remove:
		return '-'
	case Add:
		return '+'
	default:
		return ' '
	}
}

// Chunk is a contiguous edit region with surrounding context. OldStart
// and NewStart are 0-based indices into OLD/NEW; OldLines and NewLines
// count how many OLD/NEW lines the chunk spans (Context+Remove and
// Context+Add respectively).
type Chunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int

	Operations []Operation
}

// DevNull is the sentinel path denoting "no such file" on either side of
// a Patch header.
const DevNull = "/dev/null"

// Patch describes the changes to one logical file.
type Patch struct {
	// Preamble holds any free-text header lines (e.g. "diff --git …",
	// "index …") preceding the ---/+++ headers, preserved verbatim.
	Preamble string

	OldFile string
	NewFile string

	Chunks []Chunk
}

// IsCreation reports whether this patch creates NewFile from nothing
// (OldFile is DevNull).
func (p Patch) IsCreation() bool { return p.OldFile == DevNull }

// IsDeletion reports whether this patch deletes OldFile (NewFile is
// DevNull).
func (p Patch) IsDeletion() bool { return p.NewFile == DevNull }

// MultifilePatch is an ordered sequence of per-file patches, in the order
// they appeared in the source text. There are no cross-file dependencies.
type MultifilePatch struct {
	Patches []Patch
}

// ApplyResultKind discriminates the variants of ApplyResult.
type ApplyResultKind int

const (
	Applied ApplyResultKind = iota
	DeletedResult
	Skipped
	Failed
)

// ApplyResult is the outcome of applying one Patch within a
// MultifilePatch to the filesystem.
type ApplyResult struct {
	Kind ApplyResultKind

	Path      string
	Content   []byte
	IsNew     bool
	IsDeleted bool

	Reason string // set when Kind == Skipped
	Err    error  // set when Kind == Failed
}
