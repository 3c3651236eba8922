package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applyRuns(old, new []string, runs []Run) (rebuiltOld, rebuiltNew []string) {
	for _, r := range runs {
		switch r.Kind {
		case Equal:
			rebuiltOld = append(rebuiltOld, old[r.OldStart:r.OldStart+r.OldLen]...)
			rebuiltNew = append(rebuiltNew, new[r.NewStart:r.NewStart+r.NewLen]...)
		case Delete:
			rebuiltOld = append(rebuiltOld, old[r.OldStart:r.OldStart+r.OldLen]...)
		case Insert:
			rebuiltNew = append(rebuiltNew, new[r.NewStart:r.NewStart+r.NewLen]...)
		}
	}
	return
}

func TestAlgorithmsRoundTrip(t *testing.T) {
	tt := []struct {
		name string
		old  []string
		new  []string
	}{
		{"identical", []string{"a", "b", "c"}, []string{"a", "b", "c"}},
		{"empty-old", nil, []string{"a", "b"}},
		{"empty-new", []string{"a", "b"}, nil},
		{"both-empty", nil, nil},
		{"append", []string{"a", "b"}, []string{"a", "b", "c"}},
		{"prepend", []string{"a", "b"}, []string{"z", "a", "b"}},
		{"middle-insert", []string{"a", "b", "c"}, []string{"a", "x", "y", "b", "c"}},
		{"middle-delete", []string{"a", "x", "y", "b", "c"}, []string{"a", "b", "c"}},
		{"replace-all", []string{"a", "b", "c"}, []string{"x", "y", "z"}},
		{"repeated-lines", []string{"a", "a", "a", "b"}, []string{"a", "b", "a", "a"}},
		{"reorder", []string{"one", "two", "three"}, []string{"three", "one", "two"}},
	}

	algos := []Algorithm{Myers, XDiff, Naive, Similar}

	for _, tc := range tt {
		for _, algo := range algos {
			t.Run(tc.name, func(t *testing.T) {
				runs := Lines(tc.old, tc.new, algo)
				rOld, rNew := applyRuns(tc.old, tc.new, runs)
				assert.Equal(t, tc.old, rOld)
				assert.Equal(t, tc.new, rNew)
			})
		}
	}
}

func TestLinesIdenticalProducesOnlyEqualRuns(t *testing.T) {
	lines := []string{"a", "b", "c"}
	for _, algo := range []Algorithm{Myers, XDiff, Naive, Similar} {
		runs := Lines(lines, lines, algo)
		for _, r := range runs {
			require.Equal(t, Equal, r.Kind)
		}
	}
}

func TestSplitJoinLines(t *testing.T) {
	tt := []struct {
		in              string
		wantLines       []string
		wantNewlineEnds bool
	}{
		{"", nil, false},
		{"a\n", []string{"a"}, true},
		{"a", []string{"a"}, false},
		{"a\nb\n", []string{"a", "b"}, true},
		{"a\nb", []string{"a", "b"}, false},
	}
	for _, tc := range tt {
		lines, ends := SplitLines(tc.in)
		assert.Equal(t, tc.wantLines, lines)
		assert.Equal(t, tc.wantNewlineEnds, ends)
		assert.Equal(t, tc.in, JoinLines(lines, ends))
	}
}
