package bundle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thehowl/patchkit/apply"
	"github.com/thehowl/patchkit/diff"
	"github.com/thehowl/patchkit/patch"
)

func TestDriverAppliesCreatesAndDeletes(t *testing.T) {
	fs := NewMemFilesystem()
	fs.Files["a.txt"] = []byte("line1\nline2\n")

	modify := patch.FromBuffers("a.txt", "a.txt", "line1\nline2\n", "line1\nchanged\n", diff.Myers, 3)
	creation := patch.FromBuffers(patch.DevNull, "new.txt", "", "hello\n", diff.Myers, 3)
	deletion := patch.FromBuffers("gone.txt", patch.DevNull, "bye\n", "", diff.Myers, 3)
	fs.Files["gone.txt"] = []byte("bye\n")

	mp := patch.MultifilePatch{Patches: []patch.Patch{modify, creation, deletion}}

	d := NewDriver(fs)
	results := d.Apply(mp, apply.Forward)
	require.Len(t, results, 3)

	assert.Equal(t, patch.Applied, results[0].Kind)
	assert.Equal(t, "line1\nchanged\n", string(fs.Files["a.txt"]))

	assert.Equal(t, patch.Applied, results[1].Kind)
	assert.True(t, results[1].IsNew)
	assert.Equal(t, "hello\n", string(fs.Files["new.txt"]))

	assert.Equal(t, patch.DeletedResult, results[2].Kind)
	_, ok := fs.Files["gone.txt"]
	assert.False(t, ok)
}

func TestDriverMissingSourceFails(t *testing.T) {
	fs := NewMemFilesystem()
	p := patch.FromBuffers("missing.txt", "missing.txt", "a\n", "b\n", diff.Myers, 3)
	d := NewDriver(fs)
	results := d.Apply(patch.MultifilePatch{Patches: []patch.Patch{p}}, apply.Forward)
	require.Len(t, results, 1)
	assert.Equal(t, patch.Failed, results[0].Kind)
}

func TestDriverReverseDeleteAlreadyAbsentIsSkipped(t *testing.T) {
	fs := NewMemFilesystem()
	creation := patch.FromBuffers(patch.DevNull, "new.txt", "", "hello\n", diff.Myers, 3)
	d := NewDriver(fs)
	results := d.Apply(patch.MultifilePatch{Patches: []patch.Patch{creation}}, apply.Reverse)
	require.Len(t, results, 1)
	assert.Equal(t, patch.Skipped, results[0].Kind)
}

func TestDriverOneFailureDoesNotAbortOthers(t *testing.T) {
	fs := NewMemFilesystem()
	fs.Files["ok.txt"] = []byte("a\n")
	ok := patch.FromBuffers("ok.txt", "ok.txt", "a\n", "b\n", diff.Myers, 3)
	bad := patch.FromBuffers("missing.txt", "missing.txt", "a\n", "b\n", diff.Myers, 3)

	d := NewDriver(fs)
	results := d.Apply(patch.MultifilePatch{Patches: []patch.Patch{bad, ok}}, apply.Forward)
	require.Len(t, results, 2)
	assert.Equal(t, patch.Failed, results[0].Kind)
	assert.Equal(t, patch.Applied, results[1].Kind)
}
