package bundle

import (
	"errors"
	"os"
	"unicode/utf8"

	"github.com/thehowl/patchkit/apply"
	"github.com/thehowl/patchkit/patch"
)

// Driver applies a MultifilePatch against a Filesystem, one Patch at a
// time, collecting an ApplyResult per file without letting one file's
// failure abort the rest.
//
// Grounded on the teacher's upload/archive flow (storage.go,
// pkg/http/upload.go), generalized from "store a pair of files" to
// "apply a bundle of patches to a tree of files", and on the EncodingError
// / FileNotFound handling sketched for C6.
type Driver struct {
	FS Filesystem
	// Strategy selects Strict or Fuzzy application. The zero value is
	// apply.Fuzzy, the package-wide default, but §4.6 calls for Strict
	// application in the multi-file driver specifically — construct a
	// Driver via NewDriver to get that default, or set Strategy
	// explicitly.
	Strategy apply.Strategy
}

// NewDriver returns a Driver defaulting to strict application, per §4.6.
func NewDriver(fs Filesystem) *Driver {
	return &Driver{FS: fs, Strategy: apply.Strict}
}

// Apply applies every patch in mp in order and returns one ApplyResult
// per patch.
func (d *Driver) Apply(mp patch.MultifilePatch, dir apply.Direction) []patch.ApplyResult {
	results := make([]patch.ApplyResult, 0, len(mp.Patches))
	for _, p := range mp.Patches {
		results = append(results, d.applyOne(p, dir))
	}
	return results
}

func (d *Driver) applyOne(p patch.Patch, dir apply.Direction) patch.ApplyResult {
	sourcePath, targetPath := resolvePaths(p, dir)

	var content []byte
	if sourcePath != patch.DevNull {
		b, err := d.FS.ReadFile(sourcePath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				if targetPath == patch.DevNull {
					// This patch's net effect, in this direction, is a
					// deletion, and the file is already gone.
					return patch.ApplyResult{Kind: patch.Skipped, Path: sourcePath, Reason: "already absent"}
				}
				return patch.ApplyResult{Kind: patch.Failed, Path: sourcePath, Err: errFileNotFound{sourcePath}}
			}
			return patch.ApplyResult{Kind: patch.Failed, Path: sourcePath, Err: err}
		}
		if !utf8.Valid(b) {
			return patch.ApplyResult{Kind: patch.Failed, Path: sourcePath, Err: errEncoding{sourcePath}}
		}
		content = b
	}

	result, err := apply.Apply(content, p, d.Strategy, dir)
	if err != nil {
		return patch.ApplyResult{Kind: patch.Failed, Path: targetPath, Err: err}
	}

	if targetPath == patch.DevNull {
		if err := d.FS.Remove(sourcePath); err != nil {
			return patch.ApplyResult{Kind: patch.Failed, Path: sourcePath, Err: err}
		}
		return patch.ApplyResult{Kind: patch.DeletedResult, Path: sourcePath}
	}

	if err := d.FS.WriteFile(targetPath, result); err != nil {
		return patch.ApplyResult{Kind: patch.Failed, Path: targetPath, Err: err}
	}
	return patch.ApplyResult{
		Kind:    patch.Applied,
		Path:    targetPath,
		Content: result,
		IsNew:   sourcePath == patch.DevNull,
	}
}

// resolvePaths applies §4.6 step 1: forward uses OldFile as source and
// NewFile as target; reverse swaps them.
func resolvePaths(p patch.Patch, dir apply.Direction) (source, target string) {
	if dir == apply.Forward {
		return p.OldFile, p.NewFile
	}
	return p.NewFile, p.OldFile
}

type errFileNotFound struct{ path string }

func (e errFileNotFound) Error() string { return "file not found: " + e.path }

type errEncoding struct{ path string }

func (e errEncoding) Error() string { return "file is not valid UTF-8: " + e.path }
