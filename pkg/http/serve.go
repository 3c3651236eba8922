package http

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/thehowl/patchkit/diff"
	"github.com/thehowl/patchkit/patch"
	"github.com/thehowl/patchkit/pkg/storage"
	"github.com/thehowl/patchkit/templates"
)

func (s *Server) serveDiff(w http.ResponseWriter, r *http.Request) error {
	// parse filename
	id := chi.URLParam(r, "id")
	wantRaw := false
	if strings.HasSuffix(id, ".diff") {
		id = id[:len(id)-len(".diff")]
		wantRaw = true
	} else if !isBrowser(r) {
		wantRaw = true
	}

	files, err := s.getFiles(r.Context(), id)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		w.Write([]byte("not found"))
		w.WriteHeader(404)
		return nil
	}

	qry := r.URL.Query()
	space := qry.Get("w")
	var normal func(s string) string
	switch space {
	case "w": // --ignore-all-space
		normal = ignoreAllSpace
	case "b": // --ignore-space-change
		normal = ignoreSpaceChange
	default:
		space = ""
	}
	contextLines, err := strconv.Atoi(qry.Get("c"))
	if err != nil {
		contextLines = 3
	} else {
		contextLines = max(0, min(1000, contextLines))
	}

	p := buildPatch(files[0].Name, files[0].Content, files[1].Name, files[1].Content, normal, contextLines)

	if wantRaw {
		w.Header().Set(ctHeader, ctPlain)
		p.Format(w)
		return nil
	}
	return templates.Templates.ExecuteTemplate(w, "file.tmpl", &templates.FileTemplateData{
		ID:      id,
		Patch:   p,
		Space:   space,
		Context: contextLines,
		Split:   qry.Has("split"),
		Query:   r.URL.Query(),
	})
}

// buildPatch computes the line diff between old and new, with an
// optional per-line normalization applied only for the purposes of
// comparison (the displayed lines remain unnormalized), and folds it
// into a Patch with context lines of context.
func buildPatch(oldName, old, newName, new string, normal func(s string) string, context int) patch.Patch {
	oldLines, oldEOL := diff.SplitLines(old)
	newLines, newEOL := diff.SplitLines(new)

	cmpOld, cmpNew := oldLines, newLines
	if normal != nil {
		cmpOld = normalizeAll(oldLines, normal)
		cmpNew = normalizeAll(newLines, normal)
	}

	runs := diff.Lines(cmpOld, cmpNew, diff.XDiff)
	chunks := patch.Build(oldLines, newLines, oldEOL, newEOL, runs, context)
	return patch.Patch{OldFile: oldName, NewFile: newName, Chunks: chunks}
}

func normalizeAll(lines []string, normal func(s string) string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = normal(l)
	}
	return out
}

func (s *Server) getFiles(ctx context.Context, id string) ([]diffFile, error) {
	if id == "example" {
		return exampleFiles, nil
	}

	// determine whether file exists
	f, err := s.DB.GetSession(id)
	if err != nil {
		return nil, err
	}
	if f.IsZero() {
		return nil, nil
	}

	// get from storage
	data, err := s.Storage.GetBundle(ctx, storage.BundleID(id))
	if err != nil {
		return nil, err
	}

	// decode
	files, err := tgzReadFiles(data)
	if err != nil {
		return nil, err
	}
	if len(files) != 2 {
		return nil, fmt.Errorf("expected 2 files got %d", len(files))
	}

	return files, nil
}

func ignoreAllSpace(s string) string {
	s = strings.TrimSpace(s)
	dst := make([]rune, 0, len(s))
	for _, rn := range s {
		if !isSpaceNotNewline(rn) {
			dst = append(dst, rn)
		}
	}
	return string(dst)
}

func ignoreSpaceChange(s string) string {
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	flds := strings.FieldsFunc("\n"+s, isSpaceNotNewline)
	joined := strings.Join(flds, " ")
	firstRune, _ := utf8.DecodeRuneInString(s)
	if unicode.IsSpace(firstRune) {
		joined = " " + joined
	}
	return joined
}

func isSpaceNotNewline(r rune) bool {
	return unicode.IsSpace(r) && r != '\n'
}

var exampleFiles = []diffFile{
	{
		Name: "main.go",
		Content: `package main

import "fmt"

func sayHello(to string) string {
	return "hello " + to + "!"
}

func main() {
	fmt.Println(sayHello("world"))
}
`,
	},
	{
		Name: "server.go",
		Content: `package main

import (
	"fmt"
	"net/http"
	"os"
)

// sayHello greets whoever is passed in as an argument.
func sayHello(to string) string {
	return "hello " + to + "!"
}

func main() {
	if os.Getenv("DEBUG") == "1" {
		fmt.Println(sayHello("world"))
	}
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sayHello("internet")))
	})
	panic(http.ListenAndServe(":8080", nil))
}
`,
	},
}

type diffFile struct {
	Name    string
	Content string
}

func tgzReadFiles(data []byte) ([]diffFile, error) {
	gzrd, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var files []diffFile
	rd := tar.NewReader(gzrd)
	for {
		f, err := rd.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}

		data, err := io.ReadAll(rd)
		if err != nil {
			return nil, err
		}
		files = append(files, diffFile{Name: f.Name, Content: string(data)})
	}

	if err := gzrd.Close(); err != nil {
		return nil, err
	}

	return files, nil
}

func (s *Server) serveFile(n int) func(w http.ResponseWriter, r *http.Request) {
	return s.e(func(w http.ResponseWriter, r *http.Request) error {
		return s._serveFile(w, r, n)
	})
}

func (s *Server) _serveFile(w http.ResponseWriter, r *http.Request, idx int) error {
	// parse filename
	id := chi.URLParam(r, "id")

	files, err := s.getFiles(r.Context(), id)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		w.WriteHeader(404)
		w.Write([]byte("not found"))
		return nil
	}

	fn := files[idx]
	w.Header().Set(ctHeader, ctPlain)
	w.Header().Set("Content-Disposition", "inline; filename="+strconv.Quote(fn.Name))
	w.Write([]byte(fn.Content))
	return nil
}
