package templates

import (
	"embed"
	"fmt"
	"html"
	"html/template"
	"maps"
	"net/url"
	"strconv"
	"strings"

	"github.com/thehowl/patchkit/patch"
)

var (
	funcMap = map[string]any{
		"hunk_header": func(c patch.Chunk) string {
			return fmt.Sprintf("@@ -%d,%d +%d,%d @@", c.OldStart+1, c.OldLines, c.NewStart+1, c.NewLines)
		},
		"op_symbol": func(o patch.Operation) string {
			return string(o.Symbol())
		},
	}
	Templates = template.Must(
		template.New("").
			Funcs(funcMap).
			ParseFS(templateFS, "*.tmpl"),
	)
	//go:embed *.tmpl
	templateFS embed.FS
)

// FileTemplateData is passed to file.tmpl to render a single bundle's
// patch, with the context and whitespace controls threaded through the
// query string. Split records the "split" query flag; file.tmpl renders
// the unified view only.
type FileTemplateData struct {
	ID      string
	Patch   patch.Patch
	Space   string
	Context int
	Split   bool
	Query   url.Values
}

func (f *FileTemplateData) WithQueryValue(key, value string) string {
	uvCopy := make(url.Values)
	maps.Copy(uvCopy, f.Query)
	if value == "" {
		uvCopy.Del(key)
	} else {
		uvCopy.Set(key, value)
	}
	if len(uvCopy) == 0 {
		return ""
	}
	return "?" + uvCopy.Encode()
}

func (f *FileTemplateData) ContextLinks() template.HTML {
	const (
		minVal = 0
		maxVal = 1000
	)
	smallest := f.Context - 3
	greatest := f.Context + 3
	if smallest < minVal {
		greatest += (minVal - smallest)
		smallest = minVal
	}
	if greatest > maxVal {
		smallest -= (greatest - maxVal)
		greatest = maxVal
	}
	var bld strings.Builder

	for i := smallest; i <= greatest; i++ {
		if bld.Len() != 0 {
			bld.WriteString(" | ")
		}
		if i == f.Context {
			bld.WriteString("<b>" + strconv.Itoa(f.Context) + "</b>")
			continue
		}
		intString := strconv.Itoa(i)
		if intString == "3" {
			intString = ""
		}
		uri := "/" + f.ID + f.WithQueryValue("c", intString)
		bld.WriteString(
			`<a href="` + html.EscapeString(uri) + `">` +
				strconv.Itoa(i) + `</a>`,
		)
	}
	return template.HTML(bld.String())
}
