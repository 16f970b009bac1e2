// Package pages renders the HTML pages, modals and fragments of the UI.
// Pages share one layout; each page file defines its "content" block.
package pages

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapexplore/internal/ui/resources"
)

//go:embed templates
var templateFS embed.FS

// DatastarScript is the client runtime loaded by every page.
const DatastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"

// Script is a JS asset. Raw scripts are page specific glue.
type Script struct {
	Path  string
	IsRaw bool
}

// Assets lists the JS and CSS files of a page.
type Assets struct {
	JS  []Script
	CSS []string
}

// PageData is the input of every page.
type PageData struct {
	Title   string
	User    string
	Assets  Assets
	Modals  []string
	Context any

	// ModalsHTML holds the rendered Modals. Filled by the renderer.
	ModalsHTML []template.HTML
}

// Renderer executes the embedded templates.
type Renderer struct {
	base  *template.Template
	pages map[string]*template.Template
}

var titleCaser = cases.Title(language.English)

// TitleCase capitalizes every word of s.
func TitleCase(s string) string {
	return titleCaser.String(s)
}

// Markdown converts markdown to HTML. Invalid input renders as escaped text.
func Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var funcs = template.FuncMap{
	"static":   resources.StaticPath,
	"title":    TitleCase,
	"markdown": Markdown,
	"json":     toJSON,
	"add":      func(a, b int) int { return a + b },
	"join":     strings.Join,
	"datastar": func() string { return DatastarScript },
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	base, err := template.New("").Funcs(funcs).ParseFS(templateFS,
		"templates/layout.html",
		"templates/partials/*.html",
		"templates/modals/*.html",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	pageFiles, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{base: base, pages: make(map[string]*template.Template, len(pageFiles))}
	for _, file := range pageFiles {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		r.pages[file[strings.LastIndex(file, "/")+1:]] = clone
	}
	return r, nil
}

// MustNew is like New but panics on error.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Page renders a full page. Modals are rendered first with the same data.
func (r *Renderer) Page(name string, data PageData) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		tmpl, ok := r.pages[name]
		if !ok {
			return fmt.Errorf("page %s does not exist", name)
		}

		data.ModalsHTML = make([]template.HTML, 0, len(data.Modals))
		for _, modal := range data.Modals {
			var buf bytes.Buffer
			if err := tmpl.ExecuteTemplate(&buf, modal, data); err != nil {
				return fmt.Errorf("failed to render modal %s: %w", modal, err)
			}
			data.ModalsHTML = append(data.ModalsHTML, template.HTML(buf.String()))
		}

		return tmpl.ExecuteTemplate(w, "layout", data)
	})
}

// Fragment renders a partial template.
func (r *Renderer) Fragment(name string, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return r.base.ExecuteTemplate(w, name, data)
	})
}

// HTML renders a component to a string for embedding in a template.
func HTML(ctx context.Context, c templ.Component) (template.HTML, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
