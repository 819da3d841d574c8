package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"

	"github.com/okian/coach/internal/domain/analysis"
)

//go:embed templates/*.html
var templateFS embed.FS

// Sections that can be rendered on their own.
var Sections = []string{"metrics", "platforms", "analysis", "weaknesses", "agents", "tasks"}

// ErrUnknownSection is returned for a fragment name outside Sections.
var ErrUnknownSection = errors.New("unknown section")

// PageData feeds the full page template.
type PageData struct {
	Input analysis.FormInput
	Error string
	View  *View
}

// Renderer renders views with html/template, which escapes every
// interpolated value for its context.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("coach").Funcs(template.FuncMap{
		"noAnalysis":   func() string { return NoAnalysis },
		"noPlatforms":  func() string { return NoPlatforms },
		"noWeaknesses": func() string { return NoWeaknesses },
		"noTasks":      func() string { return NoTasks },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// MustNew is New for package initialization; it panics on a template error.
func MustNew() *Renderer {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

// Page renders the whole document: form, optional error banner, optional results.
func (r *Renderer) Page(w io.Writer, data PageData) error {
	return r.execute(w, "page", data)
}

// Fragment renders one section of v.
func (r *Renderer) Fragment(w io.Writer, section string, v *View) error {
	if !knownSection(section) {
		return fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
	return r.execute(w, section, v)
}

// Fragments renders every section of v keyed by section name.
func (r *Renderer) Fragments(v *View) (map[string]string, error) {
	out := make(map[string]string, len(Sections))
	var buf bytes.Buffer
	for _, s := range Sections {
		buf.Reset()
		if err := r.Fragment(&buf, s, v); err != nil {
			return nil, err
		}
		out[s] = buf.String()
	}
	return out, nil
}

// execute renders into a buffer first so a template error never leaves a
// half-written response.
func (r *Renderer) execute(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func knownSection(name string) bool {
	for _, s := range Sections {
		if s == name {
			return true
		}
	}
	return false
}
