// Package render merges converted posts and the site context into
// html/template pages.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	berrors "github.com/blogbuild/blogbuild/internal/errors"
	"github.com/blogbuild/blogbuild/internal/logfields"
)

// Template identifiers.
const (
	TemplatePost  = "post"
	TemplateIndex = "index"
)

// PartialsDir holds templates parsed alongside every page template.
const PartialsDir = "partials"

// Engine loads page templates from a directory and caches them per identifier.
type Engine struct {
	dir   string
	funcs template.FuncMap

	mu    sync.Mutex
	cache map[string]*template.Template
}

func NewEngine(dir string) *Engine {
	return &Engine{
		dir:   dir,
		funcs: Funcs(),
		cache: make(map[string]*template.Template),
	}
}

// Template returns the parsed template for id (<dir>/<id>.html plus partials).
func (e *Engine) Template(id string) (*template.Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.cache[id]; ok {
		return t, nil
	}

	name := id + ".html"
	t, err := template.New(name).Funcs(e.funcs).ParseFiles(filepath.Join(e.dir, name))
	if err != nil {
		return nil, err
	}

	partials, err := filepath.Glob(filepath.Join(e.dir, PartialsDir, "*.html"))
	if err != nil {
		return nil, err
	}
	if len(partials) > 0 {
		if t, err = t.ParseFiles(partials...); err != nil {
			return nil, err
		}
	}

	e.cache[id] = t
	return t, nil
}

// Render executes template id with data into w.
func (e *Engine) Render(id string, data any, w io.Writer) error {
	t, err := e.Template(id)
	if err != nil {
		return err
	}
	return t.ExecuteTemplate(w, id+".html", data)
}

// RenderToFile renders template id and writes the result to path, creating
// parent directories. Nothing is written when execution fails.
func (e *Engine) RenderToFile(id string, data any, path string) error {
	var buf bytes.Buffer
	if err := e.Render(id, data, &buf); err != nil {
		return berrors.RenderFailed(id, path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return berrors.FileSystem("mkdir", filepath.Dir(path), err)
	}
	// #nosec G306 -- published pages are world-readable
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return berrors.FileSystem("write", path, err)
	}

	slog.Debug("Rendered page", logfields.Template(id), logfields.Path(path), slog.Int("bytes", buf.Len()))
	return nil
}

// PostData is the data passed to the post template: the site context with the
// post's fields under "post".
func PostData(site map[string]any, post map[string]any) map[string]any {
	data := make(map[string]any, len(site)+1)
	maps.Copy(data, site)
	data["post"] = post
	return data
}

// Funcs returns the helper functions available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"date": formatDate,
		"safeHTML": func(s string) template.HTML {
			// #nosec G203 -- explicit opt-in by the template author
			return template.HTML(s)
		},
	}
}

func formatDate(v any) string {
	switch d := v.(type) {
	case time.Time:
		return d.Format("January 2, 2006")
	case string:
		if t, err := time.Parse(time.DateOnly, d); err == nil {
			return t.Format("January 2, 2006")
		}
		return d
	default:
		return fmt.Sprint(v)
	}
}
