// Package view loads the HTML templates and adapts them to Echo's
// Renderer interface. Every template file defines its page under an
// explicit name ({{define "courses/detail"}} ...) so handlers render by
// route-shaped names regardless of file layout.
package view

import (
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
)

// Templates holds the parsed template set.
type Templates struct {
	t *template.Template
}

var funcs = template.FuncMap{
	"fmtTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	},
	"fmtGrade": func(g float64) string {
		return fmt.Sprintf("%.1f", g)
	},
}

// New parses every .html file under dir, one level of subdirectories
// included.
func New(dir string) (*Templates, error) {
	t := template.New("").Funcs(funcs)
	for _, pattern := range []string{"*.html", "*/*.html"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			continue
		}
		if t, err = t.ParseFiles(matches...); err != nil {
			return nil, fmt.Errorf("parsing templates: %w", err)
		}
	}
	if t.Lookup("header") == nil || t.Lookup("footer") == nil {
		return nil, fmt.Errorf("layout partials not found under %s", dir)
	}
	return &Templates{t: t}, nil
}

// Render implements echo.Renderer.
func (r *Templates) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.t.ExecuteTemplate(w, name, data)
}
