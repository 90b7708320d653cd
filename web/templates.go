// ABOUTME: TemplateEngine loads embedded HTML templates and renders them with Go's html/template.
// ABOUTME: Agent messages are rendered as markdown through goldmark; raw HTML in messages is dropped.
package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/2389-research/tusk/board"
	"github.com/2389-research/tusk/insight"
	"github.com/2389-research/tusk/roster"
	"github.com/2389-research/tusk/store"
	"github.com/yuin/goldmark"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageData holds all data passed to templates for rendering.
type PageData struct {
	Title  string
	View   board.View
	Runs   []store.RunSummary
	Run    *store.RunRecord
	Charts []store.ChartRecord
}

// TemplateEngine loads and renders embedded HTML templates.
type TemplateEngine struct {
	templates map[string]*template.Template
}

var markdown = goldmark.New()

// templateFuncs returns the FuncMap available to all templates.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"lower":       strings.ToLower,
		"markdown":    markdownToHTML,
		"statusClass": statusClass,
		"number":      insight.FormatNumber,
		"stamp":       stamp,
		"json":        jsonString,
		"count":       countStatus,
	}
}

// NewTemplateEngine parses all embedded templates and returns a ready-to-use engine.
// Each page template is parsed together with the layout so that the layout wraps every page.
func NewTemplateEngine() (*TemplateEngine, error) {
	funcs := templateFuncs()
	pages := []string{
		"dashboard.html",
		"runs.html",
		"run.html",
	}

	engine := &TemplateEngine{templates: make(map[string]*template.Template)}
	for _, page := range pages {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(
			templateFS,
			"templates/layout.html",
			"templates/"+page,
		)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		engine.templates[page] = t
	}
	return engine, nil
}

// Render executes the named template with the given data and writes the result
// to w. It sets the Content-Type header to text/html.
func (e *TemplateEngine) Render(w http.ResponseWriter, name string, data any) error {
	var buf bytes.Buffer
	if err := e.RenderTo(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}

// RenderTo executes the named template with the given data and writes the
// result to an arbitrary io.Writer (useful for testing without HTTP).
func (e *TemplateEngine) RenderTo(w io.Writer, name string, data any) error {
	t, ok := e.templates[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return t.ExecuteTemplate(w, "layout.html", data)
}

// markdownToHTML converts a markdown string to HTML using goldmark.
// goldmark omits raw HTML unless configured otherwise.
func markdownToHTML(input string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(input), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(input))
	}
	return template.HTML(buf.String())
}

// countStatus counts the slots of v in the named status.
func countStatus(v board.View, status string) int {
	s, ok := roster.ParseStatus(status)
	if !ok {
		return 0
	}
	return v.Counts()[s]
}

func statusClass(s roster.Status) string {
	return "status-" + s.String()
}

func stamp(t any) string {
	switch v := t.(type) {
	case *time.Time:
		if v == nil {
			return "-"
		}
		return v.UTC().Format("15:04:05")
	case time.Time:
		if v.IsZero() {
			return "-"
		}
		return v.UTC().Format("2006-01-02 15:04:05")
	default:
		return "-"
	}
}

func jsonString(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}
