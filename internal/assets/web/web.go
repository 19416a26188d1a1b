// Package web embeds the browser front end: the page and result templates and
// the script that forwards input events and listens on the live channel.
package web

import (
	"embed"
	"html/template"
	"io"
	"io/fs"

	"github.com/cymbal-labs/searchdemo/internal/ui"
)

//go:embed templates/*.html.tmpl static/*
var files embed.FS

var templates = template.Must(template.New("web").ParseFS(files, "templates/*.html.tmpl"))

// FieldInput is one parameter input on the page.
type FieldInput struct {
	Name  string
	Label string
	Value string
}

// Page is the data for the full page.
type Page struct {
	Title   string
	Tab     string
	Query   string
	Fields  []FieldInput
	Busy    bool
	Results ui.ResultView
}

// NewPage collects what the page needs from a session.
func NewPage(title string, s *ui.Session) Page {
	fields := make([]FieldInput, 0, len(ui.Fields))
	for _, f := range ui.Fields {
		fields = append(fields, FieldInput{Name: string(f), Label: f.Label(), Value: s.Form.Raw(f)})
	}
	return Page{
		Title:   title,
		Tab:     s.ID,
		Query:   s.Query.Value(),
		Fields:  fields,
		Busy:    s.Form.Busy(),
		Results: s.View(),
	}
}

// RenderPage writes the full page.
func RenderPage(w io.Writer, page Page) error {
	return templates.ExecuteTemplate(w, "page", page)
}

// RenderResults writes the summary and result list fragment.
func RenderResults(w io.Writer, view ui.ResultView) error {
	return templates.ExecuteTemplate(w, "results", view)
}

// Static returns the embedded static files rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
