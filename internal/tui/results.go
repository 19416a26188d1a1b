package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cymbal-labs/searchdemo/internal/search"
	"github.com/cymbal-labs/searchdemo/internal/ui"
)

// renderResults lays the view out as text, with the same sections and labels
// as the web page. Snippet highlights become bold runs.
func renderResults(view ui.ResultView, s *Styles, width int) string {
	if width <= 0 {
		width = 80
	}
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	b.WriteString(s.Section.Render("Summary"))
	b.WriteString("\n")
	if view.HasSummary {
		b.WriteString(wrap.Render(view.Summary))
	} else {
		b.WriteString(s.Muted.Render(wrap.Render(view.Summary)))
	}
	b.WriteString("\n")

	for _, doc := range view.Documents {
		b.WriteString("\n")
		b.WriteString(s.Document.Render("from: " + doc.Title))
		b.WriteString("\n")

		if len(doc.References) > 0 {
			b.WriteString(s.Section.Render("References"))
			b.WriteString("\n")
			for _, r := range doc.References {
				b.WriteString(wrap.Render(s.Muted.Render("page "+r.Page) + "  " + r.Content))
				b.WriteString("\n")
			}
		}

		if len(doc.Snippets) > 0 {
			b.WriteString(s.Section.Render("Snippets"))
			b.WriteString("\n")
			for _, snippet := range doc.Snippets {
				b.WriteString(wrap.Render(styledMarkup(snippet, s)))
				b.WriteString("\n")
			}
		}

		if len(doc.Answers) > 0 {
			b.WriteString(s.Section.Render("Extractive Answers"))
			b.WriteString("\n")
			for _, a := range doc.Answers {
				b.WriteString(wrap.Render(s.Muted.Render("page "+a.Page) + "  " + a.Content))
				b.WriteString("\n")
			}
		}

		if len(doc.Segments) > 0 {
			b.WriteString(s.Section.Render("Extractive Segments"))
			b.WriteString("\n")
			for _, seg := range doc.Segments {
				head := s.Muted.Render("page "+seg.Page) + "  " + s.Score.Render("relevance score: "+seg.Score)
				b.WriteString(head)
				b.WriteString("\n")
				b.WriteString(wrap.Render(seg.Content))
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

func styledMarkup(m search.Markup, s *Styles) string {
	var b strings.Builder
	for _, seg := range m.Segments() {
		if seg.Emphasis {
			b.WriteString(s.Highlight.Render(seg.Text))
			continue
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}
