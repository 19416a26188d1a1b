// Package output renders a search result view for the terminal.
package output

import (
	"fmt"
	"strings"

	"github.com/cymbal-labs/searchdemo/internal/ui"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Formats lists every supported format in help order.
var Formats = []Format{FormatTable, FormatMarkdown, FormatJSON, FormatYAML}

// Formatter renders a result view.
type Formatter interface {
	FormatView(view ui.ResultView) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

// sectionRows flattens one document into label/page/content rows in the order
// the page shows them. Snippets are reduced to plain text.
func sectionRows(doc ui.DocumentView) [][3]string {
	var rows [][3]string
	for _, r := range doc.References {
		rows = append(rows, [3]string{"reference", r.Page, r.Content})
	}
	for _, s := range doc.Snippets {
		rows = append(rows, [3]string{"snippet", "", s.Text()})
	}
	for _, a := range doc.Answers {
		rows = append(rows, [3]string{"answer", a.Page, a.Content})
	}
	for _, s := range doc.Segments {
		rows = append(rows, [3]string{"segment", s.Page, s.Content + " (relevance score: " + s.Score + ")"})
	}
	return rows
}

func collapseWhitespace(value string) string {
	return strings.Join(strings.Fields(value), " ")
}
