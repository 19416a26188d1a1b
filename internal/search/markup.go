package search

import (
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Markup is an HTML fragment produced by the search backend, such as a snippet
// with <b> highlights. It is trusted: HTML renders it without escaping and
// without sanitizing. Only backend-supplied text may be converted to Markup.
type Markup string

// HTML returns the fragment for verbatim inclusion in a template.
func (m Markup) HTML() template.HTML {
	return template.HTML(m) // #nosec G203 -- backend highlighting markup is trusted
}

// Text returns the fragment with all tags removed and entities decoded.
func (m Markup) Text() string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(m)))
	if err != nil {
		return string(m)
	}
	return doc.Text()
}

// Segment is a run of fragment text, flagged when it sat inside an emphasis
// element (b, strong, em, i, mark).
type Segment struct {
	Text     string
	Emphasis bool
}

var emphasisTags = map[string]bool{
	"b":      true,
	"strong": true,
	"em":     true,
	"i":      true,
	"mark":   true,
}

// Segments splits the fragment into plain and emphasized runs in document
// order, so terminal renderers can style highlights without an HTML engine.
func (m Markup) Segments() []Segment {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(m)))
	if err != nil {
		return []Segment{{Text: string(m)}}
	}

	var out []Segment
	var walk func(sel *goquery.Selection, emphasized bool)
	walk = func(sel *goquery.Selection, emphasized bool) {
		sel.Contents().Each(func(_ int, node *goquery.Selection) {
			if goquery.NodeName(node) == "#text" {
				text := node.Text()
				if text == "" {
					return
				}
				if n := len(out); n > 0 && out[n-1].Emphasis == emphasized {
					out[n-1].Text += text
					return
				}
				out = append(out, Segment{Text: text, Emphasis: emphasized})
				return
			}
			walk(node, emphasized || emphasisTags[goquery.NodeName(node)])
		})
	}
	walk(doc.Find("body"), false)

	return out
}
