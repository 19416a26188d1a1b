package output

import (
	"fmt"
	"strings"

	"github.com/cymbal-labs/searchdemo/internal/ui"
)

// MarkdownFormatter renders results as markdown, with the same headings the
// web page uses.
type MarkdownFormatter struct{}

// FormatView renders a view as Markdown.
func (f *MarkdownFormatter) FormatView(view ui.ResultView) (string, error) {
	var sb strings.Builder
	sb.WriteString("## Summary\n\n")
	sb.WriteString(collapseWhitespace(view.Summary))
	sb.WriteString("\n")

	for _, doc := range view.Documents {
		sb.WriteString(fmt.Sprintf("\n### from: %s\n", escapeMarkdown(doc.Title)))

		if len(doc.References) > 0 {
			sb.WriteString("\n**References**\n\n")
			for _, r := range doc.References {
				sb.WriteString(fmt.Sprintf("- page %s: %s\n", r.Page, escapeMarkdown(collapseWhitespace(r.Content))))
			}
		}

		if len(doc.Snippets) > 0 {
			sb.WriteString("\n**Snippets**\n\n")
			for _, s := range doc.Snippets {
				sb.WriteString("- ")
				for _, seg := range s.Segments() {
					text := escapeMarkdown(collapseKeepEdges(seg.Text))
					if seg.Emphasis && strings.TrimSpace(text) != "" {
						text = "**" + strings.TrimSpace(text) + "**"
					}
					sb.WriteString(text)
				}
				sb.WriteString("\n")
			}
		}

		if len(doc.Answers) > 0 {
			sb.WriteString("\n**Extractive Answers**\n\n")
			for _, a := range doc.Answers {
				sb.WriteString(fmt.Sprintf("- page %s: %s\n", a.Page, escapeMarkdown(collapseWhitespace(a.Content))))
			}
		}

		if len(doc.Segments) > 0 {
			sb.WriteString("\n**Extractive Segments**\n\n")
			for _, s := range doc.Segments {
				sb.WriteString(fmt.Sprintf("- page %s, relevance score: %s: %s\n",
					s.Page, s.Score, escapeMarkdown(collapseWhitespace(s.Content))))
			}
		}
	}

	return sb.String(), nil
}

// collapseKeepEdges collapses inner whitespace but keeps one leading and one
// trailing space, so adjacent emphasis runs stay separated.
func collapseKeepEdges(value string) string {
	inner := collapseWhitespace(value)
	if inner == "" {
		if value != "" {
			return " "
		}
		return ""
	}
	if strings.TrimLeft(value, " \t\n") != value {
		inner = " " + inner
	}
	if strings.TrimRight(value, " \t\n") != value {
		inner += " "
	}
	return inner
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"|", `\|`,
)

func escapeMarkdown(value string) string {
	return markdownEscaper.Replace(value)
}
