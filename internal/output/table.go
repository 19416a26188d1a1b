package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/cymbal-labs/searchdemo/internal/ui"
)

// TableFormatter renders results as ASCII tables, one per document.
type TableFormatter struct {
	// ContentWidth wraps the content column; 0 uses 80.
	ContentWidth int
}

// FormatView renders a view as a summary line followed by document tables.
func (f *TableFormatter) FormatView(view ui.ResultView) (string, error) {
	width := f.ContentWidth
	if width <= 0 {
		width = 80
	}

	var sb strings.Builder
	sb.WriteString("Summary: ")
	sb.WriteString(collapseWhitespace(view.Summary))
	sb.WriteString("\n")

	if len(view.Documents) == 0 {
		sb.WriteString("\nNo documents.\n")
		return sb.String(), nil
	}

	for i, doc := range view.Documents {
		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetTitle(fmt.Sprintf("%d. from: %s", i+1, doc.Title))
		t.AppendHeader(table.Row{"Section", "Page", "Content"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 3, WidthMax: width, WidthMaxEnforcer: text.WrapSoft},
		})

		rows := sectionRows(doc)
		for _, row := range rows {
			t.AppendRow(table.Row{row[0], row[1], collapseWhitespace(row[2])})
		}
		t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d entries", len(rows))})

		sb.WriteString("\n")
		sb.WriteString(t.Render())
		sb.WriteString("\n")
	}

	return sb.String(), nil
}
