package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles contains the lipgloss styles used by the terminal client.
type Styles struct {
	Title     lipgloss.Style
	Label     lipgloss.Style
	Focused   lipgloss.Style
	Section   lipgloss.Style
	Document  lipgloss.Style
	Muted     lipgloss.Style
	Highlight lipgloss.Style
	Score     lipgloss.Style
	Notice    lipgloss.Style
	Error     lipgloss.Style
	Border    lipgloss.Style
}

// DefaultStyles returns the default palette.
func DefaultStyles() *Styles {
	var (
		primary = lipgloss.Color("#2563EB")
		accent  = lipgloss.Color("#0EA5E9")
		muted   = lipgloss.Color("#6B7280")
		warning = lipgloss.Color("#D97706")
		danger  = lipgloss.Color("#DC2626")
		border  = lipgloss.Color("#4B5563")
	)

	return &Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(primary),
		Label:     lipgloss.NewStyle().Foreground(muted),
		Focused:   lipgloss.NewStyle().Foreground(accent).Bold(true),
		Section:   lipgloss.NewStyle().Bold(true).Underline(true),
		Document:  lipgloss.NewStyle().Bold(true).Foreground(primary),
		Muted:     lipgloss.NewStyle().Foreground(muted),
		Highlight: lipgloss.NewStyle().Bold(true),
		Score:     lipgloss.NewStyle().Foreground(accent),
		Notice:    lipgloss.NewStyle().Foreground(warning),
		Error:     lipgloss.NewStyle().Foreground(danger),
		Border:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(0, 1),
	}
}
