package tui

import (
	"github.com/charmbracelet/lipgloss"

	"fingram/internal/telegram"
)

// Styles maps the host theme slots onto the widget styles. Standalone runs
// get the documented fallback palette from the theme layer.
type Styles struct {
	Title     lipgloss.Style
	TabActive lipgloss.Style
	TabIdle   lipgloss.Style
	Pane      lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Hint      lipgloss.Style
	Income    lipgloss.Style
	Expense   lipgloss.Style
	Error     lipgloss.Style
	Selected  lipgloss.Style
	PromptBox lipgloss.Style
	Footer    lipgloss.Style
}

func NewStyles(theme telegram.Theme) Styles {
	accent := lipgloss.Color(theme.Color(telegram.SlotButton))
	text := lipgloss.Color(theme.Color(telegram.SlotText))
	hint := lipgloss.Color(theme.Color(telegram.SlotHint))
	subtitle := lipgloss.Color(theme.Color(telegram.SlotSubtitleText))
	destructive := lipgloss.Color(theme.Color(telegram.SlotDestructiveText))
	link := lipgloss.Color(theme.Color(telegram.SlotLink))
	separator := lipgloss.Color(theme.Color(telegram.SlotSectionSeparator))

	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(accent),
		TabActive: lipgloss.NewStyle().Bold(true).Foreground(accent).Underline(true),
		TabIdle:   lipgloss.NewStyle().Foreground(subtitle),
		Pane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(separator).
			Padding(0, 1),
		Label:    lipgloss.NewStyle().Foreground(subtitle),
		Value:    lipgloss.NewStyle().Foreground(text),
		Hint:     lipgloss.NewStyle().Foreground(hint),
		Income:   lipgloss.NewStyle().Foreground(link),
		Expense:  lipgloss.NewStyle().Foreground(destructive),
		Error:    lipgloss.NewStyle().Bold(true).Foreground(destructive),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(accent),
		PromptBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		Footer: lipgloss.NewStyle().Foreground(subtitle),
	}
}
