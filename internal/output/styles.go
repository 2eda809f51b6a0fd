package output

import "github.com/charmbracelet/lipgloss"

// Color palette. Single cyan accent, ANSI 256 codes.
const (
	colorCyan   = "51"
	colorWhite  = "255"
	colorGray   = "245"
	colorDim    = "238"
	colorRed    = "196"
	colorYellow = "220"
)

// Styles holds the render styles for terminal output.
type Styles struct {
	Header  lipgloss.Style
	Title   lipgloss.Style
	Score   lipgloss.Style
	Meta    lipgloss.Style
	Divider lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
}

// DefaultStyles returns the styled palette for interactive terminals.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorCyan)),
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorWhite)),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorCyan)),
		Meta:    lipgloss.NewStyle().Foreground(lipgloss.Color(colorGray)),
		Divider: lipgloss.NewStyle().Foreground(lipgloss.Color(colorDim)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
	}
}

// PlainStyles returns unstyled rendering for pipes and CI.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:  plain,
		Title:   plain,
		Score:   plain,
		Meta:    plain,
		Divider: plain,
		Error:   plain,
		Warning: plain,
	}
}
