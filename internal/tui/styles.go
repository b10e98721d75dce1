package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the browser colors and styles.
type Theme struct {
	Primary lipgloss.Color
	Success lipgloss.Color
	Danger  lipgloss.Color
	Muted   lipgloss.Color

	TitleStyle  lipgloss.Style
	StatusStyle lipgloss.Style
	ErrorStyle  lipgloss.Style
	DetailStyle lipgloss.Style
}

// DefaultTheme returns the default theme.
func DefaultTheme() *Theme {
	theme := &Theme{
		Primary: lipgloss.Color("#7D56F4"),
		Success: lipgloss.Color("#04B575"),
		Danger:  lipgloss.Color("#FF5F87"),
		Muted:   lipgloss.Color("#626262"),
	}

	theme.TitleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFDF5")).
		Background(theme.Primary).
		Padding(0, 1)

	theme.StatusStyle = lipgloss.NewStyle().
		Foreground(theme.Success).
		Padding(0, 1)

	theme.ErrorStyle = lipgloss.NewStyle().
		Foreground(theme.Danger).
		Bold(true).
		Padding(0, 1)

	theme.DetailStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Muted).
		Padding(0, 1)

	return theme
}
