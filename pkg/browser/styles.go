package browser

import "github.com/charmbracelet/lipgloss"

// Palette
const (
	accent  = lipgloss.Color("#FF00FF")
	frame   = lipgloss.Color("#00FFFF")
	good    = lipgloss.Color("#00FF00")
	bad     = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#888888")
	dimmed  = lipgloss.Color("#666666")
	trail   = lipgloss.Color("#FFFF00")
	inverse = lipgloss.Color("#FFFFFF")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).MarginLeft(2).MarginTop(1)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(frame).
			BorderStyle(lipgloss.RoundedBorder()).BorderForeground(frame).Padding(0, 1)

	activeTabStyle   = lipgloss.NewStyle().Bold(true).Foreground(inverse).Background(accent).Padding(0, 2)
	inactiveTabStyle = lipgloss.NewStyle().Foreground(dimmed).Padding(0, 2)

	contentStyle    = lipgloss.NewStyle().MarginLeft(2).MarginTop(1)
	breadcrumbStyle = lipgloss.NewStyle().Foreground(trail).MarginLeft(2)

	// Boxes around element details and statistics
	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).BorderForeground(good).Padding(1, 2).MarginRight(2)

	errorStyle   = lipgloss.NewStyle().Foreground(bad).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(good).Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(muted).MarginTop(1).MarginLeft(2)
)
