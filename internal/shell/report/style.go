package report

import "github.com/charmbracelet/lipgloss"

var (
	primary = lipgloss.Color("#7C3AED")
	green   = lipgloss.Color("#10B981")
	red     = lipgloss.Color("#EF4444")
	yellow  = lipgloss.Color("#F59E0B")
	dim     = lipgloss.Color("#6B7280")

	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(primary)
	subtitle    = lipgloss.NewStyle().Foreground(dim).Italic(true)
	dimText     = lipgloss.NewStyle().Foreground(dim)
	tableHeader = lipgloss.NewStyle().Bold(true).Foreground(primary)

	okText   = lipgloss.NewStyle().Foreground(green).Bold(true)
	failText = lipgloss.NewStyle().Foreground(red).Bold(true)
	warnText = lipgloss.NewStyle().Foreground(yellow)

	warningBox = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(yellow).
		Foreground(yellow).
		Padding(0, 1).
		MarginTop(1)
)
