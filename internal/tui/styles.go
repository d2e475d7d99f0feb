package tui

import "github.com/charmbracelet/lipgloss"

// Color palette for the approvals console
var (
	PrimaryColor = lipgloss.Color("#7D56F4")
	WarningColor = lipgloss.Color("#FFB454")
	ErrorColor   = lipgloss.Color("#FF5F87")
	SuccessColor = lipgloss.Color("#73F59F")
	MutedColor   = lipgloss.Color("#6C6C6C")
	TextColor    = lipgloss.Color("#FAFAFA")
	BorderColor  = lipgloss.Color("#444444")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	statsStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	headerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(BorderColor)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor).
			Background(PrimaryColor)

	rowStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	pendingStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	grantedStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	rejectedStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	footerStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(BorderColor)
)
