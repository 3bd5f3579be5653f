package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	accentColor  = lipgloss.Color("#3B82F6")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	brandColor   = lipgloss.Color("#0EA5E9")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(brandColor)

	LabelStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	ValueStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	HighlightStyle = lipgloss.NewStyle().
			Foreground(brandColor).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// BoxStyle frames the run summary
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 2)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor)

	barFilledStyle = lipgloss.NewStyle().Foreground(successColor)
	barEmptyStyle  = lipgloss.NewStyle().Foreground(mutedColor)
)

// StatusStyle picks a style for a run or row status
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "ok", "completed":
		return SuccessStyle
	case "no_detail", "resumed", "partial":
		return WarningStyle
	case "failed", "error":
		return ErrorStyle
	default:
		return ValueStyle
	}
}
