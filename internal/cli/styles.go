// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/grez-lucas/portal-scraper/internal/render"
	"github.com/grez-lucas/portal-scraper/internal/scraper/portal"
)

var (
	// PrimaryColor matches the light palette accent; the rest follow the
	// balance colours of the rendered pages.
	PrimaryColor = lipgloss.Color(render.LightPalette.Accent)
	SuccessColor = lipgloss.Color(render.ColorOK)
	WarningColor = lipgloss.Color(render.ColorLow)
	ErrorColor   = lipgloss.Color(render.ColorDebt)
	SubtleColor  = lipgloss.Color("#666666")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	// BoxStyle is used for bordered content boxes.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "!"
	InfoIcon    = "i"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

func FormatInfo(message string) string {
	return SubtleStyle.Render(InfoIcon + " " + message)
}

// RenderBox renders content in a styled box.
func RenderBox(title, content string) string {
	boxTitle := TitleStyle.
		UnsetMargins().
		Render(title)

	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, boxTitle, content))
}

// SeverityStyle picks the balance colour shared with the HTML renderer.
func SeverityStyle(s portal.Severity) lipgloss.Style {
	switch s {
	case portal.SeverityDebt:
		return ErrorStyle.Bold(true)
	case portal.SeverityLow:
		return WarningStyle.Bold(true)
	default:
		return SuccessStyle.Bold(true)
	}
}
