package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/unifiedhub/unifiedhub/internal/core/domain"
)

// Colour palette for terminal output.
var (
	colourPrimary = lipgloss.Color("#7C3AED") // Purple
	colourMuted   = lipgloss.Color("#6C7086") // Medium gray
	colourSuccess = lipgloss.Color("#A6E3A1") // Green
	colourWarning = lipgloss.Color("#F9E2AF") // Yellow
	colourError   = lipgloss.Color("#F38BA8") // Red
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colourPrimary)
	mutedStyle   = lipgloss.NewStyle().Foreground(colourMuted)
	successStyle = lipgloss.NewStyle().Foreground(colourSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colourWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colourError)
)

// stateStyle picks the colour for a session state.
func stateStyle(state domain.SessionState) lipgloss.Style {
	switch state {
	case domain.StateConnected:
		return successStyle
	case domain.StateFailed:
		return errorStyle
	case domain.StateAuthorizing, domain.StateExchanging, domain.StateRefreshing:
		return warningStyle
	default:
		return mutedStyle
	}
}

// padRight pads s to width visible cells; lipgloss measures ANSI-free width.
func padRight(s string, width int) string {
	return lipgloss.NewStyle().Width(width).Render(s)
}
