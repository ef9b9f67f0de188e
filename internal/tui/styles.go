package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/notify"
)

const (
	toastWidth    = 50
	progressWidth = 20
)

var (
	colorSuccess = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#A6E3A1"}
	colorError   = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#F38BA8"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#EF6C00", Dark: "#F9E2AF"}
	colorInfo    = lipgloss.AdaptiveColor{Light: "#1565C0", Dark: "#89B4FA"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#6C7086"}
)

// Icons per notification type.
const (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "⚠"
	IconInfo    = "ℹ"
	IconPinned  = "⏺"
	IconPaused  = "⏸"
)

var (
	toastBaseStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(toastWidth)

	mutedStyle = lipgloss.NewStyle().Foreground(colorMuted)
	boldStyle  = lipgloss.NewStyle().Bold(true)
)

type typeStyle struct {
	icon  string
	color lipgloss.AdaptiveColor
}

var typeStyles = map[notify.Type]typeStyle{
	notify.TypeSuccess: {IconSuccess, colorSuccess},
	notify.TypeError:   {IconError, colorError},
	notify.TypeWarning: {IconWarning, colorWarning},
	notify.TypeInfo:    {IconInfo, colorInfo},
}

func styleFor(t notify.Type) typeStyle {
	if s, ok := typeStyles[t]; ok {
		return s
	}
	return typeStyles[notify.TypeInfo]
}
