package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/notify"
)

var statsLabelStyle = lipgloss.NewStyle().Foreground(colorMuted).Width(14)

// RenderStats formats stats as aligned label/value lines.
func RenderStats(s notify.Stats) string {
	if s.Error != "" {
		return lipgloss.NewStyle().Foreground(colorError).Render("stats unavailable: " + s.Error)
	}

	rows := [][2]string{
		{"total", fmt.Sprint(s.Total)},
		{"visible", fmt.Sprint(s.Visible)},
		{"persistent", fmt.Sprint(s.Persistent)},
		{"timers", fmt.Sprint(s.ActiveTimers)},
	}
	for _, t := range notify.Types {
		rows = append(rows, [2]string{string(t), fmt.Sprint(s.ByType[t])})
	}
	if s.Oldest != nil {
		rows = append(rows, [2]string{"oldest", s.Oldest.Format(time.RFC3339)})
	}
	if s.Newest != nil {
		rows = append(rows, [2]string{"newest", s.Newest.Format(time.RFC3339)})
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, statsLabelStyle.Render(r[0])+r[1])
	}
	return strings.Join(lines, "\n")
}
