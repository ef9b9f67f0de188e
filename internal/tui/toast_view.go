// Package tui renders the notification stack for a terminal.
package tui

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/notify"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/toast/timers"
)

// ToastSource is the read side of the notification service.
type ToastSource interface {
	Visible() []notify.Notification
	GetTimerState(id string) (timers.State, bool)
}

// ToastView renders visible notifications grouped by screen corner.
type ToastView struct {
	source ToastSource
	width  int
}

// NewToastView creates a view placing toasts within width columns. A width
// smaller than a toast disables horizontal alignment.
func NewToastView(source ToastSource, width int) *ToastView {
	return &ToastView{source: source, width: width}
}

// View renders every visible notification. Top corners put the newest toast
// first, bottom corners put it last. Empty when nothing is visible.
func (v *ToastView) View() string {
	visible := v.source.Visible()
	if len(visible) == 0 {
		return ""
	}

	groups := make(map[notify.Position][]notify.Notification, len(notify.Positions))
	for _, n := range visible {
		pos := n.Options.Position
		if !pos.Valid() {
			pos = notify.PositionTopRight
		}
		groups[pos] = append(groups[pos], n)
	}

	blocks := make([]string, 0, len(groups))
	for _, pos := range notify.Positions {
		list := groups[pos]
		if len(list) == 0 {
			continue
		}

		rendered := make([]string, 0, len(list))
		for _, n := range list {
			rendered = append(rendered, v.renderToast(n))
		}
		if pos.Top() {
			slices.Reverse(rendered)
		}

		block := lipgloss.JoinVertical(lipgloss.Left, rendered...)
		blocks = append(blocks, v.place(pos, block))
	}

	return strings.Join(blocks, "\n")
}

func (v *ToastView) place(pos notify.Position, block string) string {
	if v.width <= lipgloss.Width(block) {
		return block
	}
	align := lipgloss.Left
	if pos == notify.PositionTopRight || pos == notify.PositionBottomRight {
		align = lipgloss.Right
	}
	return lipgloss.PlaceHorizontal(v.width, align, block)
}

func (v *ToastView) renderToast(n notify.Notification) string {
	ts := styleFor(n.Type)

	header := boldStyle.Foreground(ts.color).Render(ts.icon) + " " + n.Message

	var status string
	if st, ok := v.source.GetTimerState(n.ID); ok {
		status = timerLine(st)
	} else if n.Options.Persistent || n.Options.Duration <= 0 {
		status = IconPinned + " pinned"
	} else {
		// not started yet
		d := time.Duration(n.Options.Duration) * time.Millisecond
		status = timerLine(timers.State{Remaining: d, Original: d})
	}
	footer := mutedStyle.Render(status + "  " + n.ID)

	return toastBaseStyle.BorderForeground(ts.color).Render(header + "\n" + footer)
}

func timerLine(st timers.State) string {
	line := ProgressBar(st.Remaining, st.Original, progressWidth) + " " + formatRemaining(st.Remaining)
	if st.Paused {
		line += " " + IconPaused + " paused"
	}
	return line
}

// ProgressBar draws remaining/total as a bar of width cells.
func ProgressBar(remaining, total time.Duration, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 {
		ratio := float64(remaining) / float64(total)
		filled = int(math.Round(ratio * float64(width)))
		filled = min(max(filled, 0), width)
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func formatRemaining(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
