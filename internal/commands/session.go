package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/notify"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/toast"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/tui"
)

var errUsage = errors.New("usage")

const sessionHelp = `commands:
  success|error|warning|info <message>   show a notification
  pause <id> | resume <id>               pause or resume an auto-close timer
  rm <id>                                remove a notification
  clear [type]                           remove all, or all of one type
  ls                                     redraw the stack
  stats                                  print statistics
  sweep                                  run a cleanup pass now
  help                                   this text`

// session interprets the line protocol of `run` against a service.
type session struct {
	svc    *toast.Service
	view   *tui.ToastView
	maxAge time.Duration

	mu  sync.Mutex
	out io.Writer
}

func newSession(svc *toast.Service, out io.Writer, width int, maxAge time.Duration) *session {
	return &session{
		svc:    svc,
		view:   tui.NewToastView(svc, width),
		maxAge: maxAge,
		out:    out,
	}
}

// Execute runs one command line. Blank lines are ignored.
func (s *session) Execute(line string) error {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch verb {
	case "":
		return nil
	case "success", "error", "warning", "info":
		if rest == "" {
			return fmt.Errorf("%w: %s <message>", errUsage, verb)
		}
		id, err := s.svc.Show(notify.Type(verb), rest, notify.ShowOptions{})
		if err != nil {
			return err
		}
		s.printf("%s\n", id)
	case "pause", "resume", "rm":
		if rest == "" {
			return fmt.Errorf("%w: %s <id>", errUsage, verb)
		}
		if _, ok := s.svc.Get(rest); !ok {
			return fmt.Errorf("no notification %q", rest)
		}
		switch verb {
		case "pause":
			s.svc.PauseAutoCloseTimer(rest)
			s.Render()
		case "resume":
			s.svc.ResumeAutoCloseTimer(rest)
			s.Render()
		default:
			s.svc.RemoveNotification(rest)
		}
	case "clear":
		if rest == "" {
			s.svc.Clear()
			return nil
		}
		t := notify.Type(rest)
		if !t.Valid() {
			return &notify.InvalidTypeError{Type: t}
		}
		s.svc.ClearByType(t)
	case "ls":
		s.Render()
	case "stats":
		s.printf("%s\n", tui.RenderStats(s.svc.GetStats()))
	case "sweep":
		s.printf("removed %d\n", s.svc.CleanupOldNotifications(s.maxAge))
	case "help":
		s.printf("%s\n", sessionHelp)
	default:
		return fmt.Errorf("unknown command %q (try help)", verb)
	}
	return nil
}

// Render redraws the visible stack.
func (s *session) Render() {
	view := s.view.View()
	if view == "" {
		view = "(no notifications)"
	}
	s.printf("%s\n", view)
}

func (s *session) printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.out, format, args...)
}
