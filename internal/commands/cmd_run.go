package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/config"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/logging"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/notify"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/profiler"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/toast"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/tui"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/pkg/clock"
)

type RunCmd struct {
	flags *Flags

	// Command-specific flags
	watch     bool
	width     int
	debugPort int
}

// NewRunCmd creates a new run command
func NewRunCmd(flags *Flags) *RunCmd {
	return &RunCmd{flags: flags}
}

// Register adds the run command to the application
func (cmd *RunCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Run the notification engine interactively",
		UsageText: "wardnotify run [--watch] [--width N]",
		Description: `Starts the notification engine and reads commands from stdin, one per line.
The notification stack is redrawn whenever it changes.

` + sessionHelp + `

Exits on EOF or interrupt and prints final statistics. With --watch the
settings section of the config file is re-applied whenever the file changes.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "watch",
				Aliases:     []string{"w"},
				Usage:       "re-apply config settings when the config file changes",
				Destination: &cmd.watch,
			},
			&cli.IntFlag{
				Name:        "debug-port",
				Usage:       "serve pprof and /debug/stats on 127.0.0.1:PORT",
				Sources:     cli.EnvVars("WARDNOTIFY_DEBUG_PORT"),
				Destination: &cmd.debugPort,
			},
			&cli.IntFlag{
				Name:        "width",
				Usage:       "render width (defaults to the terminal width)",
				Destination: &cmd.width,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RunCmd) run(ctx context.Context, c *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logging.WithRunID(logging.WithCommand(ctx, "run"), uuid.NewString())
	logger := log.Logger.With().Ctx(ctx).Logger()

	// Every timer, sweep and reload callback runs on this goroutine,
	// interleaved with stdin commands.
	loop := clock.NewLoop(clock.Real{})
	defer loop.Close()

	cfg := cmd.flags.Config
	eng, err := openEngine(cfg, loop, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			logger.Error().Err(err).Msg("close engine")
		}
	}()

	sess := newSession(eng.svc, c.Root().Writer, cmd.renderWidth(), cfg.Cleanup.MaxAge)
	unsubscribe := eng.svc.OnChange(func([]notify.Notification) { sess.Render() })
	defer unsubscribe()

	if cfg.Cleanup.Enabled {
		if err := eng.svc.StartAutoCleanupFromSettings(); err != nil {
			logger.Warn().Err(err).Msg("auto-cleanup not started")
		}
	}

	if cmd.watch {
		w, err := config.NewWatcher(cmd.flags.ConfigPath, func() {
			loop.Post(func() { cmd.reload(eng.svc, logger) })
		}, logging.Sub(logger, "config"))
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		defer func() { _ = w.Close() }()
	}

	if cmd.debugPort > 0 {
		srv := profiler.New(cmd.debugPort, eng.svc.GetStats, logging.Sub(logger, "debug"))
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	logger.Info().Str("backend", cfg.Storage.Backend).Msg("engine started")
	sess.Render()

	runLines(ctx, c.Root().Reader, loop.C(), func(line string) {
		if err := sess.Execute(line); err != nil {
			_, _ = fmt.Fprintln(c.Root().ErrWriter, err)
		}
	})

	sess.printf("%s\n", tui.RenderStats(eng.svc.GetStats()))
	logger.Info().Msg("engine stopped")
	return nil
}

// reload re-reads the config file and applies its settings section.
func (cmd *RunCmd) reload(svc *toast.Service, logger zerolog.Logger) {
	cfg, err := config.Load(cmd.flags.ConfigPath, cmd.flags.DataDir)
	if err != nil {
		logger.Warn().Err(err).Msg("config reload failed")
		return
	}
	applyConfigSettings(svc, cfg, logger)
	logger.Info().Msg("config reloaded")
}

func (cmd *RunCmd) renderWidth() int {
	if cmd.width > 0 {
		return cmd.width
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		return w
	}
	return 0
}

// runLines feeds each line of r to fn until EOF or ctx is done. Callbacks
// received on events run on the same goroutine between lines.
func runLines(ctx context.Context, r io.Reader, events <-chan func(), fn func(string)) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-events:
			event()
		case line, ok := <-lines:
			if !ok {
				return
			}
			fn(line)
		}
	}
}
