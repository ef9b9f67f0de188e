package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/logging"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/notify"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/pkg/clock"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/pkg/iojson"
)

type SettingsCmd struct {
	flags *Flags

	out      string
	snapshot iojson.FileReader[notify.Snapshot]
}

// NewSettingsCmd creates a new settings command
func NewSettingsCmd(flags *Flags) *SettingsCmd {
	return &SettingsCmd{flags: flags}
}

// Register adds the settings command to the application
func (cmd *SettingsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "settings",
		Usage: "Inspect and change persisted notification settings",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Print the current settings as JSON",
				UsageText: "wardnotify settings show",
				Action:    cmd.show,
			},
			{
				Name:      "set",
				Usage:     "Change one or more settings",
				UsageText: "wardnotify settings set [--max-visible N] [--position P] [--duration type=ms] ...",
				Description: `Only the flags given are changed. The update is validated as a whole:
if any field is invalid nothing is saved and the field errors are printed.`,
				Flags:  settingsFlags(),
				Action: cmd.set,
			},
			{
				Name:      "export",
				Usage:     "Write a settings snapshot",
				UsageText: "wardnotify settings export [--out file]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "out",
						Aliases:     []string{"o"},
						Usage:       "write to file instead of stdout",
						Destination: &cmd.out,
					},
				},
				Action: cmd.export,
			},
			{
				Name:      "import",
				Usage:     "Apply a settings snapshot",
				UsageText: "wardnotify settings import <file|->",
				Flags:     []cli.Flag{cmd.snapshot.Flag()},
				Action:    cmd.importSnapshot,
			},
			{
				Name:      "reset",
				Usage:     "Restore default settings",
				UsageText: "wardnotify settings reset",
				Action:    cmd.reset,
			},
		},
	})

	return app
}

func settingsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "max-visible", Usage: "notifications shown at once (1-20)"},
		&cli.IntFlag{Name: "default-duration", Usage: "default auto-close duration in ms (0 = persistent)"},
		&cli.StringFlag{Name: "position", Usage: "top-left, top-right, bottom-left or bottom-right"},
		&cli.BoolFlag{Name: "sounds", Usage: "enable sounds"},
		&cli.BoolFlag{Name: "animations", Usage: "enable animations"},
		&cli.IntFlag{Name: "auto-cleanup-interval", Usage: "sweep interval in ms (min 60000)"},
		&cli.IntFlag{Name: "max-stored", Usage: "stored notification cap (min 10)"},
		&cli.StringSliceFlag{Name: "persistent-types", Usage: "types that never auto-close"},
		&cli.FloatFlag{Name: "sound-volume", Usage: "volume between 0.0 and 1.0"},
		&cli.StringSliceFlag{Name: "duration", Usage: "per-type duration as type=ms, repeatable; replaces all custom durations"},
	}
}

// updateFromFlags builds an update from the flags that were explicitly set.
func updateFromFlags(c *cli.Command) (notify.SettingsUpdate, error) {
	var u notify.SettingsUpdate

	if c.IsSet("max-visible") {
		v := c.Int("max-visible")
		u.MaxVisible = &v
	}
	if c.IsSet("default-duration") {
		v := c.Int("default-duration")
		u.DefaultDuration = &v
	}
	if c.IsSet("position") {
		v := notify.Position(c.String("position"))
		u.Position = &v
	}
	if c.IsSet("sounds") {
		v := c.Bool("sounds")
		u.EnableSounds = &v
	}
	if c.IsSet("animations") {
		v := c.Bool("animations")
		u.EnableAnimations = &v
	}
	if c.IsSet("auto-cleanup-interval") {
		v := c.Int("auto-cleanup-interval")
		u.AutoCleanupInterval = &v
	}
	if c.IsSet("max-stored") {
		v := c.Int("max-stored")
		u.MaxStoredNotifications = &v
	}
	if c.IsSet("persistent-types") {
		var types []notify.Type
		for _, s := range c.StringSlice("persistent-types") {
			types = append(types, notify.Type(s))
		}
		u.PersistentTypes = &types
	}
	if c.IsSet("sound-volume") {
		v := c.Float("sound-volume")
		u.SoundVolume = &v
	}
	if c.IsSet("duration") {
		durations, err := parseDurations(c.StringSlice("duration"))
		if err != nil {
			return u, err
		}
		u.CustomDurations = &durations
	}

	return u, nil
}

func parseDurations(pairs []string) (map[notify.Type]int, error) {
	out := make(map[notify.Type]int, len(pairs))
	for _, p := range pairs {
		name, ms, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid duration %q: want type=ms", p)
		}
		v, err := strconv.Atoi(ms)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", p, err)
		}
		out[notify.Type(name)] = v
	}
	return out, nil
}

func (cmd *SettingsCmd) withEngine(ctx context.Context, name string, fn func(*engine) error) error {
	ctx = logging.WithCommand(ctx, "settings "+name)
	logger := log.Logger.With().Ctx(ctx).Logger()

	eng, err := openEngine(cmd.flags.Config, clock.Real{}, logger)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	return fn(eng)
}

func (cmd *SettingsCmd) show(ctx context.Context, c *cli.Command) error {
	return cmd.withEngine(ctx, "show", func(e *engine) error {
		return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, e.svc.Settings())
	})
}

func (cmd *SettingsCmd) set(ctx context.Context, c *cli.Command) error {
	u, err := updateFromFlags(c)
	if err != nil {
		return err
	}
	if u.IsEmpty() {
		return cli.Exit("no settings given; see 'wardnotify settings set --help'", 1)
	}

	if err := notify.ValidateUpdate(u); err != nil {
		_ = iojson.WriteErrorTo(c.Root().ErrWriter, "settings rejected", fieldErrorData(err))
		return cli.Exit("", 1)
	}

	return cmd.withEngine(ctx, "set", func(e *engine) error {
		if !e.svc.UpdateSettings(u) {
			return cli.Exit("settings rejected", 1)
		}
		return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, e.svc.Settings())
	})
}

func (cmd *SettingsCmd) export(ctx context.Context, c *cli.Command) error {
	return cmd.withEngine(ctx, "export", func(e *engine) error {
		snap := e.svc.ExportSettings()
		if cmd.out != "" {
			return iojson.WriteFile(cmd.out, snap)
		}
		return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, snap)
	})
}

func (cmd *SettingsCmd) importSnapshot(ctx context.Context, c *cli.Command) error {
	if c.Args().Present() {
		cmd.snapshot.SetPath(c.Args().First())
	}

	snap, err := cmd.snapshot.Read()
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	return cmd.withEngine(ctx, "import", func(e *engine) error {
		if !e.svc.ImportSettings(&snap) {
			return cli.Exit("snapshot rejected", 1)
		}
		return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, e.svc.Settings())
	})
}

func (cmd *SettingsCmd) reset(ctx context.Context, c *cli.Command) error {
	return cmd.withEngine(ctx, "reset", func(e *engine) error {
		e.svc.ResetSettings()
		return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, e.svc.Settings())
	})
}

// fieldErrorData flattens criterio field errors into field → message.
func fieldErrorData(err error) map[string]any {
	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return map[string]any{"error": err.Error()}
	}
	data := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		data[fe.Field] = fe.Err.Error()
	}
	return data
}
