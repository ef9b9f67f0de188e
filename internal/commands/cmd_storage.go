package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/logging"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/data/db"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/data/stores"
	"github.com/Kaneda731/gestione-pazienti-spa-sub000/pkg/iojson"
)

type StorageCmd struct {
	flags *Flags

	steps int
}

// NewStorageCmd creates a new storage command
func NewStorageCmd(flags *Flags) *StorageCmd {
	return &StorageCmd{flags: flags}
}

// Register adds the storage command to the application
func (cmd *StorageCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "storage",
		Usage: "Inspect and maintain the durable storage backend",
		Commands: []*cli.Command{
			{
				Name:        "dump",
				Usage:       "Print every stored entry as JSON",
				UsageText:   "wardnotify storage dump",
				Description: "Prints the raw persisted entries keyed by storage key. Values that are not valid JSON are printed as strings.",
				Action:      cmd.dump,
			},
			{
				Name:      "migrate-down",
				Usage:     "Revert the newest schema migrations of the sqlite backend",
				UsageText: "wardnotify storage migrate-down [--steps N]",
				Description: `Reverts the newest N applied migrations. Run it with the binary that
applied them before downgrading. The next start re-applies pending migrations.`,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:        "steps",
						Aliases:     []string{"n"},
						Usage:       "number of migrations to revert",
						Value:       1,
						Destination: &cmd.steps,
					},
				},
				Action: cmd.migrateDown,
			},
		},
	})

	return app
}

func (cmd *StorageCmd) dump(ctx context.Context, c *cli.Command) error {
	ctx = logging.WithCommand(ctx, "storage dump")
	logger := logging.Component("storage").With().Ctx(ctx).Logger()

	cfg := cmd.flags.Config
	storage, err := stores.Open(cfg.Storage.Backend, cfg.StoragePath(), logger)
	if err != nil {
		return err
	}
	defer func() { _ = storage.Close() }()

	keys, err := storage.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}

	entries := make(map[string]json.RawMessage, len(keys))
	for _, key := range keys {
		value, err := storage.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("read %q: %w", key, err)
		}
		entries[key] = rawJSON(value)
	}

	return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, entries)
}

func (cmd *StorageCmd) migrateDown(ctx context.Context, c *cli.Command) error {
	ctx = logging.WithCommand(ctx, "storage migrate-down")
	logger := logging.Component("storage").With().Ctx(ctx).Logger()

	cfg := cmd.flags.Config
	if cfg.Storage.Backend != stores.BackendSQLite {
		return cli.Exit(fmt.Sprintf("migrate-down needs the %s backend, configured backend is %s",
			stores.BackendSQLite, cfg.Storage.Backend), 1)
	}

	opts := db.DefaultOpenOptions()
	opts.Logger = logger
	database, err := db.Open(cfg.StoragePath(), opts)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	if err := db.MigrateDown(ctx, database.Conn(), cmd.steps, logger); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	_, _ = fmt.Fprintf(c.Root().Writer, "reverted %d migration(s)\n", cmd.steps)
	return nil
}

// rawJSON keeps valid JSON as is and quotes anything else.
func rawJSON(value string) json.RawMessage {
	if json.Valid([]byte(value)) {
		return json.RawMessage(value)
	}
	quoted, _ := json.Marshal(value)
	return quoted
}
