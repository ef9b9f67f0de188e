package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/Kaneda731/gestione-pazienti-spa-sub000/internal/core/config"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "wardnotify config validate [options]",
				Description: "Validates the configuration file, its settings section and the storage paths.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (cmd *ConfigValidateCmd) run(ctx context.Context, c *cli.Command) error {
	errs := cmd.validate()

	if cmd.format == "json" {
		return cmd.outputJSON(c.Root().Writer, errs)
	}
	return cmd.outputText(c.Root().Writer, errs)
}

// validate loads the config file itself so parse errors are reported
// instead of failing in the Before hook.
func (cmd *ConfigValidateCmd) validate() []validationError {
	cfg := cmd.flags.Config
	if cfg == nil {
		loaded, err := config.Load(cmd.flags.ConfigPath, cmd.flags.DataDir)
		if err != nil {
			return toValidationErrors(err)
		}
		cfg = loaded
	}
	return toValidationErrors(cfg.ValidateDeep(cmd.flags.ConfigPath))
}

func toValidationErrors(err error) []validationError {
	if err == nil {
		return nil
	}
	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return []validationError{{Field: "config", Message: err.Error()}}
	}
	out := make([]validationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, validationError{Field: fe.Field, Message: fe.Err.Error()})
	}
	return out
}

func (cmd *ConfigValidateCmd) outputJSON(w io.Writer, errs []validationError) error {
	out := struct {
		Valid  bool              `json:"valid"`
		Path   string            `json:"path"`
		Errors []validationError `json:"errors,omitempty"`
	}{
		Valid:  len(errs) == 0,
		Path:   cmd.flags.ConfigPath,
		Errors: errs,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	if len(errs) > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *ConfigValidateCmd) outputText(w io.Writer, errs []validationError) error {
	for _, e := range errs {
		_, _ = fmt.Fprintf(w, "✗ %s: %s\n", e.Field, e.Message)
	}

	if len(errs) == 0 {
		_, _ = fmt.Fprintf(w, "✓ %s is valid\n", cmd.flags.ConfigPath)
		return nil
	}

	_, _ = fmt.Fprintf(w, "%d error(s) found\n", len(errs))
	return cli.Exit("", 1)
}
