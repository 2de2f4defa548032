// Package cli is the studio command line: the capture, cover and upload
// steps of the recipe flow run against local files without a device.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/freshrecipes/studio/internal/config"
	"github.com/freshrecipes/studio/internal/logger"
)

type App struct {
	Format     string
	PrettyJSON bool
	LogLevel   string

	Config *config.Config
	Log    *slog.Logger

	// loadConfig is replaced in tests.
	loadConfig func() (*config.Config, error)
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&App{loadConfig: config.Load})
}

func newRootCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "studio",
		Short:        "Record, compose and upload recipes from the command line",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Record with the configured camera helper, then trim in the editor
  studio capture --platform android

  # Pick the cover at 120px into the strip
  studio frames ./edited.mp4 --offset 120

  # Look up ingredient names
  studio suggest "chick"

  # Upload a finished draft
  studio submit ./draft.yaml --user u-123
`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig()
			if err != nil {
				return writeErr(cmd, fmt.Errorf("failed to load config: %w", err))
			}
			app.Config = cfg

			level := app.LogLevel
			if level == "" {
				level = cfg.Server.LogLevel
			}
			app.Log = logger.NewWithWriter(cmd.ErrOrStderr(), level, "text")
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("STUDIO_FORMAT", "json"), "Output format (json|yaml)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", "", "Log level for stderr (default: config server.log_level)")

	cmd.AddCommand(newCaptureCmd(app))
	cmd.AddCommand(newFramesCmd(app))
	cmd.AddCommand(newSuggestCmd(app))
	cmd.AddCommand(newSubmitCmd(app))

	return cmd
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func write(w io.Writer, v any, format string, pretty bool) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "", "json":
		enc := json.NewEncoder(w)
		if pretty {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
