// Package cli implements the clearlist command line: serving the API and
// preparing the database.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/clearlist/clearlist/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
}

// NewRootCommand creates the root command for the clearlist CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "clearlist",
		Short:         "clearlist todo backend",
		Long:          "A small todo-list backend: JSON API over SQLite with file attachments.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging, overrides LOG_LEVEL")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// loadConfig reads the config and builds the logger every command uses.
func loadConfig(opts *RootOptions, out io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, newLogger(out, cfg.LogLevel, opts.Verbose), nil
}

func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
