package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clearlist/clearlist/internal/database"
	"github.com/clearlist/clearlist/internal/todo/repository"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, lg, err := loadConfig(rootOpts, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			lg.Info("initializing database...", "dsn", cfg.DatabaseURL)
			db, err := database.Open(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("could not initialize DB: %w", err)
			}
			defer db.Close()

			repo, err := repository.NewTodoRepo(db)
			if err != nil {
				return fmt.Errorf("could not initialize DB: %w", err)
			}

			n, err := repo.Count(cmd.Context())
			if err != nil {
				return err
			}

			lg.Info("database ready", "todos", n, "schema_version", database.SchemaVersion)
			return nil
		},
	}
}
