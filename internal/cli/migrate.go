package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or revert the database schema",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(database.DirectionUp), string(database.DirectionDown)},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := database.Direction(args[0])
			if direction != database.DirectionUp && direction != database.DirectionDown {
				return fmt.Errorf("unknown direction %q, expected up or down", args[0])
			}

			cfg, err := config.LoadFrom(flagEnvFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logr.Sync() //nolint:errcheck

			db, err := database.NewPostgres(cfg.Database)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer db.Close()

			return database.Migrate(db.DB, direction, logr)
		},
	}
}
