package cli

import (
	"github.com/spf13/cobra"
)

var flagEnvFile string

// NewRootCmd creates the root command of the timetable API binary.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "timetable-api",
		Short:        "Institute timetable API",
		Long:         "Serves timetable generation, storage and export for institutes, and manages its database schema.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "Path to a dotenv file with configuration overrides")

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
	)

	return root
}
