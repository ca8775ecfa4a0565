package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/sitewave/sitewave/internal/config"
	"github.com/sitewave/sitewave/internal/db"
	"github.com/spf13/cobra"
)

var migrateCommand = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply database migrations",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"up", "down"},
	Run: func(_ *cobra.Command, args []string) {
		direction := "up"
		if len(args) == 1 {
			direction = args[0]
		}

		if err := performMigration(resolveConfig(), direction); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

func performMigration(cfg *config.Config, direction string) error {
	n, err := db.Migrate(cfg.Postgres.DSN, direction)
	if err != nil {
		return errors.Wrap(err, "migration failed")
	}

	fmt.Printf("applied %d migration(s) %s\n", n, direction)

	return nil
}
