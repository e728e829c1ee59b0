package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/usefence/licensed/internal/database"
	"github.com/usefence/licensed/internal/jobqueue"
)

// MigrateCommand creates the ledger tables and, on Postgres, the job queue schema.
func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create or upgrade the database schema",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			db, err := openLedgerDB(c.Context, cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			log.Info().Str("driver", cfg.Database.Driver).Msg("ledger schema up to date")

			if cfg.Database.Driver != database.DriverPostgres {
				return nil
			}
			if err := jobqueue.Migrate(c.Context, cfg.Database.URL); err != nil {
				return fmt.Errorf("job queue migration: %w", err)
			}
			return nil
		},
	}
}
