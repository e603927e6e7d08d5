package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rl1809/lost-found/internal/adapter/storage"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	Long: `Applies the embedded SQL migrations to MySQL. With --steps N moves N
versions up (or down when negative). SQLite databases are migrated from the
models instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := storage.OpenDB(storage.SQLOptions{
			Driver: cfg.Database.Driver,
			DSN:    cfg.Database.DSN(true),
		}, log)
		if err != nil {
			return err
		}
		adapter := storage.NewSQLAdapter(db)
		defer adapter.Close()

		if cfg.Database.Driver != storage.DriverMySQL {
			if migrateSteps != 0 {
				return fmt.Errorf("--steps is only supported for mysql")
			}
			return adapter.AutoMigrate()
		}
		return storage.MigrateMySQL(db, migrateSteps, log)
	},
}

func init() {
	migrateCmd.Flags().IntVar(&migrateSteps, "steps", 0, "Number of versions to migrate, negative rolls back (0 = all pending)")
}
