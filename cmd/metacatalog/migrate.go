package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"metacatalog/internal/repository/sqlite"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Long: `Open the configured database and apply the schema.

Serving migrates on start too; run this to prepare a database ahead of time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sqlite.New(a.cfg.Database.Path)
			if err != nil {
				return err
			}
			a.logger.Info("database migrated", zap.String("path", a.cfg.Database.Path))
			return store.Close()
		},
	}
}
