package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"board-sync/config"
	"board-sync/storage"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the board schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.ValidateStorage(); err != nil {
				return err
			}
			ctx := cmd.Context()
			switch cfg.StorageDriver {
			case config.DriverTables:
				tables, err := storage.NewTables(cfg.StorageConnectionString, cfg.ColumnsTable, cfg.TasksTable)
				if err != nil {
					return fmt.Errorf("storage: %w", err)
				}
				if err := tables.EnsureTables(ctx); err != nil {
					return err
				}
				log.WithFields(log.Fields{"columns": cfg.ColumnsTable, "tasks": cfg.TasksTable}).Info("tables ready")
			default:
				// opening applies pending migrations
				db, err := storage.OpenSQLite(ctx, cfg.SQLitePath)
				if err != nil {
					return err
				}
				defer db.Close()
				log.WithField("path", cfg.SQLitePath).Info("sqlite schema up to date")
			}
			return nil
		},
	}
}
