package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"finsight/internal/config"
	"finsight/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending session database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath := config.ExpandPath(viper.GetString("sessions.db_path"))
			store, err := storage.NewSQLiteStorage(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open session store: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}
			slog.Info("Database is up to date", "path", dbPath)
			return nil
		},
	}
}
