package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phigros-go/phigros-backend/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the leaderboard database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("migrate"); err != nil {
			return err
		}

		st, err := store.NewSQLite(cfg.Store.DatabasePath)
		if err != nil {
			return fmt.Errorf("run migration: %w", err)
		}
		defer func() { _ = st.Close() }()

		zap.L().Info("schema migrated", zap.String("database_path", cfg.Store.DatabasePath))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
