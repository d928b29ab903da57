package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/phigros-go/phigros-backend/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "phigros-backend",
	Short: "Save-scoring and leaderboard backend for Phigros",
	Long:  "Fetches and decrypts player save blobs, computes the RKS skill metric, and serves a privacy-respecting leaderboard backed by an embedded database.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
