// Package cli implements leavectl, the operator tool for the leave module.
package cli

import (
	"go-hris-leave/internal/config"
	"go-hris-leave/internal/shared/connection"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:           "leavectl",
	Short:         "Operate the leave ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
	},
}

// Execute runs the command selected by os.Args.
func Execute() error {
	return rootCmd.Execute()
}

func openDatabase() (config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	db, err := connection.ConnectGORMWithRetry(cfg.DB, cfg.ConnectRetries)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, db, nil
}

func closeDatabase(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			zap.L().Warn("close database failed", zap.Error(err))
		}
	}
}
