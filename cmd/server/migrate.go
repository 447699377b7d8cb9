package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"learnstream/internal/config"
	"learnstream/internal/database"
	"learnstream/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply, roll back or inspect database migrations",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(database.Up), string(database.Down), string(database.Status)},
	RunE:      runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	dir := database.Direction(args[0])
	switch dir {
	case database.Up, database.Down, database.Status:
	default:
		return fmt.Errorf("unknown migration direction %q", args[0])
	}

	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	db, err := database.Connect(cmd.Context(), cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	return database.Migrate(cmd.Context(), db.DB, dir, log)
}
