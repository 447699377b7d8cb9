package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	"learnstream/internal/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// Direction selects what Migrate does.
type Direction string

const (
	Up     Direction = "up"
	Down   Direction = "down"
	Status Direction = "status"
)

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB, dir Direction, log *logger.Logger) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(log)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	var err error
	switch dir {
	case Up:
		err = goose.UpContext(ctx, db, migrationsDir)
	case Down:
		err = goose.DownContext(ctx, db, migrationsDir)
	case Status:
		err = goose.StatusContext(ctx, db, migrationsDir)
	default:
		return fmt.Errorf("unknown migration direction %q", dir)
	}
	if err != nil {
		return fmt.Errorf("failed to migrate %s: %w", dir, err)
	}
	return nil
}
