package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"

	"learnstream/internal/config"
	"learnstream/internal/logger"
)

// DBTX is satisfied by *sqlx.DB and *sqlx.Tx, so repositories run inside
// a transaction when given one.
type DBTX interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

var (
	_ DBTX = (*sqlx.DB)(nil)
	_ DBTX = (*sqlx.Tx)(nil)
)

// Connect opens the PostgreSQL pool and waits until the server answers.
// The database container usually starts slower than the app, so the ping
// is retried cfg.PingAttempts times.
func Connect(ctx context.Context, cfg config.Database, log *logger.Logger) (*sqlx.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url is not set")
	}

	// sqlx.Open only prepares the pool, it does not dial.
	db, err := sqlx.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection (driver error): %w", err)
	}

	var pingErr error
	for i := 1; i <= cfg.PingAttempts; i++ {
		pingErr = db.PingContext(ctx)
		if pingErr == nil {
			return db, nil
		}

		log.Warn("database not ready", "attempt", i, "of", cfg.PingAttempts, "retry_in", cfg.PingInterval.String())
		select {
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("connect cancelled: %w", ctx.Err())
		case <-time.After(cfg.PingInterval):
		}
	}

	db.Close()
	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", cfg.PingAttempts, pingErr)
}
