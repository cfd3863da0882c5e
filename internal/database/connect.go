// Package database opens the Postgres connection shared by the binaries.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"atrium-jazz/internal/config"
	"atrium-jazz/internal/logger"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// Connect opens Postgres and pings it, retrying with a growing delay while
// the database is still starting.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("POSTGRES_DSN not set")
	}

	sqldb, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	attempts := cfg.ConnRetries
	if attempts < 1 {
		attempts = 1
	}
	delay := time.Second
	for i := 1; ; i++ {
		err = sqldb.PingContext(ctx)
		if err == nil {
			break
		}
		if i >= attempts {
			sqldb.Close()
			return nil, fmt.Errorf("connect to postgres after %d attempts: %w", i, err)
		}
		log.Warn("DATABASE", fmt.Sprintf("postgres not ready (attempt %d/%d): %v", i, attempts, err))
		select {
		case <-ctx.Done():
			sqldb.Close()
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	log.LogDatabase("CONNECT", "postgres", "connection successful")
	return bun.NewDB(sqldb, pgdialect.New()), nil
}
