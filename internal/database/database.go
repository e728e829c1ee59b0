package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	"github.com/usefence/licensed/internal/retry"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the database and waits for it to answer a ping, backing
// off while it is still starting.
func Open(ctx context.Context, driver, url string) (*bun.DB, error) {
	if url == "" {
		return nil, errors.New("database url is empty")
	}

	var (
		sqldb *sql.DB
		db    *bun.DB
		err   error
	)
	switch driver {
	case DriverPostgres:
		sqldb, err = sql.Open("postgres", url)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	case DriverSQLite:
		sqldb, err = sql.Open("sqlite", url)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		// SQLite allows one writer; a single connection turns lock contention
		// into queueing instead of SQLITE_BUSY.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	logger := log.With().Str("component", "database").Str("driver", driver).Logger()
	result := retry.RetryWithBackoff(ctx, retry.DatabaseRetryConfig(), func() error {
		return sqldb.PingContext(ctx)
	}, &logger)
	if !result.Success {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", result.LastError)
	}

	return db, nil
}
