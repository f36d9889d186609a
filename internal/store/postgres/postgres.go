// Package postgres implements the Metadata Store capability on top of
// jackc/pgx, one pooled connection shared across the tenant, document,
// chunk, and job tables.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps a pgx connection pool shared by every table-specific method in
// this package.
type DB struct {
	Pool *pgxpool.Pool
}

// New connects to databaseURL and verifies the connection with a ping.
func New(ctx context.Context, databaseURL string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}
