// Package db opens the storage backend selected by configuration:
// PostgreSQL when a connection string is set, SQLite otherwise.
package db

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SediraYasser20/DOLX/internal/config"
	"github.com/SediraYasser20/DOLX/internal/core"
	"github.com/SediraYasser20/DOLX/internal/store/postgres"
	"github.com/SediraYasser20/DOLX/internal/store/sqlite"
)

// Store is everything a storage backend provides.
type Store interface {
	core.PricingCatalog
	core.LedgerStore
	core.ReferenceDataStore
}

// Backend is an open store plus the function releasing it.
type Backend struct {
	Store Store
	Name  string // "postgres" or "sqlite"
	close func()
}

// Close releases the underlying connections.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open connects to the backend chosen by cfg.
func Open(ctx context.Context, cfg *config.Config) (*Backend, error) {
	if cfg.DatabaseURL != "" {
		pool, err := NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &Backend{Store: postgres.New(pool), Name: "postgres", close: pool.Close}, nil
	}

	store, err := sqlite.New(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database %s: %w", cfg.SQLitePath, err)
	}
	return &Backend{Store: store, Name: "sqlite", close: func() { store.Close() }}, nil
}

// NewPool connects to connStr, falling back to DATABASE_URL when it is empty.
func NewPool(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	if connStr == "" {
		connStr = os.Getenv("DATABASE_URL")
	}
	if connStr == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse DATABASE_URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}
