// migrate applies migrations/NNN_*.sql to the PostgreSQL database in DATABASE_URL.
// Each file runs in its own transaction and is recorded with its checksum; an
// applied file whose content changed stops the run. An advisory lock keeps two
// migrators from running at once.
//
// Usage: go run ./cmd/migrate [-dir migrations] [-status]
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SediraYasser20/DOLX/internal/config"
	"github.com/SediraYasser20/DOLX/internal/db"
)

const migrationLockID = 7462839

type migration struct {
	version  string
	filename string
	checksum string
	sql      string
}

func main() {
	dir := flag.String("dir", "migrations", "directory holding NNN_description.sql files")
	statusOnly := flag.Bool("status", false, "print applied and pending migrations without applying")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[CONFIG] %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatalf("[CONFIG] DATABASE_URL is required; the SQLite backend migrates itself on open")
	}

	connCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	pool, err := db.NewPool(connCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("[CONNECT] %v", err)
	}
	defer pool.Close()
	log.Println("[CONNECT] success")

	ctx := context.Background()
	conn, err := acquireLock(ctx, pool)
	if err != nil {
		log.Fatalf("[LOCK] %v", err)
	}
	defer conn.Release()
	log.Println("[LOCK] success")

	if err := setupSchemaMigrations(ctx, pool); err != nil {
		log.Fatalf("[ERROR] %v", err)
	}

	migrations, err := discoverMigrations(*dir)
	if err != nil {
		log.Fatalf("[DISCOVER] %v", err)
	}

	for _, m := range migrations {
		applied, err := alreadyApplied(ctx, pool, m)
		if err != nil {
			log.Fatalf("[ERROR] %v", err)
		}
		switch {
		case applied:
			log.Printf("[SKIP] %s", m.filename)
		case *statusOnly:
			log.Printf("[PENDING] %s", m.filename)
		default:
			if err := applyMigration(ctx, pool, m); err != nil {
				log.Fatalf("[ERROR] %v", err)
			}
			log.Printf("[APPLY] %s", m.filename)
		}
	}

	log.Println("[DONE] All migrations processed.")
}

func acquireLock(ctx context.Context, pool *pgxpool.Pool) (*pgxpool.Conn, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for lock: %w", err)
	}

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", migrationLockID).Scan(&locked); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to query advisory lock: %w", err)
	}
	if !locked {
		conn.Release()
		return nil, errors.New("another migrator is currently running")
	}
	return conn, nil
}

func setupSchemaMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	checksum TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// discoverMigrations reads dir and returns its .sql files sorted by name.
func discoverMigrations(dir string) ([]migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var out []migration
	seen := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		filename := entry.Name()
		version, _, ok := strings.Cut(filename, "_")
		if !ok {
			return nil, fmt.Errorf("invalid migration filename %s, expected NNN_description.sql", filename)
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate version %s: %s and %s", version, other, filename)
		}
		seen[version] = filename

		body, err := os.ReadFile(filepath.Join(dir, filename))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filename, err)
		}
		hash := sha256.Sum256(body)
		out = append(out, migration{
			version:  version,
			filename: filename,
			checksum: hex.EncodeToString(hash[:]),
			sql:      string(body),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].filename < out[j].filename })
	return out, nil
}

func alreadyApplied(ctx context.Context, pool *pgxpool.Pool, m migration) (bool, error) {
	var existing string
	err := pool.QueryRow(ctx, "SELECT checksum FROM schema_migrations WHERE version = $1", m.version).Scan(&existing)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query schema_migrations for %s: %w", m.filename, err)
	}
	if existing != m.checksum {
		return false, fmt.Errorf("checksum mismatch for %s: recorded %s, file %s", m.filename, existing, m.checksum)
	}
	return true, nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, m migration) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for %s: %w", m.filename, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, m.sql); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", m.filename, err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, filename, checksum) VALUES ($1, $2, $3)",
		m.version, m.filename, m.checksum,
	); err != nil {
		return fmt.Errorf("failed to insert migration record for %s: %w", m.filename, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction for %s: %w", m.filename, err)
	}
	return nil
}
