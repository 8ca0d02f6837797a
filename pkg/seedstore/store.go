// Package seedstore persists reusable story seeds in SQLite. Worlds are
// ephemeral and in-memory; seeds are the only durable artifact.
package seedstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dramaturge/dramaturge/pkg/models"
)

// ErrNotFound is returned for an unknown seed id.
var ErrNotFound = errors.New("seed not found")

// Seed is one saved story seed: the description it grew from plus the full
// TCCN it generated.
type Seed struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	TCCN        models.TCCN `json:"tccn"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Store is a SQLite-backed seed repository. Safe for concurrent use; SQLite
// serializes writers and WAL keeps readers unblocked.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS seeds (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL,
	tccn        TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_seeds_updated_at ON seeds(updated_at);
`

// Open opens (creating if needed) the seed database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("seedstore: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("seedstore: open %s: %w", path, err)
	}
	// one writer at a time keeps SQLITE_BUSY out of the picture
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("seedstore: apply schema: %w", err)
	}

	slog.Info("Seed store opened", "path", path)
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or updates a seed. CreatedAt is set on first save, UpdatedAt
// on every save.
func (s *Store) Save(ctx context.Context, seed *Seed) error {
	if seed.ID == "" {
		return fmt.Errorf("seedstore: save: empty id")
	}
	now := time.Now().UTC()
	if seed.CreatedAt.IsZero() {
		seed.CreatedAt = now
	}
	seed.UpdatedAt = now

	tccn, err := json.Marshal(seed.TCCN)
	if err != nil {
		return fmt.Errorf("seedstore: encode tccn: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO seeds (id, name, description, tccn, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			tccn = excluded.tccn,
			updated_at = excluded.updated_at`,
		seed.ID, seed.Name, seed.Description, string(tccn), seed.CreatedAt, seed.UpdatedAt)
	if err != nil {
		return fmt.Errorf("seedstore: save %s: %w", seed.ID, err)
	}
	return nil
}

// Get returns the seed with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Seed, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, tccn, created_at, updated_at
		FROM seeds WHERE id = ?`, id)
	return scanSeed(row)
}

// List returns every seed, most recently updated first.
func (s *Store) List(ctx context.Context) ([]*Seed, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, tccn, created_at, updated_at
		FROM seeds ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("seedstore: list: %w", err)
	}
	defer rows.Close()

	var seeds []*Seed
	for rows.Next() {
		seed, err := scanSeed(rows)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, seed)
	}
	return seeds, rows.Err()
}

// Delete removes a seed. Deleting an unknown id returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM seeds WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("seedstore: delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Health pings the database and reports response time.
func (s *Store) Health(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return time.Since(start), err
	}
	return time.Since(start), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeed(row rowScanner) (*Seed, error) {
	var seed Seed
	var tccn string
	err := row.Scan(&seed.ID, &seed.Name, &seed.Description, &tccn,
		&seed.CreatedAt, &seed.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("seedstore: scan: %w", err)
	}
	if err := json.Unmarshal([]byte(tccn), &seed.TCCN); err != nil {
		return nil, fmt.Errorf("seedstore: decode tccn for %s: %w", seed.ID, err)
	}
	return &seed, nil
}
