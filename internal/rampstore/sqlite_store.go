// Package rampstore provides persistent storage for user-defined ramps using SQLite.
package rampstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/colorramp/server/pkg/colormap"
	_ "modernc.org/sqlite"
)

// Record is a stored custom ramp.
type Record struct {
	Ramp      *colormap.Ramp
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store provides persistent storage for custom ramps using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore creates a new SQLite-based ramp store.
func NewStore(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for sqlite: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS custom_ramps (
		name TEXT PRIMARY KEY,
		anchors_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save inserts the ramp or replaces the anchors of an existing ramp with the same name.
// It reports whether a new row was created.
func (s *Store) Save(r *colormap.Ramp) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	anchorsJSON, err := json.Marshal(r.Anchors())
	if err != nil {
		return false, fmt.Errorf("failed to marshal anchors: %w", err)
	}

	var exists int
	err = s.db.QueryRow("SELECT COUNT(*) FROM custom_ramps WHERE name = ?", r.Name()).Scan(&exists)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(`
		INSERT INTO custom_ramps (name, anchors_json, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET anchors_json = excluded.anchors_json, updated_at = excluded.updated_at
	`, r.Name(), string(anchorsJSON), now, now)
	if err != nil {
		return false, err
	}
	return exists == 0, nil
}

// Get retrieves a ramp by name. It returns nil, nil when no such ramp is stored.
func (s *Store) Get(name string) (*Record, error) {
	row := s.db.QueryRow(`
		SELECT name, anchors_json, created_at, updated_at
		FROM custom_ramps WHERE name = ?
	`, name)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// List returns all stored ramps ordered by name.
func (s *Store) List() ([]*Record, error) {
	rows, err := s.db.Query(`
		SELECT name, anchors_json, created_at, updated_at
		FROM custom_ramps ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes a ramp and reports whether it existed.
func (s *Store) Delete(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec("DELETE FROM custom_ramps WHERE name = ?", name)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var name, anchorsJSON, createdAtStr, updatedAtStr string
	if err := row.Scan(&name, &anchorsJSON, &createdAtStr, &updatedAtStr); err != nil {
		return nil, err
	}

	var anchors []colormap.Anchor
	if err := json.Unmarshal([]byte(anchorsJSON), &anchors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal anchors of %q: %w", name, err)
	}
	r, err := colormap.NewRamp(name, anchors)
	if err != nil {
		return nil, fmt.Errorf("stored ramp %q: %w", name, err)
	}

	rec := &Record{Ramp: r}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAtStr)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAtStr)
	return rec, nil
}
