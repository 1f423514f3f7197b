// Package navstate preserves analysis results across full page navigations.
// It owns a small sqlite database holding a single-slot, read-once handoff
// channel plus the persisted default-branch cache.
package navstate

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/fareya22/CleanCodeAAgent/internal/logging"
)

// Store is the sqlite-backed state database
type Store struct {
	conn   *sql.DB
	logger *logging.Logger
	path   string
}

// Open opens or creates the state database at <stateDir>/state.db
func Open(stateDir string, logger *logging.Logger) (*Store, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	dbPath := filepath.Join(stateDir, "state.db")
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	store := &Store{conn: conn, logger: logger, path: dbPath}
	if err := store.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS handoff_slot (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			payload BLOB NOT NULL,
			saved_at TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS default_branches (
			repo_key TEXT PRIMARY KEY,
			branch TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// writeSlot overwrites the single handoff slot
func (s *Store) writeSlot(payload []byte) error {
	_, err := s.conn.Exec(`
		INSERT OR REPLACE INTO handoff_slot (id, payload, saved_at)
		VALUES (1, ?, ?)
	`, payload, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write handoff slot: %w", err)
	}
	return nil
}

// takeSlot reads and deletes the handoff slot in one transaction.
// It returns (nil, nil) when the slot is empty.
func (s *Store) takeSlot() ([]byte, error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var payload []byte
	err = tx.QueryRow("SELECT payload FROM handoff_slot WHERE id = 1").Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, tx.Commit()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read handoff slot: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM handoff_slot WHERE id = 1"); err != nil {
		return nil, fmt.Errorf("failed to consume handoff slot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit slot consumption: %w", err)
	}
	return payload, nil
}

// Reset clears the handoff slot and the default-branch cache
func (s *Store) Reset() error {
	if _, err := s.conn.Exec("DELETE FROM handoff_slot"); err != nil {
		return fmt.Errorf("failed to clear handoff slot: %w", err)
	}
	if _, err := s.conn.Exec("DELETE FROM default_branches"); err != nil {
		return fmt.Errorf("failed to clear default branches: %w", err)
	}
	return nil
}

// GetDefaultBranch implements githost.BranchCache
func (s *Store) GetDefaultBranch(key string) (string, bool) {
	var branch string
	err := s.conn.QueryRow(
		"SELECT branch FROM default_branches WHERE repo_key = ?", key,
	).Scan(&branch)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Debug("Default branch lookup failed", map[string]interface{}{
				"repo": key, "error": err.Error(),
			})
		}
		return "", false
	}
	return branch, true
}

// PutDefaultBranch implements githost.BranchCache
func (s *Store) PutDefaultBranch(key, branch string) error {
	_, err := s.conn.Exec(`
		INSERT OR REPLACE INTO default_branches (repo_key, branch, updated_at)
		VALUES (?, ?, ?)
	`, key, branch, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to store default branch: %w", err)
	}
	return nil
}
