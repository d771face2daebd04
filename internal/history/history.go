// Package history records extraction runs in SQLite so repeated imports of
// the same export can be detected.
package history

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS extraction_runs (
    id TEXT PRIMARY KEY,
    file TEXT NOT NULL,
    sha256 TEXT NOT NULL,
    importer TEXT NOT NULL,
    transactions INTEGER NOT NULL,
    warnings INTEGER NOT NULL,
    extracted_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_extraction_runs_sha256
    ON extraction_runs(sha256);
`

// Run is one successful extraction of a file.
type Run struct {
	ID           uuid.UUID
	File         string
	SHA256       string
	Importer     string
	Transactions int
	Warnings     int
	ExtractedAt  time.Time
}

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening history: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a run, filling in ID and ExtractedAt when unset.
func (s *Store) Record(run Run) (Run, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.ExtractedAt.IsZero() {
		run.ExtractedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO extraction_runs (id, file, sha256, importer, transactions, warnings, extracted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.File, run.SHA256, run.Importer, run.Transactions, run.Warnings, run.ExtractedAt,
	)
	if err != nil {
		return Run{}, fmt.Errorf("recording run for %s: %w", run.File, err)
	}
	return run, nil
}

// Seen reports whether a file with this digest was extracted before.
func (s *Store) Seen(digest string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM extraction_runs WHERE sha256 = ?`, digest).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking history: %w", err)
	}
	return count > 0, nil
}

// Runs returns all runs, most recent first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT id, file, sha256, importer, transactions, warnings, extracted_at
		FROM extraction_runs
		ORDER BY extracted_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var id string
		if err := rows.Scan(&id, &run.File, &run.SHA256, &run.Importer, &run.Transactions, &run.Warnings, &run.ExtractedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parsing run id %q: %w", id, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Digest returns the hex SHA-256 of the file at path.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ErrAlreadyImported is returned by callers refusing to re-extract a file.
var ErrAlreadyImported = errors.New("file already imported")
