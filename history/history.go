// Package history stores entered command lines and finds them by prefix.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("kutes.history")

// ErrNotFound indicates no stored line starts with the prefix.
var ErrNotFound = errors.New("history: no match")

// Store is an append-only set of lines kept in SQLite.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the history database at path. The special path
// ":memory:" keeps history for the life of the Store only.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	// One connection keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS history (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		line TEXT NOT NULL UNIQUE
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	log.Debugf("opened history %s", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Append records line. It reports false when the line was already stored
// or is blank.
func (s *Store) Append(line string) (bool, error) {
	if strings.TrimSpace(line) == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("INSERT OR IGNORE INTO history (line) VALUES (?)", line)
	if err != nil {
		return false, fmt.Errorf("appending history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("appending history: %w", err)
	}
	return n == 1, nil
}

// Search returns the smallest stored line, in byte order, that starts
// with prefix.
func (s *Store) Search(prefix string) (string, error) {
	var line string
	err := s.db.QueryRow(
		"SELECT line FROM history WHERE line >= ? ORDER BY line LIMIT 1", prefix,
	).Scan(&line)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("searching history: %w", err)
	}
	if !strings.HasPrefix(line, prefix) {
		return "", ErrNotFound
	}
	return line, nil
}

// Matches returns up to limit stored lines starting with prefix, in byte
// order. A limit of zero or less means no limit.
func (s *Store) Matches(prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		"SELECT line FROM history WHERE line >= ? ORDER BY line LIMIT ?", prefix, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching history: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		if !strings.HasPrefix(line, prefix) {
			break
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

// Recent returns the last n lines in the order they were entered.
func (s *Store) Recent(n int) ([]string, error) {
	rows, err := s.db.Query(
		"SELECT line FROM (SELECT id, line FROM history ORDER BY id DESC LIMIT ?) ORDER BY id", n,
	)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}
