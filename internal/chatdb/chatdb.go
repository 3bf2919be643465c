// Package chatdb provides read-only access to the Messages store
// (chat.db) and assembles its normalized rows into chat threads.
package chatdb

import (
	"database/sql"
	"errors"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/mattn/go-sqlite3"
	"github.com/rotisserie/eris"
)

// Store is a read-only connection to a Messages database. The
// connection is the sole shared resource of an export run; callers must
// Close it on every exit path.
type Store struct {
	db     *sql.DB
	dbPath string
	log    *slog.Logger
}

// isSQLiteError checks if err is a sqlite3.Error with a message containing
// substr. Type-asserting with errors.As is more robust than matching on
// err.Error() directly. Handles both value and pointer forms.
func isSQLiteError(err error, substr string) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return strings.Contains(sqliteErr.Error(), substr)
	}
	var sqliteErrPtr *sqlite3.Error
	if errors.As(err, &sqliteErrPtr) && sqliteErrPtr != nil {
		return strings.Contains(sqliteErrPtr.Error(), substr)
	}
	return false
}

// Open opens the Messages database at the given path in read-only mode.
// Failures are classified into the store-access taxonomy (ErrNotFound,
// ErrPermission, ErrLocked) so callers can surface specific guidance.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(path); err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, eris.Wrapf(ErrNotFound, "database file not found: %s", path)
		case errors.Is(err, fs.ErrPermission):
			return nil, eris.Wrapf(ErrPermission, "permission denied accessing %s", path)
		default:
			return nil, eris.Wrapf(err, "stat %s", path)
		}
	}

	dsn := "file:" + url.PathEscape(path) + "?mode=ro&_busy_timeout=2000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, eris.Wrapf(err, "open database %s", path)
	}

	// A probe query surfaces lock and permission states that sql.Open
	// defers until first use.
	var n int
	if err := db.QueryRow("SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		db.Close()
		return nil, classifyAccessError(err, path)
	}

	return &Store{db: db, dbPath: path, log: logger}, nil
}

func classifyAccessError(err error, path string) error {
	switch {
	case isSQLiteError(err, "database is locked"):
		return eris.Wrapf(ErrLocked, "database is locked: %s", path)
	case isSQLiteError(err, "unable to open database file"),
		errors.Is(err, fs.ErrPermission):
		return eris.Wrapf(ErrPermission, "permission denied accessing %s", path)
	default:
		return eris.Wrapf(err, "query database %s", path)
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path the store was opened with.
func (s *Store) Path() string {
	return s.dbPath
}
