// Package storetest builds throwaway Messages databases for tests.
//
// The schema is the minimal subset of chat.db the exporter reads: the
// four entity tables and the three join tables connecting them.
package storetest

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE chat (
	ROWID INTEGER PRIMARY KEY,
	guid TEXT,
	chat_identifier TEXT,
	display_name TEXT
);
CREATE TABLE handle (
	ROWID INTEGER PRIMARY KEY,
	id TEXT
);
CREATE TABLE message (
	ROWID INTEGER PRIMARY KEY,
	text TEXT,
	attributedBody BLOB,
	is_from_me INTEGER,
	handle_id INTEGER,
	service TEXT,
	date INTEGER,
	item_type INTEGER,
	associated_message_guid TEXT,
	thread_originator_guid TEXT
);
CREATE TABLE attachment (
	ROWID INTEGER PRIMARY KEY,
	filename TEXT,
	transfer_name TEXT,
	mime_type TEXT
);
CREATE TABLE chat_handle_join (chat_id INTEGER, handle_id INTEGER);
CREATE TABLE chat_message_join (chat_id INTEGER, message_id INTEGER);
CREATE TABLE message_attachment_join (message_id INTEGER, attachment_id INTEGER);
`

// CreateDB creates a chat.db-shaped database in a temp directory and
// returns its path plus a writable connection for inserting fixtures.
// The connection is closed automatically when the test finishes.
func CreateDB(t *testing.T) (string, *sql.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open fixture database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create fixture schema: %v", err)
	}
	return path, db
}

// Exec runs a statement against the fixture database, failing the test
// on error.
func Exec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// AddChat inserts a chat row with one participant handle and the
// corresponding join. handleID must be unique across calls.
func AddChat(t *testing.T, db *sql.DB, chatID, handleID int64, guid, identifier, participant string) {
	t.Helper()
	Exec(t, db, `INSERT INTO chat (ROWID, guid, chat_identifier, display_name) VALUES (?, ?, ?, NULL)`,
		chatID, guid, identifier)
	Exec(t, db, `INSERT INTO handle (ROWID, id) VALUES (?, ?)`, handleID, participant)
	Exec(t, db, `INSERT INTO chat_handle_join (chat_id, handle_id) VALUES (?, ?)`, chatID, handleID)
}
