// Package dbtest provides shared database test helpers for seeding and
// querying test archives. It seeds rows with raw SQL so it stays importable
// from any test package without circular dependency issues (it does not
// import internal/store or internal/query).
package dbtest

import (
	"database/sql"
	"encoding/json"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// StrPtr returns a pointer to a string (useful for optional fields in test opts).
func StrPtr(s string) *string { return &s }

// IntPtr returns a pointer to an int.
func IntPtr(n int) *int { return &n }

// TestDB wraps a *sql.DB with builder helpers for seeding test messages.
type TestDB struct {
	DB *sql.DB
	T  testing.TB
}

// NewTestDB creates an in-memory SQLite database with the production schema
// loaded. schemaPath is the path to schema.sql (e.g. "../store/schema.sql"
// from the caller's package).
func NewTestDB(t testing.TB, schemaPath string) *TestDB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		t.Fatalf("read schema.sql: %v", err)
	}

	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	return &TestDB{DB: db, T: t}
}

// MessageOpts configures a message to insert. Timestamp uses the storage
// text format, e.g. "2026-02-01 09:30:00.000000".
type MessageOpts struct {
	Author    string // defaults to "alice"
	Content   string
	Timestamp string // defaults to "2026-02-01 09:30:00.000000"
	Tags      []string
	Summary   *string // nil = NULL
	Server    *string // nil = NULL
	Channel   *string // nil = NULL
}

// AddMessage inserts a message and returns its ID.
func (tdb *TestDB) AddMessage(opts MessageOpts) int64 {
	tdb.T.Helper()

	if opts.Author == "" {
		opts.Author = "alice"
	}
	if opts.Timestamp == "" {
		opts.Timestamp = "2026-02-01 09:30:00.000000"
	}
	if opts.Tags == nil {
		opts.Tags = []string{}
	}
	tags, err := json.Marshal(opts.Tags)
	if err != nil {
		tdb.T.Fatalf("AddMessage marshal tags: %v", err)
	}

	var summary, server, channel interface{}
	if opts.Summary != nil {
		summary = *opts.Summary
	}
	if opts.Server != nil {
		server = *opts.Server
	}
	if opts.Channel != nil {
		channel = *opts.Channel
	}

	res, err := tdb.DB.Exec(
		`INSERT INTO messages (author, content, timestamp, tags, summary, server, channel) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		opts.Author, opts.Content, opts.Timestamp, string(tags), summary, server, channel,
	)
	if err != nil {
		tdb.T.Fatalf("AddMessage: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// CountMessages returns the total number of rows in the messages table.
func (tdb *TestDB) CountMessages() int64 {
	tdb.T.Helper()
	var n int64
	if err := tdb.DB.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		tdb.T.Fatalf("CountMessages: %v", err)
	}
	return n
}
