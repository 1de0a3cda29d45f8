package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS preferences (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// DB is the SQLite-backed Store.
type DB struct {
	conn *sql.DB
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Append stores a turn and evicts the oldest entries beyond MaxMessages
// within a transaction.
func (db *DB) Append(role Role, content string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	content = clip(content, MaxContentLen)
	if _, err := tx.Exec(
		`INSERT INTO messages (role, content, created_at) VALUES (?, ?, ?)`,
		string(role), content, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("history: insert message: %w", err)
	}
	if _, err := tx.Exec(`
		DELETE FROM messages WHERE id NOT IN (
			SELECT id FROM messages ORDER BY id DESC LIMIT ?
		)
	`, MaxMessages); err != nil {
		return fmt.Errorf("history: prune messages: %w", err)
	}

	return tx.Commit()
}

// LoadAll returns stored turns oldest-first. Rows that fail to scan are
// skipped: corrupted state degrades to less history, never an error surface.
func (db *DB) LoadAll() ([]ChatMessage, error) {
	rows, err := db.conn.Query(`SELECT role, content, created_at FROM messages ORDER BY id ASC`)
	if err != nil {
		return []ChatMessage{}, nil
	}
	defer rows.Close()

	out := []ChatMessage{}
	for rows.Next() {
		var m ChatMessage
		var role string
		if err := rows.Scan(&role, &m.Content, &m.Timestamp); err != nil {
			continue
		}
		m.Role = Role(role)
		out = append(out, m)
	}
	return out, nil
}

// Summarize renders the most recent turns for assistant context seeding.
func (db *DB) Summarize(maxChars int) (string, error) {
	msgs, err := db.LoadAll()
	if err != nil {
		return "", err
	}
	return summarize(msgs, maxChars), nil
}

// Clear removes all stored turns.
func (db *DB) Clear() error {
	if _, err := db.conn.Exec(`DELETE FROM messages`); err != nil {
		return fmt.Errorf("history: clear: %w", err)
	}
	return nil
}

// ReadPreferences returns the stored preference map, empty when absent or
// unreadable.
func (db *DB) ReadPreferences() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT key, value FROM preferences`)
	if err != nil {
		return map[string]string{}, nil
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			continue
		}
		out[k] = v
	}
	return out, nil
}

// WritePreferences fully overwrites the preference map. Callers merge before
// writing; the store layer never partial-merges.
func (db *DB) WritePreferences(prefs map[string]string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM preferences`); err != nil {
		return fmt.Errorf("history: clear preferences: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO preferences (key, value) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("history: prepare preference insert: %w", err)
	}
	defer stmt.Close()
	for k, v := range prefs {
		if _, err := stmt.Exec(k, v); err != nil {
			return fmt.Errorf("history: insert preference: %w", err)
		}
	}

	return tx.Commit()
}
