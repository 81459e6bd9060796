package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	conn *sql.DB
}

// Connect opens (creating if needed) the sqlite database at dbPath and
// applies the schema. ":memory:" is accepted for tests.
func Connect(dbPath string) (*DB, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("state db path is empty")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// An in-memory database only exists on the connection that created it.
	conn.SetMaxOpenConns(1)

	if err := migrate(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate state db: %w", err)
	}

	return &DB{conn: conn}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS provider_settings (
		name TEXT PRIMARY KEY,
		model TEXT NOT NULL DEFAULT '',
		base_url TEXT NOT NULL DEFAULT '',
		enabled INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME
	);`
	_, err := db.Exec(schema)
	return err
}

func (db *DB) Close() error {
	return db.conn.Close()
}
