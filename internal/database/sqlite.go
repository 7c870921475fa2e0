// Package database provides SQLite and Redis persistence for items and
// local identities.
package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	// sqlite allows one writer; ":memory:" databases are per connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init database schema: couldn't enable foreign keys: %v", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init database: %v", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func initSchema(db *sql.DB) error {
	if err := initTable(db, "identity", `
		CREATE TABLE IF NOT EXISTS identity (
			id          INTEGER PRIMARY KEY,
			handle      TEXT UNIQUE NOT NULL,
			secret      BLOB NOT NULL,
			subject     TEXT UNIQUE NOT NULL,
			groups      TEXT NOT NULL DEFAULT '[]'
		);`,
	); err != nil {
		return err
	}

	if err := initTable(db, "items", `
		CREATE TABLE IF NOT EXISTS items (
			user_id     TEXT NOT NULL,
			text        TEXT NOT NULL,
			id          TEXT NOT NULL,
			timestamp   TEXT NOT NULL,
			PRIMARY KEY (user_id, text)
		);`,
	); err != nil {
		return err
	}

	return nil
}

func initTable(
	db *sql.DB,
	name string,
	sql string,
) error {
	if _, err := db.Exec(sql); err != nil {
		return fmt.Errorf("failed to init '%s' table schema: %v", name, err)
	}
	return nil
}
