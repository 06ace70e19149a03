package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the SQL connection pool
type DB struct {
	*sql.DB
}

// NewConnection opens the SQLite database at the given path and verifies
// it is reachable. The busy timeout keeps concurrent phase runs from
// failing on transient write locks.
func NewConnection(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite serializes writes; a single writer connection avoids
	// SQLITE_BUSY churn under concurrent jobs.
	db.SetMaxOpenConns(1)

	return &DB{db}, nil
}
