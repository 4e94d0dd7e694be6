// Package db opens the embedded SQLite database backing the snapshot
// archive.
package db

import (
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Driver is the database/sql driver name registered by modernc.org/sqlite.
const Driver = "sqlite"

// Opt applies a connection-pool setting to the opened database.
type Opt func(*sqlx.DB)

// New opens the archive database at dsn and applies the given options.
func New(dsn string, opts ...Opt) (*sqlx.DB, error) {
	conn, err := sqlx.Connect(Driver, dsn)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(conn)
	}
	return conn, nil
}

// WithMaxOpenConns caps open connections; SQLite wants a single writer.
func WithMaxOpenConns(opts ...int) Opt {
	return func(conn *sqlx.DB) {
		for _, n := range opts {
			if n > 0 {
				conn.SetMaxOpenConns(n)
				break
			}
		}
	}
}

// WithConnMaxLifetime bounds connection lifetime.
func WithConnMaxLifetime(opts ...time.Duration) Opt {
	return func(conn *sqlx.DB) {
		for _, d := range opts {
			if d != 0 {
				conn.SetConnMaxLifetime(d)
				break
			}
		}
	}
}
