// Package db keeps the client's local state: the user identity generated on
// first use. Cart contents are never stored.
package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Open opens or creates the SQLite state file at path and makes sure its
// tables exist.
func Open(ctx context.Context, path string) (*sqlx.DB, error) {
	dbConn, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	// one writer at a time
	dbConn.SetMaxOpenConns(1)

	if err := dbConn.PingContext(ctx); err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("connecting to state db: %w", err)
	}

	if err := InitialiseDB(ctx, dbConn); err != nil {
		dbConn.Close()
		return nil, err
	}

	return dbConn, nil
}

func InitialiseDB(ctx context.Context, dbConn *sqlx.DB) error {
	if err := CreateIdentityTable(ctx, dbConn); err != nil {
		return fmt.Errorf("creating identity table: %w", err)
	}

	return nil
}

func CreateIdentityTable(ctx context.Context, dbConn *sqlx.DB) error {
	_, err := dbConn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS identity (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		user_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`)
	return err
}
