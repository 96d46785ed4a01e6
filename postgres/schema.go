package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
)

func InitialiseDB(ctx context.Context, db *sqlx.DB) error {
	if err := CreateConcertsTables(ctx, db); err != nil {
		return fmt.Errorf("creating concerts tables: %w", err)
	}

	if err := CreateReservationsTables(ctx, db); err != nil {
		return fmt.Errorf("creating reservations tables: %w", err)
	}

	return nil
}

func CreateConcertsTables(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS concerts (
		concert_id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		venue VARCHAR(255) NOT NULL,
		event_date TIMESTAMP WITH TIME ZONE NOT NULL
	);`)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS ticket_tiers (
		ticket_tier_id UUID PRIMARY KEY,
		concert_id UUID NOT NULL REFERENCES concerts (concert_id),
		tier_type VARCHAR(16) NOT NULL,
		price NUMERIC(10, 2) NOT NULL CHECK (price >= 0),
		total_quantity INTEGER NOT NULL,
		available_quantity INTEGER NOT NULL,
		CHECK (available_quantity >= 0 AND available_quantity <= total_quantity)
	);`)
	return err
}

func CreateReservationsTables(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS reservations (
		reservation_id UUID PRIMARY KEY,
		booking_reference VARCHAR(16) NOT NULL UNIQUE,
		idempotency_key VARCHAR(255) NOT NULL UNIQUE,
		request_fingerprint CHAR(64) NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		concert_id UUID NOT NULL REFERENCES concerts (concert_id),
		status VARCHAR(16) NOT NULL,
		total_amount NUMERIC(10, 2) NOT NULL,
		expires_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL
	);`)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS reservation_items (
		item_id UUID PRIMARY KEY,
		reservation_id UUID NOT NULL REFERENCES reservations (reservation_id),
		ticket_tier_id UUID NOT NULL REFERENCES ticket_tiers (ticket_tier_id),
		tier_type VARCHAR(16) NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price NUMERIC(10, 2) NOT NULL,
		subtotal NUMERIC(10, 2) NOT NULL
	);`)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS reservations_pending_expiry
		ON reservations (expires_at) WHERE status = 'PENDING';`)
	return err
}

func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
