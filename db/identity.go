package db

import (
	"context"
	"fmt"
	"strings"

	"concertbooking/entity"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const minUserIDLength = 3

type IdentityRepo struct {
	db    *sqlx.DB
	newID func() string
}

func NewIdentityRepo(db *sqlx.DB) IdentityRepo {
	if db == nil {
		panic("missing db")
	}

	return IdentityRepo{
		db:    db,
		newID: uuid.NewString,
	}
}

// UserID returns the stored identity, generating and storing one on first
// use. Concurrent first calls agree on a single identity.
func (r IdentityRepo) UserID(ctx context.Context) (string, error) {
	_, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO identity (id, user_id) VALUES (1, ?)`, r.newID())
	if err != nil {
		return "", fmt.Errorf("creating identity: %w", err)
	}

	var userID string
	if err := r.db.GetContext(ctx, &userID, `SELECT user_id FROM identity WHERE id = 1`); err != nil {
		return "", fmt.Errorf("reading identity: %w", err)
	}

	return userID, nil
}

func (r IdentityRepo) SetUserID(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if len(userID) < minUserIDLength {
		return entity.ValidationError{Message: fmt.Sprintf("User ID must be at least %d characters", minUserIDLength)}
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO identity (id, user_id) VALUES (1, ?)
		ON CONFLICT (id) DO UPDATE SET user_id = excluded.user_id`, userID)
	if err != nil {
		return fmt.Errorf("storing identity: %w", err)
	}

	return nil
}
