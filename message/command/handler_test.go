package command_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"concertbooking/entity"
	"concertbooking/message/command"

	"github.com/stretchr/testify/assert"
)

type expirerFunc func(ctx context.Context, id string) (entity.Reservation, error)

func (f expirerFunc) Expire(ctx context.Context, id string) (entity.Reservation, error) {
	return f(ctx, id)
}

func TestHandler_ExpireReservation(t *testing.T) {
	boom := errors.New("db down")

	testCases := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "expired", err: nil},
		{name: "already confirmed", err: entity.ReservationNotPendingError{ReservationID: "r1", Status: entity.StatusConfirmed}},
		{name: "gone", err: entity.ErrReservationNotFound},
		{name: "not due", err: entity.ErrReservationNotDue},
		{name: "store failure is retried", err: boom, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			h := command.NewHandler(expirerFunc(func(_ context.Context, id string) (entity.Reservation, error) {
				got = id
				return entity.Reservation{}, tc.err
			}))

			cmd := command.NewExpireReservation("r1", time.Now())
			err := h.ExpireReservation(context.Background(), &cmd)

			assert.Equal(t, "r1", got)
			if tc.wantErr {
				assert.ErrorIs(t, err, boom)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewExpireReservation(t *testing.T) {
	deadline := time.Date(2026, 5, 1, 18, 10, 0, 0, time.FixedZone("BST", 3600))

	a := command.NewExpireReservation("r1", deadline)
	b := command.NewExpireReservation("r1", deadline)

	assert.Equal(t, a.Header.IdempotencyKey, b.Header.IdempotencyKey)
	assert.NotEqual(t, a.Header.ID, b.Header.ID)
	assert.Equal(t, time.UTC, a.Deadline.Location())
}
