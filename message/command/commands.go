package command

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
)

type header struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func newHeader(idempotencyKey string) header {
	return header{
		ID:             watermill.NewUUID(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

// ExpireReservation asks for a PENDING reservation past its deadline to be
// moved to EXPIRED and its tickets released.
type ExpireReservation struct {
	Header        header    `json:"header"`
	ReservationID string    `json:"reservation_id"`
	Deadline      time.Time `json:"deadline"`
}

func NewExpireReservation(reservationID string, deadline time.Time) ExpireReservation {
	return ExpireReservation{
		Header:        newHeader("expire:" + reservationID),
		ReservationID: reservationID,
		Deadline:      deadline.UTC(),
	}
}
