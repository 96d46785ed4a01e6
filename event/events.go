package event

import (
	"time"

	"concertbooking/entity"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/shopspring/decimal"
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

// TransitionKey deduplicates events describing the same status change of one
// reservation.
func TransitionKey(reservationID string, status entity.ReservationStatus) string {
	return reservationID + ":" + string(status)
}

type ReservationCreated struct {
	Header        header          `json:"header"`
	ReservationID string          `json:"reservation_id"`
	Reference     string          `json:"booking_reference"`
	UserID        string          `json:"user_id"`
	ConcertID     string          `json:"concert_id"`
	ConcertName   string          `json:"concert_name"`
	TicketCount   int             `json:"ticket_count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ExpiresAt     time.Time       `json:"expires_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewReservationCreated carries the idempotency key the client sent with the
// create request.
func NewReservationCreated(idempotencyKey string, r entity.Reservation) ReservationCreated {
	e := ReservationCreated{
		Header:        newHeader(idempotencyKey),
		ReservationID: r.ID,
		Reference:     r.Reference,
		UserID:        r.UserID,
		ConcertID:     r.ConcertID,
		ConcertName:   r.ConcertName,
		TicketCount:   r.TicketCount(),
		TotalAmount:   r.TotalAmount,
		CreatedAt:     r.CreatedAt,
	}
	if r.ExpiresAt != nil {
		e.ExpiresAt = *r.ExpiresAt
	}
	return e
}

type ReservationConfirmed struct {
	Header        header          `json:"header"`
	ReservationID string          `json:"reservation_id"`
	ConcertID     string          `json:"concert_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ConfirmedAt   time.Time       `json:"confirmed_at"`
}

func NewReservationConfirmed(r entity.Reservation, at time.Time) ReservationConfirmed {
	return ReservationConfirmed{
		Header:        newHeader(TransitionKey(r.ID, entity.StatusConfirmed)),
		ReservationID: r.ID,
		ConcertID:     r.ConcertID,
		TotalAmount:   r.TotalAmount,
		ConfirmedAt:   at.UTC(),
	}
}

type ReleasedTickets struct {
	TicketTierID string `json:"ticket_tier_id"`
	Quantity     int    `json:"quantity"`
}

type ReservationCancelled struct {
	Header        header            `json:"header"`
	ReservationID string            `json:"reservation_id"`
	ConcertID     string            `json:"concert_id"`
	Released      []ReleasedTickets `json:"released"`
	CancelledAt   time.Time         `json:"cancelled_at"`
}

func NewReservationCancelled(r entity.Reservation, at time.Time) ReservationCancelled {
	return ReservationCancelled{
		Header:        newHeader(TransitionKey(r.ID, entity.StatusCancelled)),
		ReservationID: r.ID,
		ConcertID:     r.ConcertID,
		Released:      released(r),
		CancelledAt:   at.UTC(),
	}
}

type ReservationExpired struct {
	Header        header            `json:"header"`
	ReservationID string            `json:"reservation_id"`
	ConcertID     string            `json:"concert_id"`
	Released      []ReleasedTickets `json:"released"`
	ExpiredAt     time.Time         `json:"expired_at"`
}

func NewReservationExpired(r entity.Reservation, at time.Time) ReservationExpired {
	return ReservationExpired{
		Header:        newHeader(TransitionKey(r.ID, entity.StatusExpired)),
		ReservationID: r.ID,
		ConcertID:     r.ConcertID,
		Released:      released(r),
		ExpiredAt:     at.UTC(),
	}
}

func released(r entity.Reservation) []ReleasedTickets {
	out := make([]ReleasedTickets, 0, len(r.Items))
	for _, item := range r.Items {
		out = append(out, ReleasedTickets{TicketTierID: item.TicketTierID, Quantity: item.Quantity})
	}
	return out
}

// ForTransition returns the event announcing that r reached its current
// status, or nil for PENDING.
func ForTransition(r entity.Reservation, at time.Time) any {
	switch r.Status {
	case entity.StatusConfirmed:
		return NewReservationConfirmed(r, at)
	case entity.StatusCancelled:
		return NewReservationCancelled(r, at)
	case entity.StatusExpired:
		return NewReservationExpired(r, at)
	}
	return nil
}
