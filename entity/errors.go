package entity

import (
	"errors"
	"fmt"
)

var (
	ErrConcertNotFound     = errors.New("concert not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrReservationExpired  = errors.New("reservation has expired")
	ErrReservationNotDue   = errors.New("reservation has not reached its deadline")
	ErrConcurrentUpdate    = errors.New("reservation conflicted with a concurrent update")

	// ErrIdempotencyKeyReused is returned when a key that already produced a
	// reservation arrives with a different payload.
	ErrIdempotencyKeyReused = errors.New("idempotency key was already used for a different request")
)

type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

type NotEnoughTicketsError struct {
	TierID    string
	Available int
	Requested int
}

func (e NotEnoughTicketsError) Error() string {
	return fmt.Sprintf("not enough tickets for tier %s: tickets available %d, tickets requested %d", e.TierID, e.Available, e.Requested)
}

func (e NotEnoughTicketsError) NotEnoughTickets() bool {
	return true
}

type ReservationNotPendingError struct {
	ReservationID string
	Status        ReservationStatus
}

func (e ReservationNotPendingError) Error() string {
	return fmt.Sprintf("reservation %s is %s, not PENDING", e.ReservationID, e.Status)
}
