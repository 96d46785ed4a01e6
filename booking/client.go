package booking

import (
	"context"

	"concertbooking/entity"
)

// Client is the booking service as seen by the controller. Implementations
// report failures as *Error so callers can tell a lost inventory race from a
// dropped connection.
type Client interface {
	// CreateReservation sends token alongside req, never inside it. The
	// service uses it to recognise a resent request.
	CreateReservation(ctx context.Context, token string, req entity.ReservationRequest) (entity.Reservation, error)
	ConfirmReservation(ctx context.Context, reservationID string, paymentSuccess bool) (entity.Reservation, error)
	GetReservation(ctx context.Context, reservationID string) (entity.Reservation, error)
	GetReservationsForUser(ctx context.Context, userID string) ([]entity.Reservation, error)
}

type Catalog interface {
	ListConcerts(ctx context.Context) ([]entity.Concert, error)
	GetConcert(ctx context.Context, concertID string) (entity.Concert, error)
}
