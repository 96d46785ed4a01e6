package command

import (
	"context"
	"errors"
	"fmt"

	"concertbooking/entity"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

type Expirer interface {
	Expire(ctx context.Context, reservationID string) (entity.Reservation, error)
}

type Handler struct {
	expirer Expirer
}

func NewHandler(e Expirer) Handler {
	if e == nil {
		panic("expirer is nil")
	}

	return Handler{expirer: e}
}

// ExpireReservation is safe to redeliver: a reservation that already left
// PENDING, or that is gone, is acked without change.
func (h Handler) ExpireReservation(ctx context.Context, cmd *ExpireReservation) error {
	logger := log.FromContext(ctx).WithField("reservation_id", cmd.ReservationID)

	_, err := h.expirer.Expire(ctx, cmd.ReservationID)

	var notPending entity.ReservationNotPendingError
	switch {
	case err == nil:
		logger.Info("Reservation expired")
		return nil
	case errors.As(err, &notPending):
		logger.WithField("status", notPending.Status).Debug("Reservation already resolved")
		return nil
	case errors.Is(err, entity.ErrReservationNotFound):
		logger.Warn("Reservation to expire not found")
		return nil
	case errors.Is(err, entity.ErrReservationNotDue):
		// The sweeper and the store disagree about the time; the next sweep
		// will send it again.
		logger.WithField("deadline", cmd.Deadline).Warn("Reservation not due yet")
		return nil
	}

	return fmt.Errorf("expiring reservation %s: %w", cmd.ReservationID, err)
}
