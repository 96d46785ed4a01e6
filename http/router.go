package http

import (
	"context"
	"net/http"

	"concertbooking/entity"
	"concertbooking/message/event"

	commonHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/labstack/echo/v4"
)

var ErrServerClosed = http.ErrServerClosed

type ConcertRepo interface {
	ListConcerts(ctx context.Context) ([]entity.Concert, error)
	GetConcert(ctx context.Context, concertID string) (entity.Concert, error)
}

type ReservationRepo interface {
	Create(ctx context.Context, idempotencyKey string, req entity.ReservationRequest) (entity.Reservation, bool, error)
	Resolve(ctx context.Context, reservationID string, paymentSuccess bool) (entity.Reservation, error)
	GetReservation(ctx context.Context, reservationID string) (entity.Reservation, error)
	ListForUser(ctx context.Context, userID string) ([]entity.Reservation, error)
}

type OpsReadModel interface {
	Reservations(status entity.ReservationStatus) []event.ReservationSummary
}

func NewRouter(concerts ConcertRepo, reservations ReservationRepo, ops OpsReadModel) *echo.Echo {
	server := commonHTTP.NewEcho()

	server.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	h := handler{
		concerts:     concerts,
		reservations: reservations,
		ops:          ops,
	}

	api := server.Group("/api")
	api.GET("/concerts", h.ListConcerts)
	api.GET("/concerts/:id", h.GetConcert)
	api.POST("/bookings", h.CreateReservation)
	api.GET("/bookings", h.ListReservationsForUser)
	api.GET("/bookings/:id", h.GetReservation)
	api.POST("/bookings/:id/confirm", h.ConfirmReservation)
	api.GET("/ops/reservations", h.ListOpsReservations)

	return server
}
