package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"concertbooking/entity"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
)

const headerIdempotencyKey = "X-Idempotency-Key"

type handler struct {
	concerts     ConcertRepo
	reservations ReservationRepo
	ops          OpsReadModel
}

type errorResponse struct {
	Message string `json:"message"`
}

type confirmRequest struct {
	PaymentSuccess *bool `json:"paymentSuccess"`
}

func (h handler) ListConcerts(c echo.Context) error {
	concerts, err := h.concerts.ListConcerts(c.Request().Context())
	if err != nil {
		return respondError(c, fmt.Errorf("listing concerts: %w", err))
	}

	return c.JSON(http.StatusOK, concerts)
}

func (h handler) GetConcert(c echo.Context) error {
	concert, err := h.concerts.GetConcert(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, fmt.Errorf("getting concert: %w", err))
	}

	return c.JSON(http.StatusOK, concert)
}

func (h handler) CreateReservation(c echo.Context) error {
	key := strings.TrimSpace(c.Request().Header.Get(headerIdempotencyKey))
	if key == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: headerIdempotencyKey + " header is required"})
	}

	var req entity.ReservationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
	}

	ctx := c.Request().Context()
	res, created, err := h.reservations.Create(ctx, key, req)
	if errors.Is(err, entity.ErrConcertNotFound) {
		// The concert is part of the request body, not the resource path.
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "Concert does not exist"})
	}
	if err != nil {
		return respondError(c, fmt.Errorf("creating reservation: %w", err))
	}

	logger := log.FromContext(ctx).WithField("reservation_id", res.ID)
	if !created {
		logger.Info("Replayed reservation for known idempotency key")
		return c.JSON(http.StatusOK, res)
	}

	logger.Info("Reservation created")
	return c.JSON(http.StatusCreated, res)
}

func (h handler) ConfirmReservation(c echo.Context) error {
	var req confirmRequest
	if err := c.Bind(&req); err != nil || req.PaymentSuccess == nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "paymentSuccess is required"})
	}

	res, err := h.reservations.Resolve(c.Request().Context(), c.Param("id"), *req.PaymentSuccess)
	if err != nil {
		return respondError(c, fmt.Errorf("confirming reservation: %w", err))
	}

	return c.JSON(http.StatusOK, res)
}

func (h handler) GetReservation(c echo.Context) error {
	res, err := h.reservations.GetReservation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, fmt.Errorf("getting reservation: %w", err))
	}

	return c.JSON(http.StatusOK, res)
}

func (h handler) ListReservationsForUser(c echo.Context) error {
	userID := strings.TrimSpace(c.QueryParam("userId"))
	if userID == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "userId is required"})
	}

	reservations, err := h.reservations.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return respondError(c, fmt.Errorf("listing reservations: %w", err))
	}

	return c.JSON(http.StatusOK, reservations)
}

func (h handler) ListOpsReservations(c echo.Context) error {
	status := entity.ReservationStatus(strings.ToUpper(c.QueryParam("status")))
	return c.JSON(http.StatusOK, h.ops.Reservations(status))
}

// respondError is the one place domain errors become HTTP statuses.
func respondError(c echo.Context, err error) error {
	var (
		validationErr entity.ValidationError
		notPending    entity.ReservationNotPendingError
		notEnough     interface{ NotEnoughTickets() bool }
	)

	switch {
	case errors.As(err, &validationErr):
		return c.JSON(http.StatusBadRequest, errorResponse{Message: validationErr.Message})
	case errors.As(err, &notEnough) && notEnough.NotEnoughTickets():
		return c.JSON(http.StatusConflict, errorResponse{Message: "Not enough tickets available"})
	case errors.As(err, &notPending):
		return c.JSON(http.StatusConflict, errorResponse{Message: fmt.Sprintf("Reservation is already %s", notPending.Status)})
	case errors.Is(err, entity.ErrReservationExpired):
		return c.JSON(http.StatusConflict, errorResponse{Message: "Reservation has expired"})
	case errors.Is(err, entity.ErrIdempotencyKeyReused), errors.Is(err, entity.ErrConcurrentUpdate):
		return c.JSON(http.StatusConflict, errorResponse{Message: err.Error()})
	case errors.Is(err, entity.ErrConcertNotFound), errors.Is(err, entity.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Message: "Resource not found"})
	}

	return &echo.HTTPError{
		Code:     http.StatusInternalServerError,
		Message:  http.StatusText(http.StatusInternalServerError),
		Internal: err,
	}
}
