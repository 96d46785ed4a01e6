package event

import (
	"context"
	"sort"
	"sync"
	"time"

	"concertbooking/entity"
	events "concertbooking/event"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/shopspring/decimal"
)

// ReservationSummary is the operator's view of one reservation, built only
// from events.
type ReservationSummary struct {
	ReservationID string                   `json:"reservationId"`
	Reference     string                   `json:"bookingReference,omitempty"`
	UserID        string                   `json:"userId,omitempty"`
	ConcertID     string                   `json:"concertId"`
	ConcertName   string                   `json:"concertName,omitempty"`
	TicketCount   int                      `json:"ticketCount"`
	TotalAmount   decimal.Decimal          `json:"totalAmount"`
	Status        entity.ReservationStatus `json:"status"`
	CreatedAt     time.Time                `json:"createdAt"`
	ExpiresAt     *time.Time               `json:"expiresAt,omitempty"`
	ResolvedAt    *time.Time               `json:"resolvedAt,omitempty"`
}

type ReservationReadModel struct {
	reservations map[string]ReservationSummary
	lock         *sync.RWMutex
}

func NewReservationReadModel() *ReservationReadModel {
	return &ReservationReadModel{
		reservations: make(map[string]ReservationSummary),
		lock:         &sync.RWMutex{},
	}
}

// Reservations returns the summaries, newest first, optionally only those
// with the given status.
func (s *ReservationReadModel) Reservations(status entity.ReservationStatus) []ReservationSummary {
	s.lock.RLock()
	out := make([]ReservationSummary, 0, len(s.reservations))
	for _, r := range s.reservations {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	s.lock.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ReservationID < out[j].ReservationID
	})
	return out
}

func (s *ReservationReadModel) ReservationByID(id string) (ReservationSummary, bool) {
	s.lock.RLock()
	r, ok := s.reservations[id]
	s.lock.RUnlock()
	return r, ok
}

// OnReservationCreated fills in the details. If a later transition was
// handled first, its status is kept.
func (s *ReservationReadModel) OnReservationCreated(_ context.Context, e *events.ReservationCreated) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	r, exists := s.reservations[e.ReservationID]
	r.ReservationID = e.ReservationID
	r.Reference = e.Reference
	r.UserID = e.UserID
	r.ConcertID = e.ConcertID
	r.ConcertName = e.ConcertName
	r.TicketCount = e.TicketCount
	r.TotalAmount = e.TotalAmount
	r.CreatedAt = e.CreatedAt
	if !exists || r.Status == entity.StatusPending {
		expiresAt := e.ExpiresAt
		r.Status = entity.StatusPending
		r.ExpiresAt = &expiresAt
	}

	s.reservations[e.ReservationID] = r
	return nil
}

func (s *ReservationReadModel) OnReservationConfirmed(_ context.Context, e *events.ReservationConfirmed) error {
	s.resolve(e.ReservationID, e.ConcertID, entity.StatusConfirmed, e.ConfirmedAt)
	return nil
}

func (s *ReservationReadModel) OnReservationCancelled(_ context.Context, e *events.ReservationCancelled) error {
	s.resolve(e.ReservationID, e.ConcertID, entity.StatusCancelled, e.CancelledAt)
	return nil
}

func (s *ReservationReadModel) OnReservationExpired(_ context.Context, e *events.ReservationExpired) error {
	s.resolve(e.ReservationID, e.ConcertID, entity.StatusExpired, e.ExpiredAt)
	return nil
}

// resolve records a terminal status. The first terminal status wins; a
// reservation never leaves one.
func (s *ReservationReadModel) resolve(id, concertID string, status entity.ReservationStatus, at time.Time) {
	s.lock.Lock()
	defer s.lock.Unlock()

	r, exists := s.reservations[id]
	if exists && r.Status.Terminal() {
		return
	}
	if !exists {
		r = ReservationSummary{
			ReservationID: id,
			ConcertID:     concertID,
			TotalAmount:   decimal.Zero,
		}
	}

	r.Status = status
	r.ExpiresAt = nil
	r.ResolvedAt = &at
	s.reservations[id] = r
}

func (s *ReservationReadModel) Handlers() []cqrs.EventHandler {
	return []cqrs.EventHandler{
		cqrs.NewEventHandler("ops-reservation-created", s.OnReservationCreated),
		cqrs.NewEventHandler("ops-reservation-confirmed", s.OnReservationConfirmed),
		cqrs.NewEventHandler("ops-reservation-cancelled", s.OnReservationCancelled),
		cqrs.NewEventHandler("ops-reservation-expired", s.OnReservationExpired),
	}
}

func NewProcessorConfig(
	logger watermill.LoggerAdapter,
	newSubscriber func(consumerGroup string) (message.Subscriber, error),
) cqrs.EventProcessorConfig {
	return cqrs.EventProcessorConfig{
		SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
			return newSubscriber("svc-bookings." + params.HandlerName)
		},
		GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
			return params.EventName, nil
		},
		Marshaler: cqrs.JSONMarshaler{
			GenerateName: cqrs.StructName,
		},
		Logger: logger,
	}
}
