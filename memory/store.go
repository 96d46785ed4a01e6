// Package memory is a process-local booking store with the same semantics as
// the postgres one. Events are published after each change is applied, not
// atomically with it.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"concertbooking/entity"
	"concertbooking/event"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/google/uuid"
)

type Publisher interface {
	Publish(ctx context.Context, event any) error
}

type keyRecord struct {
	reservationID string
	fingerprint   string
}

type Store struct {
	lock         sync.Mutex
	concerts     map[string]entity.Concert
	reservations map[string]entity.Reservation
	keys         map[string]keyRecord

	publisher Publisher
	ttl       time.Duration
	now       func() time.Time
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(publisher Publisher, ttl time.Duration, opts ...Option) *Store {
	s := &Store{
		concerts:     make(map[string]entity.Concert),
		reservations: make(map[string]entity.Reservation),
		keys:         make(map[string]keyRecord),
		publisher:    publisher,
		ttl:          ttl,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) AddConcert(_ context.Context, concert entity.Concert) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.concerts[concert.ID]; ok {
		return nil
	}
	concert.TicketTiers = append([]entity.TicketTier(nil), concert.TicketTiers...)
	s.concerts[concert.ID] = concert
	return nil
}

func (s *Store) ListConcerts(_ context.Context) ([]entity.Concert, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	concerts := make([]entity.Concert, 0, len(s.concerts))
	for _, c := range s.concerts {
		concerts = append(concerts, copyConcert(c))
	}
	sort.Slice(concerts, func(i, j int) bool {
		if !concerts[i].EventDate.Equal(concerts[j].EventDate) {
			return concerts[i].EventDate.Before(concerts[j].EventDate)
		}
		return concerts[i].Name < concerts[j].Name
	})
	return concerts, nil
}

func (s *Store) GetConcert(_ context.Context, concertID string) (entity.Concert, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	c, ok := s.concerts[concertID]
	if !ok {
		return entity.Concert{}, entity.ErrConcertNotFound
	}
	return copyConcert(c), nil
}

// Create reserves the requested tickets. A key seen before returns the
// reservation it created, provided the payload matches; created is false in
// that case.
func (s *Store) Create(ctx context.Context, idempotencyKey string, req entity.ReservationRequest) (entity.Reservation, bool, error) {
	if err := req.Validate(); err != nil {
		return entity.Reservation{}, false, err
	}

	s.lock.Lock()
	if rec, ok := s.keys[idempotencyKey]; ok {
		defer s.lock.Unlock()
		if rec.fingerprint != req.Fingerprint() {
			return entity.Reservation{}, false, entity.ErrIdempotencyKeyReused
		}
		return copyReservation(s.reservations[rec.reservationID]), false, nil
	}

	concert, ok := s.concerts[req.ConcertID]
	if !ok {
		s.lock.Unlock()
		return entity.Reservation{}, false, entity.ErrConcertNotFound
	}

	res, err := entity.NewReservation(uuid.NewString(), entity.NewReference(), req, concert, s.now(), s.ttl)
	if err != nil {
		s.lock.Unlock()
		return entity.Reservation{}, false, err
	}

	for _, item := range res.Items {
		s.adjustAvailable(concert.ID, item.TicketTierID, -item.Quantity)
	}
	s.reservations[res.ID] = res
	s.keys[idempotencyKey] = keyRecord{reservationID: res.ID, fingerprint: req.Fingerprint()}
	s.lock.Unlock()

	s.publish(ctx, event.NewReservationCreated(idempotencyKey, res))

	return copyReservation(res), true, nil
}

// Resolve applies a payment outcome to a PENDING reservation. A reservation
// found past its deadline is expired on the spot and ErrReservationExpired
// returned.
func (s *Store) Resolve(ctx context.Context, reservationID string, paymentSuccess bool) (entity.Reservation, error) {
	now := s.now()

	s.lock.Lock()
	res, ok := s.reservations[reservationID]
	if !ok {
		s.lock.Unlock()
		return entity.Reservation{}, entity.ErrReservationNotFound
	}

	if res.Overdue(now) {
		_ = res.Expire(now)
		s.applyLocked(res)
		s.lock.Unlock()

		s.publish(ctx, event.NewReservationExpired(res, now))
		return entity.Reservation{}, entity.ErrReservationExpired
	}

	if err := res.Resolve(paymentSuccess, now); err != nil {
		s.lock.Unlock()
		return entity.Reservation{}, err
	}
	s.applyLocked(res)
	s.lock.Unlock()

	s.publish(ctx, event.ForTransition(res, now))

	return copyReservation(res), nil
}

// Expire moves an overdue PENDING reservation to EXPIRED.
func (s *Store) Expire(ctx context.Context, reservationID string) (entity.Reservation, error) {
	now := s.now()

	s.lock.Lock()
	res, ok := s.reservations[reservationID]
	if !ok {
		s.lock.Unlock()
		return entity.Reservation{}, entity.ErrReservationNotFound
	}
	if err := res.Expire(now); err != nil {
		s.lock.Unlock()
		return copyReservation(res), err
	}
	s.applyLocked(res)
	s.lock.Unlock()

	s.publish(ctx, event.NewReservationExpired(res, now))

	return copyReservation(res), nil
}

func (s *Store) ListOverdue(_ context.Context, limit int) ([]entity.Reservation, error) {
	now := s.now()

	s.lock.Lock()
	defer s.lock.Unlock()

	var overdue []entity.Reservation
	for _, res := range s.reservations {
		if res.Overdue(now) {
			overdue = append(overdue, copyReservation(res))
		}
	}
	sort.Slice(overdue, func(i, j int) bool {
		return overdue[i].ExpiresAt.Before(*overdue[j].ExpiresAt)
	})
	if limit > 0 && len(overdue) > limit {
		overdue = overdue[:limit]
	}
	return overdue, nil
}

func (s *Store) GetReservation(_ context.Context, reservationID string) (entity.Reservation, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	res, ok := s.reservations[reservationID]
	if !ok {
		return entity.Reservation{}, entity.ErrReservationNotFound
	}
	return copyReservation(res), nil
}

func (s *Store) ListForUser(_ context.Context, userID string) ([]entity.Reservation, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	reservations := []entity.Reservation{}
	for _, res := range s.reservations {
		if res.UserID == userID {
			reservations = append(reservations, copyReservation(res))
		}
	}
	sort.Slice(reservations, func(i, j int) bool {
		return reservations[i].CreatedAt.After(reservations[j].CreatedAt)
	})
	return reservations, nil
}

// applyLocked stores a reservation that has just left PENDING, returning its
// tickets when the new status releases them.
func (s *Store) applyLocked(res entity.Reservation) {
	if res.Status.ReleasesInventory() {
		for _, item := range res.Items {
			s.adjustAvailable(res.ConcertID, item.TicketTierID, item.Quantity)
		}
	}
	s.reservations[res.ID] = res
}

func (s *Store) adjustAvailable(concertID, tierID string, delta int) {
	concert := s.concerts[concertID]
	for i := range concert.TicketTiers {
		if concert.TicketTiers[i].ID == tierID {
			concert.TicketTiers[i].AvailableQuantity += delta
		}
	}
	s.concerts[concertID] = concert
}

func (s *Store) publish(ctx context.Context, e any) {
	if s.publisher == nil || e == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		log.FromContext(ctx).WithError(err).Errorf("Publishing %T failed", e)
	}
}

func copyConcert(c entity.Concert) entity.Concert {
	c.TicketTiers = append([]entity.TicketTier(nil), c.TicketTiers...)
	return c
}

func copyReservation(r entity.Reservation) entity.Reservation {
	r.Items = append([]entity.LineItem(nil), r.Items...)
	if r.ExpiresAt != nil {
		expiresAt := *r.ExpiresAt
		r.ExpiresAt = &expiresAt
	}
	return r
}
