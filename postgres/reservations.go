package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"concertbooking/entity"
	"concertbooking/event"
	"concertbooking/message"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type ReservationRepo struct {
	db     *sqlx.DB
	logger watermill.LoggerAdapter
	ttl    time.Duration
	now    func() time.Time
}

func NewReservationRepo(db *sqlx.DB, logger watermill.LoggerAdapter, ttl time.Duration) ReservationRepo {
	if db == nil {
		panic("db is nil")
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	return ReservationRepo{
		db:     db,
		logger: logger,
		ttl:    ttl,
		now:    time.Now,
	}
}

type reservationRow struct {
	ID           string          `db:"reservation_id"`
	Reference    string          `db:"booking_reference"`
	Fingerprint  string          `db:"request_fingerprint"`
	UserID       string          `db:"user_id"`
	ConcertID    string          `db:"concert_id"`
	Status       string          `db:"status"`
	TotalAmount  decimal.Decimal `db:"total_amount"`
	ExpiresAt    *time.Time      `db:"expires_at"`
	CreatedAt    time.Time       `db:"created_at"`
	ConcertName  string          `db:"concert_name"`
	ConcertVenue string          `db:"concert_venue"`
	EventDate    time.Time       `db:"event_date"`
}

type itemRow struct {
	ID            string          `db:"item_id"`
	ReservationID string          `db:"reservation_id"`
	TicketTierID  string          `db:"ticket_tier_id"`
	TierType      string          `db:"tier_type"`
	Quantity      int             `db:"quantity"`
	UnitPrice     decimal.Decimal `db:"unit_price"`
	Subtotal      decimal.Decimal `db:"subtotal"`
}

const selectReservations = `
	SELECT r.reservation_id, r.booking_reference, r.request_fingerprint, r.user_id, r.concert_id,
		r.status, r.total_amount, r.expires_at, r.created_at,
		c.name AS concert_name, c.venue AS concert_venue, c.event_date
	FROM reservations r
	JOIN concerts c ON c.concert_id = r.concert_id`

// Create reserves the requested tickets. A key seen before returns the
// reservation it created, provided the payload matches; created is false in
// that case.
func (r ReservationRepo) Create(ctx context.Context, idempotencyKey string, req entity.ReservationRequest) (entity.Reservation, bool, error) {
	if err := req.Validate(); err != nil {
		return entity.Reservation{}, false, err
	}

	var (
		res     entity.Reservation
		created bool
	)
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		existing, fingerprint, err := r.byKey(ctx, tx, idempotencyKey)
		if err == nil {
			if fingerprint != req.Fingerprint() {
				return entity.ErrIdempotencyKeyReused
			}
			res = existing
			return nil
		}
		if !errors.Is(err, entity.ErrReservationNotFound) {
			return err
		}

		concert, err := getConcert(ctx, tx, req.ConcertID)
		if err != nil {
			return err
		}

		res, err = entity.NewReservation(uuid.NewString(), entity.NewReference(), req, concert, r.now(), r.ttl)
		if err != nil {
			return err
		}

		if err := r.insert(ctx, tx, idempotencyKey, req.Fingerprint(), res); err != nil {
			return err
		}

		created = true
		return message.PublishInTx(ctx, event.NewReservationCreated(idempotencyKey, res), tx.Tx, r.logger)
	})

	switch {
	case hasCode(err, codeUniqueViolation):
		// A concurrent request with the same key won the insert.
		existing, fingerprint, getErr := r.byKey(ctx, r.db, idempotencyKey)
		if getErr != nil {
			return entity.Reservation{}, false, entity.ErrConcurrentUpdate
		}
		if fingerprint != req.Fingerprint() {
			return entity.Reservation{}, false, entity.ErrIdempotencyKeyReused
		}
		return existing, false, nil
	case hasCode(err, codeSerializationFailure):
		return entity.Reservation{}, false, entity.ErrConcurrentUpdate
	case err != nil:
		return entity.Reservation{}, false, err
	}

	return res, created, nil
}

func (r ReservationRepo) insert(ctx context.Context, tx *sqlx.Tx, idempotencyKey, fingerprint string, res entity.Reservation) error {
	for _, item := range res.Items {
		result, err := tx.ExecContext(ctx, `
			UPDATE ticket_tiers
			SET available_quantity = available_quantity - $1
			WHERE ticket_tier_id = $2 AND concert_id = $3 AND available_quantity >= $1`,
			item.Quantity, item.TicketTierID, res.ConcertID)
		if err != nil {
			return fmt.Errorf("holding tickets of tier %s: %w", item.TicketTierID, err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return entity.NotEnoughTicketsError{TierID: item.TicketTierID, Requested: item.Quantity}
		}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO reservations (reservation_id, booking_reference, idempotency_key, request_fingerprint,
			user_id, concert_id, status, total_amount, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		res.ID, res.Reference, idempotencyKey, fingerprint,
		res.UserID, res.ConcertID, string(res.Status), res.TotalAmount, res.ExpiresAt, res.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting reservation: %w", err)
	}

	for _, item := range res.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO reservation_items (item_id, reservation_id, ticket_tier_id, tier_type, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, res.ID, item.TicketTierID, string(item.TierType), item.Quantity, item.UnitPrice, item.Subtotal)
		if err != nil {
			return fmt.Errorf("inserting reservation item: %w", err)
		}
	}

	return nil
}

// Resolve applies a payment outcome to a PENDING reservation. A reservation
// found past its deadline is expired in the same transaction and
// ErrReservationExpired returned.
func (r ReservationRepo) Resolve(ctx context.Context, reservationID string, paymentSuccess bool) (entity.Reservation, error) {
	var (
		res     entity.Reservation
		expired bool
	)
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		res, err = r.forUpdate(ctx, tx, reservationID)
		if err != nil {
			return err
		}

		now := r.now()
		if res.Overdue(now) {
			_ = res.Expire(now)
			expired = true
			return r.transition(ctx, tx, res, now)
		}

		if err := res.Resolve(paymentSuccess, now); err != nil {
			return err
		}
		return r.transition(ctx, tx, res, now)
	})
	if hasCode(err, codeSerializationFailure) {
		return entity.Reservation{}, entity.ErrConcurrentUpdate
	}
	if err != nil {
		return entity.Reservation{}, err
	}
	if expired {
		return entity.Reservation{}, entity.ErrReservationExpired
	}

	return res, nil
}

// Expire moves an overdue PENDING reservation to EXPIRED.
func (r ReservationRepo) Expire(ctx context.Context, reservationID string) (entity.Reservation, error) {
	var res entity.Reservation
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		res, err = r.forUpdate(ctx, tx, reservationID)
		if err != nil {
			return err
		}

		now := r.now()
		if err := res.Expire(now); err != nil {
			return err
		}
		return r.transition(ctx, tx, res, now)
	})
	if hasCode(err, codeSerializationFailure) {
		return entity.Reservation{}, entity.ErrConcurrentUpdate
	}
	if err != nil {
		return res, err
	}

	return res, nil
}

func (r ReservationRepo) transition(ctx context.Context, tx *sqlx.Tx, res entity.Reservation, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE reservations SET status = $1, expires_at = NULL
		WHERE reservation_id = $2`, string(res.Status), res.ID)
	if err != nil {
		return fmt.Errorf("updating reservation status: %w", err)
	}

	if res.Status.ReleasesInventory() {
		for _, item := range res.Items {
			_, err := tx.ExecContext(ctx, `
				UPDATE ticket_tiers SET available_quantity = available_quantity + $1
				WHERE ticket_tier_id = $2`, item.Quantity, item.TicketTierID)
			if err != nil {
				return fmt.Errorf("releasing tickets of tier %s: %w", item.TicketTierID, err)
			}
		}
	}

	return message.PublishInTx(ctx, event.ForTransition(res, at), tx.Tx, r.logger)
}

func (r ReservationRepo) GetReservation(ctx context.Context, reservationID string) (entity.Reservation, error) {
	if _, err := uuid.Parse(reservationID); err != nil {
		return entity.Reservation{}, entity.ErrReservationNotFound
	}

	reservations, err := r.load(ctx, r.db, selectReservations+` WHERE r.reservation_id = $1`, reservationID)
	if err != nil {
		return entity.Reservation{}, err
	}
	if len(reservations) == 0 {
		return entity.Reservation{}, entity.ErrReservationNotFound
	}
	return reservations[0], nil
}

func (r ReservationRepo) ListForUser(ctx context.Context, userID string) ([]entity.Reservation, error) {
	reservations, err := r.load(ctx, r.db, selectReservations+`
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	if reservations == nil {
		reservations = []entity.Reservation{}
	}
	return reservations, nil
}

func (r ReservationRepo) ListOverdue(ctx context.Context, limit int) ([]entity.Reservation, error) {
	return r.load(ctx, r.db, selectReservations+`
		WHERE r.status = 'PENDING' AND r.expires_at <= $1
		ORDER BY r.expires_at
		LIMIT $2`, r.now().UTC(), limit)
}

func (r ReservationRepo) byKey(ctx context.Context, q sqlx.QueryerContext, idempotencyKey string) (entity.Reservation, string, error) {
	var row reservationRow
	err := sqlx.GetContext(ctx, q, &row, selectReservations+` WHERE r.idempotency_key = $1`, idempotencyKey)
	if err != nil {
		if isNoRows(err) {
			return entity.Reservation{}, "", entity.ErrReservationNotFound
		}
		return entity.Reservation{}, "", fmt.Errorf("selecting reservation by key: %w", err)
	}

	reservations, err := r.withItems(ctx, q, []reservationRow{row})
	if err != nil {
		return entity.Reservation{}, "", err
	}
	return reservations[0], row.Fingerprint, nil
}

func (r ReservationRepo) forUpdate(ctx context.Context, tx *sqlx.Tx, reservationID string) (entity.Reservation, error) {
	if _, err := uuid.Parse(reservationID); err != nil {
		return entity.Reservation{}, entity.ErrReservationNotFound
	}

	reservations, err := r.load(ctx, tx, selectReservations+`
		WHERE r.reservation_id = $1
		FOR UPDATE OF r`, reservationID)
	if err != nil {
		return entity.Reservation{}, err
	}
	if len(reservations) == 0 {
		return entity.Reservation{}, entity.ErrReservationNotFound
	}
	return reservations[0], nil
}

func (r ReservationRepo) load(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) ([]entity.Reservation, error) {
	var rows []reservationRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("selecting reservations: %w", err)
	}
	return r.withItems(ctx, q, rows)
}

func (r ReservationRepo) withItems(ctx context.Context, q sqlx.QueryerContext, rows []reservationRow) ([]entity.Reservation, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	var items []itemRow
	err := sqlx.SelectContext(ctx, q, &items, `
		SELECT item_id, reservation_id, ticket_tier_id, tier_type, quantity, unit_price, subtotal
		FROM reservation_items
		WHERE reservation_id = ANY($1)
		ORDER BY unit_price DESC`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("selecting reservation items: %w", err)
	}

	byReservation := make(map[string][]entity.LineItem, len(rows))
	for _, item := range items {
		byReservation[item.ReservationID] = append(byReservation[item.ReservationID], entity.LineItem{
			ID:           item.ID,
			TicketTierID: item.TicketTierID,
			TierType:     entity.TierType(item.TierType),
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			Subtotal:     item.Subtotal,
		})
	}

	reservations := make([]entity.Reservation, 0, len(rows))
	for _, row := range rows {
		res := entity.Reservation{
			ID:           row.ID,
			Reference:    row.Reference,
			UserID:       row.UserID,
			ConcertID:    row.ConcertID,
			Status:       entity.ReservationStatus(row.Status),
			TotalAmount:  row.TotalAmount,
			CreatedAt:    row.CreatedAt.UTC(),
			Items:        byReservation[row.ID],
			ConcertName:  row.ConcertName,
			ConcertVenue: row.ConcertVenue,
			EventDate:    row.EventDate.UTC(),
		}
		if row.ExpiresAt != nil {
			expiresAt := row.ExpiresAt.UTC()
			res.ExpiresAt = &expiresAt
		}
		reservations = append(reservations, res)
	}

	return reservations, nil
}
