package postgres

import (
	"context"
	"fmt"
	"time"

	"concertbooking/entity"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type ConcertRepo struct {
	db *sqlx.DB
}

func NewConcertRepo(db *sqlx.DB) ConcertRepo {
	if db == nil {
		panic("db is nil")
	}

	return ConcertRepo{db: db}
}

type concertRow struct {
	ID        string    `db:"concert_id"`
	Name      string    `db:"name"`
	Venue     string    `db:"venue"`
	EventDate time.Time `db:"event_date"`
}

type tierRow struct {
	ID                string          `db:"ticket_tier_id"`
	ConcertID         string          `db:"concert_id"`
	TierType          string          `db:"tier_type"`
	Price             decimal.Decimal `db:"price"`
	TotalQuantity     int             `db:"total_quantity"`
	AvailableQuantity int             `db:"available_quantity"`
}

func (t tierRow) toEntity() entity.TicketTier {
	return entity.TicketTier{
		ID:                t.ID,
		TierType:          entity.TierType(t.TierType),
		Price:             t.Price,
		TotalQuantity:     t.TotalQuantity,
		AvailableQuantity: t.AvailableQuantity,
	}
}

// AddConcert stores a concert with its tiers. A concert that already exists is left
// untouched, so seeding can run on every start.
func (r ConcertRepo) AddConcert(ctx context.Context, concert entity.Concert) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO concerts (concert_id, name, venue, event_date)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (concert_id) DO NOTHING`,
			concert.ID, concert.Name, concert.Venue, concert.EventDate.UTC())
		if err != nil {
			return fmt.Errorf("inserting concert: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil || n == 0 {
			return err
		}

		for _, t := range concert.TicketTiers {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO ticket_tiers (ticket_tier_id, concert_id, tier_type, price, total_quantity, available_quantity)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				t.ID, concert.ID, string(t.TierType), t.Price, t.TotalQuantity, t.AvailableQuantity)
			if err != nil {
				return fmt.Errorf("inserting ticket tier %s: %w", t.ID, err)
			}
		}

		return nil
	})
}

func (r ConcertRepo) ListConcerts(ctx context.Context) ([]entity.Concert, error) {
	var rows []concertRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT concert_id, name, venue, event_date
		FROM concerts
		ORDER BY event_date, name`)
	if err != nil {
		return nil, fmt.Errorf("selecting concerts: %w", err)
	}

	var tiers []tierRow
	err = r.db.SelectContext(ctx, &tiers, `
		SELECT ticket_tier_id, concert_id, tier_type, price, total_quantity, available_quantity
		FROM ticket_tiers
		ORDER BY price DESC`)
	if err != nil {
		return nil, fmt.Errorf("selecting ticket tiers: %w", err)
	}

	byConcert := make(map[string][]entity.TicketTier)
	for _, t := range tiers {
		byConcert[t.ConcertID] = append(byConcert[t.ConcertID], t.toEntity())
	}

	concerts := make([]entity.Concert, 0, len(rows))
	for _, row := range rows {
		concerts = append(concerts, row.toEntity(byConcert[row.ID]))
	}

	return concerts, nil
}

func (r ConcertRepo) GetConcert(ctx context.Context, concertID string) (entity.Concert, error) {
	return getConcert(ctx, r.db, concertID)
}

func getConcert(ctx context.Context, q sqlx.QueryerContext, concertID string) (entity.Concert, error) {
	if _, err := uuid.Parse(concertID); err != nil {
		return entity.Concert{}, entity.ErrConcertNotFound
	}

	var row concertRow
	err := sqlx.GetContext(ctx, q, &row, `
		SELECT concert_id, name, venue, event_date
		FROM concerts
		WHERE concert_id = $1`, concertID)
	if isNoRows(err) {
		return entity.Concert{}, entity.ErrConcertNotFound
	}
	if err != nil {
		return entity.Concert{}, fmt.Errorf("selecting concert %s: %w", concertID, err)
	}

	var tiers []tierRow
	err = sqlx.SelectContext(ctx, q, &tiers, `
		SELECT ticket_tier_id, concert_id, tier_type, price, total_quantity, available_quantity
		FROM ticket_tiers
		WHERE concert_id = $1
		ORDER BY price DESC`, concertID)
	if err != nil {
		return entity.Concert{}, fmt.Errorf("selecting ticket tiers of %s: %w", concertID, err)
	}

	ticketTiers := make([]entity.TicketTier, 0, len(tiers))
	for _, t := range tiers {
		ticketTiers = append(ticketTiers, t.toEntity())
	}

	return row.toEntity(ticketTiers), nil
}

func (c concertRow) toEntity(tiers []entity.TicketTier) entity.Concert {
	if tiers == nil {
		tiers = []entity.TicketTier{}
	}
	return entity.Concert{
		ID:          c.ID,
		Name:        c.Name,
		Venue:       c.Venue,
		EventDate:   c.EventDate.UTC(),
		TicketTiers: tiers,
	}
}
