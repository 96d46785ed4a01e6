package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v3"
	"github.com/shopspring/decimal"
)

// MaxTicketsPerTier is the most tickets of one tier a single reservation may hold.
const MaxTicketsPerTier = 10

const minUserIDLength = 3

type ReservationStatus string

const (
	StatusPending   ReservationStatus = "PENDING"
	StatusConfirmed ReservationStatus = "CONFIRMED"
	StatusCancelled ReservationStatus = "CANCELLED"
	StatusExpired   ReservationStatus = "EXPIRED"
)

func (s ReservationStatus) Terminal() bool {
	return s != StatusPending
}

type CartItem struct {
	TicketTierID string `json:"ticketTierId"`
	Quantity     int    `json:"quantity"`
}

type ReservationRequest struct {
	UserID    string     `json:"userId"`
	ConcertID string     `json:"concertId"`
	Items     []CartItem `json:"items"`
}

func (r ReservationRequest) Validate() error {
	if len(strings.TrimSpace(r.UserID)) < minUserIDLength {
		return ValidationError{Message: fmt.Sprintf("User ID must be at least %d characters", minUserIDLength)}
	}
	if strings.TrimSpace(r.ConcertID) == "" {
		return ValidationError{Message: "Concert selection is required"}
	}
	if len(r.Items) == 0 {
		return ValidationError{Message: "At least one ticket must be selected"}
	}

	seen := make(map[string]struct{}, len(r.Items))
	for _, item := range r.Items {
		if item.TicketTierID == "" {
			return ValidationError{Message: "Ticket tier is required"}
		}
		if _, ok := seen[item.TicketTierID]; ok {
			return ValidationError{Message: fmt.Sprintf("Ticket tier %s selected more than once", item.TicketTierID)}
		}
		seen[item.TicketTierID] = struct{}{}

		if item.Quantity < 1 {
			return ValidationError{Message: "Quantity must be at least 1"}
		}
		if item.Quantity > MaxTicketsPerTier {
			return ValidationError{Message: fmt.Sprintf("Maximum %d tickets per tier", MaxTicketsPerTier)}
		}
	}

	return nil
}

// Fingerprint identifies the request payload independently of item order. Two
// requests sent under one idempotency key must share a fingerprint.
func (r ReservationRequest) Fingerprint() string {
	items := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, fmt.Sprintf("%s=%d", item.TicketTierID, item.Quantity))
	}
	sort.Strings(items)

	sum := sha256.Sum256([]byte(r.UserID + "|" + r.ConcertID + "|" + strings.Join(items, ",")))
	return hex.EncodeToString(sum[:])
}

// NewReference returns a short booking reference such as "BK-7F3KQ2XA".
func NewReference() string {
	return "BK-" + strings.ToUpper(shortuuid.New()[:8])
}

type LineItem struct {
	ID           string          `json:"id"`
	TicketTierID string          `json:"ticketTierId"`
	TierType     TierType        `json:"tierType"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

type Reservation struct {
	ID           string            `json:"id"`
	Reference    string            `json:"bookingReference"`
	UserID       string            `json:"userId"`
	ConcertID    string            `json:"concertId"`
	Status       ReservationStatus `json:"status"`
	TotalAmount  decimal.Decimal   `json:"totalAmount"`
	ExpiresAt    *time.Time        `json:"expiresAt"`
	CreatedAt    time.Time         `json:"createdAt"`
	Items        []LineItem        `json:"items"`
	ConcertName  string            `json:"concertName"`
	ConcertVenue string            `json:"concertVenue"`
	EventDate    time.Time         `json:"eventDate"`

	// ServerTime is the server clock reading that accompanied the response and
	// ReceivedAt the local instant it arrived. Both are zero for reservations
	// that did not come over the wire.
	ServerTime time.Time `json:"-"`
	ReceivedAt time.Time `json:"-"`
}

func (r Reservation) TicketCount() int {
	total := 0
	for _, item := range r.Items {
		total += item.Quantity
	}
	return total
}

// NewReservation prices req against the concert's current availability and
// returns a PENDING reservation that expires ttl after now.
func NewReservation(id, reference string, req ReservationRequest, concert Concert, now time.Time, ttl time.Duration) (Reservation, error) {
	if err := req.Validate(); err != nil {
		return Reservation{}, err
	}
	if req.ConcertID != concert.ID {
		return Reservation{}, ValidationError{Message: fmt.Sprintf("concert %s does not match request", concert.ID)}
	}

	items := make([]LineItem, 0, len(req.Items))
	total := decimal.Zero
	for _, item := range req.Items {
		tier, ok := concert.Tier(item.TicketTierID)
		if !ok {
			return Reservation{}, ValidationError{
				Message: fmt.Sprintf("Ticket tier %s does not exist for concert %s", item.TicketTierID, concert.ID),
			}
		}
		if item.Quantity > tier.AvailableQuantity {
			return Reservation{}, NotEnoughTicketsError{
				TierID:    tier.ID,
				Available: tier.AvailableQuantity,
				Requested: item.Quantity,
			}
		}

		subtotal := tier.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(subtotal)
		items = append(items, LineItem{
			ID:           uuid.NewString(),
			TicketTierID: tier.ID,
			TierType:     tier.TierType,
			Quantity:     item.Quantity,
			UnitPrice:    tier.Price,
			Subtotal:     subtotal,
		})
	}

	expiresAt := now.Add(ttl).UTC()
	return Reservation{
		ID:           id,
		Reference:    reference,
		UserID:       req.UserID,
		ConcertID:    concert.ID,
		Status:       StatusPending,
		TotalAmount:  total,
		ExpiresAt:    &expiresAt,
		CreatedAt:    now.UTC(),
		Items:        items,
		ConcertName:  concert.Name,
		ConcertVenue: concert.Venue,
		EventDate:    concert.EventDate,
	}, nil
}

// Overdue reports whether a PENDING reservation has reached its deadline.
func (r Reservation) Overdue(now time.Time) bool {
	return r.Status == StatusPending && r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// Resolve applies the payment outcome: CONFIRMED on success, CANCELLED otherwise.
func (r *Reservation) Resolve(paymentSuccess bool, now time.Time) error {
	if r.Status != StatusPending {
		return ReservationNotPendingError{ReservationID: r.ID, Status: r.Status}
	}
	if r.Overdue(now) {
		return ErrReservationExpired
	}

	if paymentSuccess {
		r.Status = StatusConfirmed
	} else {
		r.Status = StatusCancelled
	}
	r.ExpiresAt = nil
	return nil
}

func (r *Reservation) Expire(now time.Time) error {
	if r.Status != StatusPending {
		return ReservationNotPendingError{ReservationID: r.ID, Status: r.Status}
	}
	if !r.Overdue(now) {
		return ErrReservationNotDue
	}

	r.Status = StatusExpired
	r.ExpiresAt = nil
	return nil
}

// ReleasesInventory reports whether reaching this status returns the held
// tickets to the concert.
func (s ReservationStatus) ReleasesInventory() bool {
	return s == StatusCancelled || s == StatusExpired
}
