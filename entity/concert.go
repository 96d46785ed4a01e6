package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type TierType string

const (
	TierVIP      TierType = "VIP"
	TierFrontRow TierType = "FRONT_ROW"
	TierGA       TierType = "GA"
)

func (t TierType) Valid() bool {
	switch t {
	case TierVIP, TierFrontRow, TierGA:
		return true
	}
	return false
}

// DisplayName is the label shown to buyers, e.g. "Front Row" for FRONT_ROW.
func (t TierType) DisplayName() string {
	switch t {
	case TierVIP:
		return "VIP"
	case TierFrontRow:
		return "Front Row"
	case TierGA:
		return "General Admission"
	}
	return string(t)
}

type TicketTier struct {
	ID                string          `json:"id"`
	TierType          TierType        `json:"tierType"`
	Price             decimal.Decimal `json:"price"`
	TotalQuantity     int             `json:"totalQuantity"`
	AvailableQuantity int             `json:"availableQuantity"`
}

type Concert struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Venue       string       `json:"venue"`
	EventDate   time.Time    `json:"eventDate"`
	TicketTiers []TicketTier `json:"ticketTiers"`
}

func (c Concert) Tier(tierID string) (TicketTier, bool) {
	for _, t := range c.TicketTiers {
		if t.ID == tierID {
			return t, true
		}
	}
	return TicketTier{}, false
}

func (c Concert) HasAvailableTickets() bool {
	for _, t := range c.TicketTiers {
		if t.AvailableQuantity > 0 {
			return true
		}
	}
	return false
}

// PriceRange returns the lowest and highest tier price. Both are zero for a
// concert without tiers.
func (c Concert) PriceRange() (decimal.Decimal, decimal.Decimal) {
	if len(c.TicketTiers) == 0 {
		return decimal.Zero, decimal.Zero
	}

	low, high := c.TicketTiers[0].Price, c.TicketTiers[0].Price
	for _, t := range c.TicketTiers[1:] {
		if t.Price.LessThan(low) {
			low = t.Price
		}
		if t.Price.GreaterThan(high) {
			high = t.Price
		}
	}
	return low, high
}
