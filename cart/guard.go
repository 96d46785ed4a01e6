package cart

import (
	"errors"
	"fmt"

	"concertbooking/entity"

	"github.com/shopspring/decimal"
)

// MaxPerTier is the per-tier ceiling enforced while building a selection.
const MaxPerTier = entity.MaxTicketsPerTier

var (
	ErrTierLimit          = fmt.Errorf("maximum %d tickets per tier", MaxPerTier)
	ErrNotEnoughAvailable = errors.New("not enough tickets available")
	ErrWrongConcert       = errors.New("tier does not belong to the selected concert")
)

// CanIncrease reports whether one more ticket of tier fits under both the
// per-tier ceiling and the tier's last known availability.
func CanIncrease(c *Cart, tier entity.TicketTier) bool {
	return checkQuantity(tier, c.Quantity(tier.ID)+1) == nil
}

// Increase adds one ticket of tier after checking the ceilings.
func Increase(c *Cart, tier entity.TicketTier) error {
	if err := checkQuantity(tier, c.Quantity(tier.ID)+1); err != nil {
		return err
	}

	c.AddOrIncrement(tier.ID, 1)
	return nil
}

// Decrease removes one ticket of tierID, dropping the item at zero.
func Decrease(c *Cart, tierID string) {
	if q := c.Quantity(tierID); q > 0 {
		c.SetQuantity(tierID, q-1)
	}
}

// SetChecked sets the quantity of a tier of concert after checking the
// ceilings. The cart must already be bound to concert.
func SetChecked(c *Cart, concert entity.Concert, tierID string, quantity int) error {
	if c.ConcertID() != concert.ID {
		return ErrWrongConcert
	}
	tier, ok := concert.Tier(tierID)
	if !ok {
		return ErrWrongConcert
	}

	if quantity > 0 {
		if err := checkQuantity(tier, quantity); err != nil {
			return err
		}
	}

	c.SetQuantity(tierID, quantity)
	return nil
}

// Total prices the selection against concert's tiers. Items whose tier is
// unknown contribute nothing.
func Total(c *Cart, concert entity.Concert) decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items() {
		tier, ok := concert.Tier(item.TicketTierID)
		if !ok {
			continue
		}
		total = total.Add(tier.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func checkQuantity(tier entity.TicketTier, quantity int) error {
	if quantity > MaxPerTier {
		return ErrTierLimit
	}
	if quantity > tier.AvailableQuantity {
		return ErrNotEnoughAvailable
	}
	return nil
}
