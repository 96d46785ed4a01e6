package service

import (
	"time"

	"concertbooking/entity"

	"github.com/shopspring/decimal"
)

// DemoConcerts is the catalog seeded when SEED_DEMO_DATA is set. Ids are
// fixed so seeding on every start is a no-op after the first. Dates are
// relative to now, truncated to the day.
func DemoConcerts(now time.Time) []entity.Concert {
	day := now.UTC().Truncate(24 * time.Hour)

	return []entity.Concert{
		{
			ID:        "6f1c2a34-8d1e-4b7a-9c55-0a1b2c3d4e01",
			Name:      "The Midnight Echoes",
			Venue:     "Madison Square Garden",
			EventDate: day.AddDate(0, 0, 21).Add(20 * time.Hour),
			TicketTiers: []entity.TicketTier{
				tier("0d9e8f7a-1b2c-4d3e-8f4a-5b6c7d8e9f01", entity.TierVIP, "250", 50),
				tier("0d9e8f7a-1b2c-4d3e-8f4a-5b6c7d8e9f02", entity.TierFrontRow, "150", 100),
				tier("0d9e8f7a-1b2c-4d3e-8f4a-5b6c7d8e9f03", entity.TierGA, "75", 500),
			},
		},
		{
			ID:        "6f1c2a34-8d1e-4b7a-9c55-0a1b2c3d4e02",
			Name:      "Aurora Strings Quartet",
			Venue:     "Royal Albert Hall",
			EventDate: day.AddDate(0, 0, 35).Add(19*time.Hour + 30*time.Minute),
			TicketTiers: []entity.TicketTier{
				tier("0d9e8f7a-1b2c-4d3e-8f4a-5b6c7d8e9f11", entity.TierFrontRow, "89.50", 40),
				tier("0d9e8f7a-1b2c-4d3e-8f4a-5b6c7d8e9f12", entity.TierGA, "49.99", 300),
			},
		},
		{
			ID:        "6f1c2a34-8d1e-4b7a-9c55-0a1b2c3d4e03",
			Name:      "Basement Noise",
			Venue:     "The Roundhouse",
			EventDate: day.AddDate(0, 0, 7).Add(21 * time.Hour),
			TicketTiers: []entity.TicketTier{
				tier("0d9e8f7a-1b2c-4d3e-8f4a-5b6c7d8e9f21", entity.TierGA, "25", 100),
			},
		},
	}
}

func tier(id string, tierType entity.TierType, price string, quantity int) entity.TicketTier {
	return entity.TicketTier{
		ID:                id,
		TierType:          tierType,
		Price:             decimal.RequireFromString(price),
		TotalQuantity:     quantity,
		AvailableQuantity: quantity,
	}
}
