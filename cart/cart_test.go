package cart_test

import (
	"math/rand"
	"testing"

	"concertbooking/cart"
	"concertbooking/entity"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart_randomOperationsKeepInvariants(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	tiers := []string{"t1", "t2", "t3", "t4"}

	for run := 0; run < 200; run++ {
		c := cart.New()
		c.Select("c1")
		expected := map[string]int{}

		for step := 0; step < 50; step++ {
			tier := tiers[rnd.Intn(len(tiers))]
			switch rnd.Intn(3) {
			case 0:
				delta := rnd.Intn(5) + 1
				c.AddOrIncrement(tier, delta)
				expected[tier] += delta
			case 1:
				q := rnd.Intn(8) - 3
				c.SetQuantity(tier, q)
				if q > 0 {
					expected[tier] = q
				} else {
					delete(expected, tier)
				}
			case 2:
				c.Remove(tier)
				delete(expected, tier)
			}

			sum := 0
			for _, q := range expected {
				sum += q
			}
			require.Equal(t, sum, c.TotalQuantity())

			seen := map[string]bool{}
			for _, item := range c.Items() {
				require.Greater(t, item.Quantity, 0, "zero-quantity item retained")
				require.False(t, seen[item.TicketTierID], "duplicate item for %s", item.TicketTierID)
				seen[item.TicketTierID] = true
				require.Equal(t, expected[item.TicketTierID], item.Quantity)
			}
			require.Len(t, seen, len(expected))
		}
	}
}

func TestCart_Select(t *testing.T) {
	c := cart.New()
	c.Select("c1")
	c.AddOrIncrement("t1", 3)
	c.SetQuantity("t2", 2)

	c.Select("c2")
	assert.Equal(t, "c2", c.ConcertID())
	assert.True(t, c.Empty())
	assert.Equal(t, 0, c.TotalQuantity())

	c.Select("c2")
	assert.True(t, c.Empty())
}

func TestCart_Clear(t *testing.T) {
	c := cart.New()
	c.Select("c1")
	c.AddOrIncrement("t1", 1)

	c.Clear()
	assert.Equal(t, "", c.ConcertID())
	assert.True(t, c.Empty())
}

func TestCart_AddOrIncrementIgnoresNonPositiveDelta(t *testing.T) {
	c := cart.New()
	c.AddOrIncrement("t1", 0)
	c.AddOrIncrement("t1", -2)
	assert.True(t, c.Empty())

	c.AddOrIncrement("t1", 2)
	c.AddOrIncrement("t1", 3)
	assert.Equal(t, 5, c.Quantity("t1"))
}

func TestCart_ItemsIsACopy(t *testing.T) {
	c := cart.New()
	c.AddOrIncrement("t1", 1)

	items := c.Items()
	items[0].Quantity = 99
	assert.Equal(t, 1, c.Quantity("t1"))
}

func TestCart_primitiveDoesNotEnforceCaps(t *testing.T) {
	c := cart.New()
	c.AddOrIncrement("t1", cart.MaxPerTier+5)
	assert.Equal(t, cart.MaxPerTier+5, c.Quantity("t1"))
}

func TestGuard(t *testing.T) {
	concert := entity.Concert{
		ID: "c1",
		TicketTiers: []entity.TicketTier{
			{ID: "t1", TierType: entity.TierGA, Price: decimal.NewFromInt(50), TotalQuantity: 500, AvailableQuantity: 400},
			{ID: "t2", TierType: entity.TierVIP, Price: decimal.NewFromInt(200), TotalQuantity: 20, AvailableQuantity: 2},
			{ID: "t3", TierType: entity.TierFrontRow, Price: decimal.NewFromInt(120), TotalQuantity: 20, AvailableQuantity: 0},
		},
	}
	ga, vip, frontRow := concert.TicketTiers[0], concert.TicketTiers[1], concert.TicketTiers[2]

	t.Run("per-tier ceiling", func(t *testing.T) {
		c := cart.New()
		c.Select(concert.ID)
		for i := 0; i < cart.MaxPerTier; i++ {
			require.NoError(t, cart.Increase(c, ga))
		}
		assert.False(t, cart.CanIncrease(c, ga))
		assert.ErrorIs(t, cart.Increase(c, ga), cart.ErrTierLimit)
		assert.Equal(t, cart.MaxPerTier, c.Quantity(ga.ID))
	})

	t.Run("availability", func(t *testing.T) {
		c := cart.New()
		c.Select(concert.ID)
		require.NoError(t, cart.Increase(c, vip))
		require.NoError(t, cart.Increase(c, vip))
		assert.ErrorIs(t, cart.Increase(c, vip), cart.ErrNotEnoughAvailable)
		assert.ErrorIs(t, cart.Increase(c, frontRow), cart.ErrNotEnoughAvailable)
	})

	t.Run("decrease removes at zero", func(t *testing.T) {
		c := cart.New()
		c.Select(concert.ID)
		require.NoError(t, cart.Increase(c, vip))
		cart.Decrease(c, vip.ID)
		cart.Decrease(c, vip.ID)
		assert.True(t, c.Empty())
	})

	t.Run("set checked", func(t *testing.T) {
		c := cart.New()
		c.Select(concert.ID)
		require.NoError(t, cart.SetChecked(c, concert, ga.ID, 4))
		assert.ErrorIs(t, cart.SetChecked(c, concert, ga.ID, 11), cart.ErrTierLimit)
		assert.ErrorIs(t, cart.SetChecked(c, concert, "unknown", 1), cart.ErrWrongConcert)
		assert.Equal(t, 4, c.Quantity(ga.ID))

		require.NoError(t, cart.SetChecked(c, concert, ga.ID, 0))
		assert.True(t, c.Empty())

		other := cart.New()
		other.Select("c2")
		assert.ErrorIs(t, cart.SetChecked(other, concert, ga.ID, 1), cart.ErrWrongConcert)
	})

	t.Run("total", func(t *testing.T) {
		c := cart.New()
		c.Select(concert.ID)
		require.NoError(t, cart.SetChecked(c, concert, ga.ID, 2))
		require.NoError(t, cart.SetChecked(c, concert, vip.ID, 1))
		assert.True(t, decimal.NewFromInt(300).Equal(cart.Total(c, concert)))
	})
}
