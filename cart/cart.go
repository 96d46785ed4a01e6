// Package cart holds the in-progress ticket selection for one concert.
//
// Cart operations never fail: they store whatever they are told. Per-tier
// ceilings and availability are checked by the guard functions in guard.go,
// which callers use before mutating.
package cart

import "concertbooking/entity"

type Cart struct {
	concertID string
	items     []entity.CartItem
}

func New() *Cart {
	return &Cart{}
}

// Select binds the cart to concertID and drops any previous selection, so a
// reservation can never mix tiers of two concerts.
func (c *Cart) Select(concertID string) {
	c.concertID = concertID
	c.items = nil
}

func (c *Cart) ConcertID() string {
	return c.concertID
}

// AddOrIncrement adds delta tickets of tierID. Deltas below 1 are ignored.
func (c *Cart) AddOrIncrement(tierID string, delta int) {
	if delta < 1 {
		return
	}

	if i := c.index(tierID); i >= 0 {
		c.items[i].Quantity += delta
		return
	}
	c.items = append(c.items, entity.CartItem{TicketTierID: tierID, Quantity: delta})
}

// SetQuantity upserts tierID with quantity, removing it when quantity <= 0.
func (c *Cart) SetQuantity(tierID string, quantity int) {
	if quantity <= 0 {
		c.Remove(tierID)
		return
	}

	if i := c.index(tierID); i >= 0 {
		c.items[i].Quantity = quantity
		return
	}
	c.items = append(c.items, entity.CartItem{TicketTierID: tierID, Quantity: quantity})
}

func (c *Cart) Remove(tierID string) {
	i := c.index(tierID)
	if i < 0 {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
}

// Clear drops all items and unbinds the concert.
func (c *Cart) Clear() {
	c.concertID = ""
	c.items = nil
}

func (c *Cart) Quantity(tierID string) int {
	if i := c.index(tierID); i >= 0 {
		return c.items[i].Quantity
	}
	return 0
}

// Items returns a copy of the selection in insertion order.
func (c *Cart) Items() []entity.CartItem {
	items := make([]entity.CartItem, len(c.items))
	copy(items, c.items)
	return items
}

func (c *Cart) TotalQuantity() int {
	total := 0
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

func (c *Cart) Empty() bool {
	return len(c.items) == 0
}

func (c *Cart) index(tierID string) int {
	for i, item := range c.items {
		if item.TicketTierID == tierID {
			return i
		}
	}
	return -1
}
