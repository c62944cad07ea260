// Package cart holds checkout line items and the totals derived from them.
package cart

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Item is one cart line. ID keeps the client's JSON form (number or string) so it
// round-trips unchanged into provider metadata and stored orders.
type Item struct {
	ID       json.RawMessage `json:"id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    float64         `json:"price"`
}

// SameProduct compares product references ignoring insignificant JSON whitespace.
func (it Item) SameProduct(id json.RawMessage) bool {
	return bytes.Equal(compact(it.ID), compact(id))
}

// LineTotal is price × quantity in major units.
func (it Item) LineTotal() decimal.Decimal {
	return decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Cart keeps items in insertion order.
type Cart struct {
	items []Item
}

func New(items ...Item) *Cart {
	c := &Cart{}
	for _, it := range items {
		c.Add(it)
	}
	return c
}

// Add appends it, or merges quantity into an existing line for the same product and
// takes the newer price.
func (c *Cart) Add(it Item) {
	if it.Quantity <= 0 {
		return
	}
	if i := c.index(it.ID); i >= 0 {
		c.items[i].Quantity += it.Quantity
		c.items[i].Price = it.Price
		if it.Name != "" {
			c.items[i].Name = it.Name
		}
		return
	}
	c.items = append(c.items, it)
}

// Update sets the quantity of an existing line; a non-positive quantity removes it.
// It reports whether the product was in the cart.
func (c *Cart) Update(id json.RawMessage, quantity int) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	if quantity <= 0 {
		c.removeAt(i)
		return true
	}
	c.items[i].Quantity = quantity
	return true
}

func (c *Cart) Remove(id json.RawMessage) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int { return len(c.items) }

// Subtotal is the sum of line totals in major units, rounded to cents.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.LineTotal())
	}
	return total.Round(2)
}

// AmountMinor is the subtotal in minor units (cents), as a payment intent expects.
func (c *Cart) AmountMinor() int64 {
	return c.Subtotal().Shift(2).Round(0).IntPart()
}

func (c *Cart) index(id json.RawMessage) int {
	for i, it := range c.items {
		if it.SameProduct(id) {
			return i
		}
	}
	return -1
}

func (c *Cart) removeAt(i int) {
	c.items = append(c.items[:i], c.items[i+1:]...)
}

// MarshalItems renders items the way they are attached to payment metadata. A nil
// slice renders as "[]".
func MarshalItems(items []Item) (string, error) {
	if items == nil {
		items = []Item{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func compact(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
