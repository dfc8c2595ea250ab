package models

import "time"

// Item is one purchased line on a bill: a unit price and a positive integer
// quantity. Its value (price x quantity) is what allocations claim fractions
// of.
type Item struct {
	ID        ItemID    `json:"id"`
	BillID    BillID    `json:"bill_id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`

	// Populated via read-time join.
	Allocations []*Allocation `json:"allocations,omitempty"`
}

// Value returns the item's whole monetary value.
func (i *Item) Value() float64 {
	return i.Price * float64(i.Quantity)
}
