package item

import "github.com/splittab/splittab/internal/models"

// AddItemRequest represents the request to add an item to a bill
type AddItemRequest struct {
	BillID   models.BillID `json:"bill_id"`
	Name     string        `json:"name"`
	Price    float64       `json:"price"`
	Quantity int           `json:"quantity"`
}

// UpdateItemRequest represents a partial item edit; absent fields keep
// their current values
type UpdateItemRequest struct {
	Name     *string  `json:"name,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Quantity *int     `json:"quantity,omitempty"`
}
