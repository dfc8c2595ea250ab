package models

import (
	"encoding/json"
	"math"
	"time"
)

// Bill is the top-level record for one receipt being split. TotalAmount is
// derived from the three money components and must never be set directly;
// call DeriveTotal after changing any of them.
type Bill struct {
	ID                  BillID          `json:"id"`
	OwnerID             UserID          `json:"owner_id"`
	Title               string          `json:"title"`
	Description         string          `json:"description,omitempty"`
	ImageURL            *string         `json:"image_url,omitempty"`
	Subtotal            float64         `json:"subtotal"`
	TaxAmount           float64         `json:"tax_amount"`
	ServiceChargeAmount float64         `json:"service_charge_amount"`
	TotalAmount         float64         `json:"total_amount"`
	OCRData             json.RawMessage `json:"ocr_data,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`

	// Populated via read-time joins, not stored on the bill row.
	Participants []*Participant `json:"participants,omitempty"`
	Items        []*Item        `json:"items,omitempty"`
}

// DeriveTotal recomputes TotalAmount from subtotal, tax and service charge.
func (b *Bill) DeriveTotal() {
	b.TotalAmount = b.Subtotal + b.TaxAmount + b.ServiceChargeAmount
}

// BillStatus is an observational label computed from a bill's child records.
// It is never persisted and there are no transition guards.
type BillStatus string

const (
	BillStatusDraft     BillStatus = "DRAFT"
	BillStatusPopulated BillStatus = "POPULATED"
	BillStatusAllocated BillStatus = "ALLOCATED"
	BillStatusSettled   BillStatus = "SETTLED"
)

// portionEpsilon is the tolerance used when comparing portion sums to 1.0.
const portionEpsilon = 1e-9

// Status derives the bill's label from its populated participants and items.
// SETTLED requires every item to have allocations whose portions sum to 1.0
// within tolerance.
func (b *Bill) Status() BillStatus {
	if len(b.Items) == 0 && len(b.Participants) == 0 {
		return BillStatusDraft
	}

	allocated := false
	settled := len(b.Items) > 0
	for _, item := range b.Items {
		if len(item.Allocations) > 0 {
			allocated = true
		}
		var total float64
		for _, alloc := range item.Allocations {
			total += alloc.Portion
		}
		if math.Abs(total-1.0) > portionEpsilon {
			settled = false
		}
	}

	switch {
	case allocated && settled:
		return BillStatusSettled
	case allocated:
		return BillStatusAllocated
	default:
		return BillStatusPopulated
	}
}
