package models

import "time"

// Allocation assigns a fraction of one item's value to one participant.
// Amount is derived from the item's current price and quantity and the
// portion; it is recomputed on every mutation that can change it, never
// treated as authoritative on its own. BillID is denormalized from the item
// for fast per-bill filtering.
type Allocation struct {
	ID            AllocationID  `json:"id"`
	ItemID        ItemID        `json:"item_id"`
	ParticipantID ParticipantID `json:"participant_id"`
	BillID        BillID        `json:"bill_id"`
	Portion       float64       `json:"portion"`
	Amount        float64       `json:"amount"`
	CreatedAt     time.Time     `json:"created_at"`

	// Populated via read-time join for single-allocation reads.
	Item        *Item        `json:"item,omitempty"`
	Participant *Participant `json:"participant,omitempty"`
}
