package models

import "time"

// Participant is a person sharing part of a bill's cost. TotalOwed is
// derived: it is the sum of the participant's allocation amounts and is only
// ever written by the settlement aggregator.
type Participant struct {
	ID        ParticipantID `json:"id"`
	BillID    BillID        `json:"bill_id"`
	Name      string        `json:"name"`
	Email     *string       `json:"email,omitempty"`
	TotalOwed float64       `json:"total_owed"`
	CreatedAt time.Time     `json:"created_at"`

	// Populated via read-time join.
	Allocations []*Allocation `json:"allocations,omitempty"`
}
