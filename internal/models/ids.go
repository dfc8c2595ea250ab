package models

import "github.com/google/uuid"

// Typed identifiers keep bill, participant, item and allocation references
// from being mixed up at compile time. The underlying representation is a
// UUID string assigned by the store on insert.
type (
	UserID        string
	BillID        string
	ParticipantID string
	ItemID        string
	AllocationID  string
)

func NewUserID() UserID               { return UserID(uuid.NewString()) }
func NewBillID() BillID               { return BillID(uuid.NewString()) }
func NewParticipantID() ParticipantID { return ParticipantID(uuid.NewString()) }
func NewItemID() ItemID               { return ItemID(uuid.NewString()) }
func NewAllocationID() AllocationID   { return AllocationID(uuid.NewString()) }
