package allocation

import "github.com/splittab/splittab/internal/models"

// CreateAllocationRequest represents the request to allocate a portion of an
// item to a participant
type CreateAllocationRequest struct {
	ItemID        models.ItemID        `json:"item_id"`
	ParticipantID models.ParticipantID `json:"participant_id"`
	Portion       float64              `json:"portion"`
}

// UpdateAllocationRequest represents the request to change an allocation's
// portion
type UpdateAllocationRequest struct {
	Portion *float64 `json:"portion"`
}

// BulkAllocationUpdate is one entry of a bulk portion update
type BulkAllocationUpdate struct {
	AllocationID models.AllocationID `json:"allocation_id"`
	Portion      float64             `json:"portion"`
}

// BulkUpdateRequest represents the request to update several allocations in
// one call
type BulkUpdateRequest struct {
	Allocations []BulkAllocationUpdate `json:"allocations"`
}
