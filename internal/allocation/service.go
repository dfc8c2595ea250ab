// Package allocation implements the allocation engine: fractional claims of
// an item's value by participants, with derived amounts kept consistent
// through the settlement aggregator.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/splittab/splittab/internal/models"
	"github.com/splittab/splittab/internal/settlement"
	"github.com/splittab/splittab/internal/storage"
)

// Common errors
var (
	ErrItemNotFound        = errors.New("item not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrAllocationNotFound  = errors.New("allocation not found")
	ErrInvalidPortion      = errors.New("allocation portion must be between 0 and 1")
	ErrCrossBillReference  = errors.New("item and participant belong to different bills")
	ErrUnauthorized        = errors.New("unauthorized access to bill")
)

// ComputeAmount derives an allocation's monetary amount from the item's
// current price and quantity and the given portion. Portions of exactly 0
// and 1 are valid boundary values.
func ComputeAmount(item *models.Item, portion float64) (float64, error) {
	if item == nil {
		return 0, ErrItemNotFound
	}
	if portion < 0 || portion > 1 {
		return 0, ErrInvalidPortion
	}
	return item.Value() * portion, nil
}

// Service handles allocation business logic. All ownership checks go
// through the bill referenced by the item, so a caller can never touch
// allocations on someone else's bill.
type Service struct {
	bills        storage.BillStore
	participants storage.ParticipantStore
	items        storage.ItemStore
	allocations  storage.AllocationStore
	aggregator   *settlement.Aggregator
}

// NewService creates an allocation service with its dependencies injected.
func NewService(bills storage.BillStore, participants storage.ParticipantStore, items storage.ItemStore, allocations storage.AllocationStore, aggregator *settlement.Aggregator) *Service {
	return &Service{
		bills:        bills,
		participants: participants,
		items:        items,
		allocations:  allocations,
		aggregator:   aggregator,
	}
}

// Create validates the item/participant pair, computes the amount, persists
// the allocation and recalculates the participant's total before returning.
// The returned allocation embeds the resolved item and participant.
func (s *Service) Create(ctx context.Context, owner models.UserID, req *CreateAllocationRequest) (*models.Allocation, error) {
	item, err := s.items.Get(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}

	bill, err := s.bills.GetForOwner(ctx, item.BillID, owner)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, ErrUnauthorized
	}

	participant, err := s.participants.Get(ctx, req.ParticipantID)
	if err != nil {
		return nil, err
	}
	if participant == nil {
		return nil, ErrParticipantNotFound
	}
	if participant.BillID != item.BillID {
		return nil, ErrCrossBillReference
	}

	amount, err := ComputeAmount(item, req.Portion)
	if err != nil {
		return nil, err
	}

	alloc := &models.Allocation{
		ItemID:        item.ID,
		ParticipantID: participant.ID,
		BillID:        item.BillID,
		Portion:       req.Portion,
		Amount:        amount,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.allocations.Create(ctx, alloc); err != nil {
		return nil, err
	}

	if _, err := s.aggregator.RecalculateParticipant(ctx, participant.ID); err != nil {
		return nil, err
	}
	if err := s.aggregator.PopulateAllocation(ctx, alloc); err != nil {
		return nil, err
	}
	return alloc, nil
}

// Update changes an allocation's portion. The amount is recomputed from the
// item's current price and quantity, never from the amount stored at
// creation time.
func (s *Service) Update(ctx context.Context, owner models.UserID, id models.AllocationID, portion float64) (*models.Allocation, error) {
	alloc, err := s.authorized(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if alloc == nil {
		return nil, ErrAllocationNotFound
	}

	item, err := s.items.Get(ctx, alloc.ItemID)
	if err != nil {
		return nil, err
	}
	amount, err := ComputeAmount(item, portion)
	if err != nil {
		return nil, err
	}

	alloc.Portion = portion
	alloc.Amount = amount
	if err := s.allocations.Update(ctx, alloc); err != nil {
		return nil, err
	}

	if _, err := s.aggregator.RecalculateParticipant(ctx, alloc.ParticipantID); err != nil {
		return nil, err
	}
	if err := s.aggregator.PopulateAllocation(ctx, alloc); err != nil {
		return nil, err
	}
	return alloc, nil
}

// UpdateMany applies a batch of portion updates, each recomputed against
// current item values and each followed by a participant recalculation.
func (s *Service) UpdateMany(ctx context.Context, owner models.UserID, updates []BulkAllocationUpdate) ([]*models.Allocation, error) {
	results := make([]*models.Allocation, 0, len(updates))
	for _, u := range updates {
		alloc, err := s.Update(ctx, owner, u.AllocationID, u.Portion)
		if err != nil {
			return nil, fmt.Errorf("allocation %s: %w", u.AllocationID, err)
		}
		results = append(results, alloc)
	}
	return results, nil
}

// Remove deletes an allocation and recalculates the participant. It is
// idempotent: removing an already-removed allocation reports false rather
// than failing.
func (s *Service) Remove(ctx context.Context, owner models.UserID, id models.AllocationID) (bool, error) {
	alloc, err := s.authorized(ctx, owner, id)
	if err != nil {
		return false, err
	}
	if alloc == nil {
		return false, nil
	}

	removed, err := s.allocations.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if removed {
		if _, err := s.aggregator.RecalculateParticipant(ctx, alloc.ParticipantID); err != nil {
			return true, err
		}
	}
	return removed, nil
}

// ListByParticipant returns a participant's allocations, owner-checked
// through the participant's bill.
func (s *Service) ListByParticipant(ctx context.Context, owner models.UserID, participantID models.ParticipantID) ([]*models.Allocation, error) {
	participant, err := s.participants.Get(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if participant == nil {
		return nil, ErrParticipantNotFound
	}
	bill, err := s.bills.GetForOwner(ctx, participant.BillID, owner)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, ErrUnauthorized
	}
	return s.allocations.ListByParticipant(ctx, participantID)
}

// ValidatePortionBudget reports the item's current portion sum. A total
// above 1.0 is reported, not rejected; callers decide what to do with it.
func (s *Service) ValidatePortionBudget(ctx context.Context, owner models.UserID, itemID models.ItemID) (*settlement.PortionBudget, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}
	bill, err := s.bills.GetForOwner(ctx, item.BillID, owner)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, ErrUnauthorized
	}
	return s.aggregator.ItemPortionBudget(ctx, itemID)
}

// authorized loads an allocation and verifies bill ownership. It returns
// (nil, nil) when the allocation does not exist.
func (s *Service) authorized(ctx context.Context, owner models.UserID, id models.AllocationID) (*models.Allocation, error) {
	alloc, err := s.allocations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if alloc == nil {
		return nil, nil
	}
	bill, err := s.bills.GetForOwner(ctx, alloc.BillID, owner)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, ErrUnauthorized
	}
	return alloc, nil
}
