// Package settlement maintains the derived money fields: participant totals
// and the per-item allocation budget. Every mutation that can invalidate a
// derived total routes through the Aggregator before returning to the
// caller.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/splittab/splittab/internal/metrics"
	"github.com/splittab/splittab/internal/models"
	"github.com/splittab/splittab/internal/storage"
)

// ErrBillNotFound is returned when a recalculation targets a missing bill.
var ErrBillNotFound = errors.New("bill not found")

// budgetEpsilon absorbs float drift when comparing portion sums to 1.0.
const budgetEpsilon = 1e-9

// Aggregator recomputes derived totals from current allocation state. Every
// recalculation is a full resum, so it is idempotent and safe to re-run
// after a retry or a lost race; there is no incremental bookkeeping to
// corrupt.
type Aggregator struct {
	bills        storage.BillStore
	participants storage.ParticipantStore
	items        storage.ItemStore
	allocations  storage.AllocationStore
}

// NewAggregator creates an aggregator over the given stores.
func NewAggregator(bills storage.BillStore, participants storage.ParticipantStore, items storage.ItemStore, allocations storage.AllocationStore) *Aggregator {
	return &Aggregator{
		bills:        bills,
		participants: participants,
		items:        items,
		allocations:  allocations,
	}
}

// RecalculateParticipant resums the participant's allocation amounts and
// stores the result as totalOwed, returning the new total.
func (a *Aggregator) RecalculateParticipant(ctx context.Context, id models.ParticipantID) (float64, error) {
	allocations, err := a.allocations.ListByParticipant(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to load allocations: %w", err)
	}

	var total float64
	for _, alloc := range allocations {
		total += alloc.Amount
	}

	if err := a.participants.SetTotalOwed(ctx, id, total); err != nil {
		return 0, fmt.Errorf("failed to store total owed: %w", err)
	}
	metrics.RecalculationsTotal.Inc()
	return total, nil
}

// RecalculateBill resums every participant total on the bill and returns the
// bill fully populated. Besides serving the explicit recalculate operation,
// this is the repair tool for any drift left by an interrupted cascade.
func (a *Aggregator) RecalculateBill(ctx context.Context, billID models.BillID) (*models.Bill, error) {
	bill, err := a.bills.Get(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, ErrBillNotFound
	}

	participants, err := a.participants.ListByBill(ctx, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	for _, p := range participants {
		if _, err := a.RecalculateParticipant(ctx, p.ID); err != nil {
			return nil, err
		}
	}

	if err := a.PopulateBill(ctx, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

// CascadeItemChange recomputes every allocation of the item from its current
// price and quantity, keeping each allocation's existing portion, then
// recalculates each affected participant exactly once. Recalculation order
// is irrelevant because each one is a full resum.
//
// The cascade is not atomic across its writes; a failure mid-way leaves
// totals stale until RecalculateBill runs.
func (a *Aggregator) CascadeItemChange(ctx context.Context, item *models.Item) error {
	allocations, err := a.allocations.ListByItem(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("failed to load item allocations: %w", err)
	}

	affected := make(map[models.ParticipantID]struct{})
	for _, alloc := range allocations {
		alloc.Amount = item.Value() * alloc.Portion
		if err := a.allocations.Update(ctx, alloc); err != nil {
			return fmt.Errorf("failed to update allocation: %w", err)
		}
		affected[alloc.ParticipantID] = struct{}{}
	}

	for participantID := range affected {
		if _, err := a.RecalculateParticipant(ctx, participantID); err != nil {
			return err
		}
	}
	metrics.CascadesTotal.Inc()
	return nil
}

// PortionBudget reports how much of an item's value is currently allocated.
type PortionBudget struct {
	ItemID models.ItemID `json:"item_id"`
	Total  float64       `json:"total"`
	Valid  bool          `json:"valid"`
}

// ItemPortionBudget sums the item's allocation portions. Valid is false when
// the sum exceeds 1.0; this is advisory and callers decide whether to
// reject.
func (a *Aggregator) ItemPortionBudget(ctx context.Context, itemID models.ItemID) (*PortionBudget, error) {
	allocations, err := a.allocations.ListByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load item allocations: %w", err)
	}

	var total float64
	for _, alloc := range allocations {
		total += alloc.Portion
	}
	return &PortionBudget{
		ItemID: itemID,
		Total:  total,
		Valid:  total <= 1.0+budgetEpsilon,
	}, nil
}

// BillWarnings reports advisory inconsistencies on a populated bill:
// over-allocated items and a total that drifted from its components.
func (a *Aggregator) BillWarnings(bill *models.Bill) []string {
	var warnings []string
	for _, item := range bill.Items {
		var total float64
		for _, alloc := range item.Allocations {
			total += alloc.Portion
		}
		if total > 1.0+budgetEpsilon {
			warnings = append(warnings, fmt.Sprintf("item %q has total allocation %.2f, exceeding 100%%", item.Name, total))
		}
	}
	if math.Abs(bill.TotalAmount-(bill.Subtotal+bill.TaxAmount+bill.ServiceChargeAmount)) > budgetEpsilon {
		warnings = append(warnings, "bill total does not match subtotal + tax + service charge")
	}
	return warnings
}

// PopulateBill attaches the bill's participants and items, each with their
// allocations. These are read-time joins; nothing here is stored on the
// bill row.
func (a *Aggregator) PopulateBill(ctx context.Context, bill *models.Bill) error {
	participants, err := a.participants.ListByBill(ctx, bill.ID)
	if err != nil {
		return fmt.Errorf("failed to list participants: %w", err)
	}
	for _, p := range participants {
		if p.Allocations, err = a.allocations.ListByParticipant(ctx, p.ID); err != nil {
			return fmt.Errorf("failed to list participant allocations: %w", err)
		}
	}

	items, err := a.items.ListByBill(ctx, bill.ID)
	if err != nil {
		return fmt.Errorf("failed to list items: %w", err)
	}
	for _, item := range items {
		if item.Allocations, err = a.allocations.ListByItem(ctx, item.ID); err != nil {
			return fmt.Errorf("failed to list item allocations: %w", err)
		}
	}

	bill.Participants = participants
	bill.Items = items
	return nil
}

// PopulateAllocation attaches the allocation's resolved item and
// participant for single-allocation reads.
func (a *Aggregator) PopulateAllocation(ctx context.Context, alloc *models.Allocation) error {
	item, err := a.items.Get(ctx, alloc.ItemID)
	if err != nil {
		return err
	}
	participant, err := a.participants.Get(ctx, alloc.ParticipantID)
	if err != nil {
		return err
	}
	alloc.Item = item
	alloc.Participant = participant
	return nil
}
