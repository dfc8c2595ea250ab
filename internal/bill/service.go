// Package bill implements the bill lifecycle: creation, owner-scoped reads,
// merged updates with total re-derivation, cascading deletion and OCR item
// import.
package bill

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/splittab/splittab/internal/item"
	"github.com/splittab/splittab/internal/models"
	"github.com/splittab/splittab/internal/settlement"
	"github.com/splittab/splittab/internal/storage"
)

// Common errors
var (
	ErrBillNotFound = errors.New("bill not found")
	ErrUnauthorized = errors.New("unauthorized access to bill")
	ErrValidation   = errors.New("validation failed")
)

// validateInput checks the bill rules: title required and at most 100
// characters, all money components non-negative.
func validateInput(title string, subtotal, taxAmount, serviceChargeAmount float64) []string {
	var errs []string
	if strings.TrimSpace(title) == "" {
		errs = append(errs, "bill title is required")
	}
	if len(title) > 100 {
		errs = append(errs, "bill title must be less than 100 characters")
	}
	if subtotal < 0 {
		errs = append(errs, "subtotal must be a positive number")
	}
	if taxAmount < 0 {
		errs = append(errs, "tax amount must be a positive number")
	}
	if serviceChargeAmount < 0 {
		errs = append(errs, "service charge amount must be a positive number")
	}
	return errs
}

// Service orchestrates the bill lifecycle over the stores and the
// settlement aggregator.
type Service struct {
	bills        storage.BillStore
	participants storage.ParticipantStore
	items        storage.ItemStore
	allocations  storage.AllocationStore
	aggregator   *settlement.Aggregator
}

// NewService creates a bill service with its dependencies injected.
func NewService(bills storage.BillStore, participants storage.ParticipantStore, items storage.ItemStore, allocations storage.AllocationStore, aggregator *settlement.Aggregator) *Service {
	return &Service{
		bills:        bills,
		participants: participants,
		items:        items,
		allocations:  allocations,
		aggregator:   aggregator,
	}
}

// Create validates the input, derives the total and persists a new bill
// owned by the caller.
func (s *Service) Create(ctx context.Context, owner models.UserID, req *CreateBillRequest) (*models.Bill, error) {
	if req.Subtotal == nil || req.TaxAmount == nil || req.ServiceChargeAmount == nil {
		return nil, fmt.Errorf("%w: subtotal, tax amount and service charge amount are required", ErrValidation)
	}
	if errs := validateInput(req.Title, *req.Subtotal, *req.TaxAmount, *req.ServiceChargeAmount); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(errs, ", "))
	}

	now := time.Now().UTC()
	bill := &models.Bill{
		OwnerID:             owner,
		Title:               req.Title,
		Description:         req.Description,
		ImageURL:            req.ImageURL,
		Subtotal:            *req.Subtotal,
		TaxAmount:           *req.TaxAmount,
		ServiceChargeAmount: *req.ServiceChargeAmount,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	bill.DeriveTotal()

	if err := s.bills.Create(ctx, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

// Get returns a bill populated with participants and items. The owner check
// is separate from existence so callers can distinguish 404 from 403.
func (s *Service) Get(ctx context.Context, owner models.UserID, id models.BillID) (*models.Bill, error) {
	bill, err := s.bills.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, ErrBillNotFound
	}
	if bill.OwnerID != owner {
		return nil, ErrUnauthorized
	}
	if err := s.aggregator.PopulateBill(ctx, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

// ListByOwner returns the caller's bills, each fully populated.
func (s *Service) ListByOwner(ctx context.Context, owner models.UserID) ([]*models.Bill, error) {
	bills, err := s.bills.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, bill := range bills {
		if err := s.aggregator.PopulateBill(ctx, bill); err != nil {
			return nil, err
		}
	}
	return bills, nil
}

// Update applies a partial edit. If any money component is present, the
// total is re-derived from the merged values: patched fields where given,
// stored values otherwise. Nothing is written when validation or the
// owner check fails.
func (s *Service) Update(ctx context.Context, owner models.UserID, id models.BillID, req *UpdateBillRequest) (*models.Bill, error) {
	bill, err := s.bills.GetForOwner(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, ErrBillNotFound
	}

	if req.Title != nil {
		bill.Title = *req.Title
	}
	if req.Description != nil {
		bill.Description = *req.Description
	}
	if req.ImageURL != nil {
		bill.ImageURL = req.ImageURL
	}
	if req.Subtotal != nil {
		bill.Subtotal = *req.Subtotal
	}
	if req.TaxAmount != nil {
		bill.TaxAmount = *req.TaxAmount
	}
	if req.ServiceChargeAmount != nil {
		bill.ServiceChargeAmount = *req.ServiceChargeAmount
	}
	if errs := validateInput(bill.Title, bill.Subtotal, bill.TaxAmount, bill.ServiceChargeAmount); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(errs, ", "))
	}

	if req.Subtotal != nil || req.TaxAmount != nil || req.ServiceChargeAmount != nil {
		bill.DeriveTotal()
	}
	bill.UpdatedAt = time.Now().UTC()

	if err := s.bills.Update(ctx, bill); err != nil {
		return nil, err
	}
	if err := s.aggregator.PopulateBill(ctx, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

// Delete removes a bill and everything under it: allocations first, then
// items and participants, then the bill row. The store performs the whole
// cascade with the owner filter as one atomic operation; false means the
// bill did not exist or is not the caller's.
func (s *Service) Delete(ctx context.Context, owner models.UserID, id models.BillID) (bool, error) {
	return s.bills.DeleteCascade(ctx, id, owner)
}

// ImportOCR stores the opaque OCR payload on the bill and bulk-inserts the
// extracted items. No allocations are created; those are added separately.
func (s *Service) ImportOCR(ctx context.Context, owner models.UserID, id models.BillID, req *OCRImportRequest) (*models.Bill, error) {
	bill, err := s.bills.GetForOwner(ctx, id, owner)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, ErrBillNotFound
	}

	now := time.Now().UTC()
	items := make([]*models.Item, len(req.Items))
	for i, in := range req.Items {
		if in.Price == nil || in.Quantity == nil {
			return nil, fmt.Errorf("%w: item %d: price and quantity are required", ErrValidation, i+1)
		}
		if errs := item.ValidateInput(in.Name, *in.Price, *in.Quantity); len(errs) > 0 {
			return nil, fmt.Errorf("%w: item %d: %s", ErrValidation, i+1, strings.Join(errs, ", "))
		}
		items[i] = &models.Item{
			BillID:    bill.ID,
			Name:      in.Name,
			Price:     *in.Price,
			Quantity:  *in.Quantity,
			CreatedAt: now,
		}
	}

	bill.OCRData = req.OCRData
	bill.UpdatedAt = now
	if err := s.bills.Update(ctx, bill); err != nil {
		return nil, err
	}
	if err := s.items.CreateMany(ctx, items); err != nil {
		return nil, err
	}

	if err := s.aggregator.PopulateBill(ctx, bill); err != nil {
		return nil, err
	}
	return bill, nil
}

// Recalculate resums every participant total on the bill and returns the
// populated bill plus any advisory consistency warnings.
func (s *Service) Recalculate(ctx context.Context, owner models.UserID, id models.BillID) (*models.Bill, []string, error) {
	if _, err := s.authorize(ctx, owner, id); err != nil {
		return nil, nil, err
	}
	bill, err := s.aggregator.RecalculateBill(ctx, id)
	if err != nil {
		if errors.Is(err, settlement.ErrBillNotFound) {
			return nil, nil, ErrBillNotFound
		}
		return nil, nil, err
	}
	return bill, s.aggregator.BillWarnings(bill), nil
}

// Participants returns the bill's participants with their allocations.
func (s *Service) Participants(ctx context.Context, owner models.UserID, id models.BillID) ([]*models.Participant, error) {
	if _, err := s.authorize(ctx, owner, id); err != nil {
		return nil, err
	}
	participants, err := s.participants.ListByBill(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, p := range participants {
		if p.Allocations, err = s.allocations.ListByParticipant(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	return participants, nil
}

// Items returns the bill's items with their allocations.
func (s *Service) Items(ctx context.Context, owner models.UserID, id models.BillID) ([]*models.Item, error) {
	if _, err := s.authorize(ctx, owner, id); err != nil {
		return nil, err
	}
	items, err := s.items.ListByBill(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.Allocations, err = s.allocations.ListByItem(ctx, it.ID); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// Allocations returns every allocation on the bill with resolved item and
// participant.
func (s *Service) Allocations(ctx context.Context, owner models.UserID, id models.BillID) ([]*models.Allocation, error) {
	if _, err := s.authorize(ctx, owner, id); err != nil {
		return nil, err
	}
	allocations, err := s.allocations.ListByBill(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, alloc := range allocations {
		if err := s.aggregator.PopulateAllocation(ctx, alloc); err != nil {
			return nil, err
		}
	}
	return allocations, nil
}

func (s *Service) authorize(ctx context.Context, owner models.UserID, id models.BillID) (*models.Bill, error) {
	bill, err := s.bills.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, ErrBillNotFound
	}
	if bill.OwnerID != owner {
		return nil, ErrUnauthorized
	}
	return bill, nil
}
