// Package item manages bill line items. Price or quantity edits trigger the
// settlement cascade so existing allocations never keep stale amounts.
package item

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/splittab/splittab/internal/models"
	"github.com/splittab/splittab/internal/settlement"
	"github.com/splittab/splittab/internal/storage"
)

// Common errors
var (
	ErrItemNotFound = errors.New("item not found")
	ErrUnauthorized = errors.New("unauthorized access to bill")
	ErrValidation   = errors.New("validation failed")
)

// ValidateInput checks the item rules: name required and at most 100
// characters, price non-negative, quantity a positive integer.
func ValidateInput(name string, price float64, quantity int) []string {
	var errs []string
	if strings.TrimSpace(name) == "" {
		errs = append(errs, "item name is required")
	}
	if len(name) > 100 {
		errs = append(errs, "item name must be less than 100 characters")
	}
	if price < 0 {
		errs = append(errs, "item price must be a positive number")
	}
	if quantity < 1 {
		errs = append(errs, "item quantity must be a positive integer")
	}
	return errs
}

// Service handles item business logic
type Service struct {
	bills       storage.BillStore
	items       storage.ItemStore
	allocations storage.AllocationStore
	aggregator  *settlement.Aggregator
}

// NewService creates an item service with its dependencies injected.
func NewService(bills storage.BillStore, items storage.ItemStore, allocations storage.AllocationStore, aggregator *settlement.Aggregator) *Service {
	return &Service{
		bills:       bills,
		items:       items,
		allocations: allocations,
		aggregator:  aggregator,
	}
}

// Add creates an item under a bill owned by the caller.
func (s *Service) Add(ctx context.Context, owner models.UserID, req *AddItemRequest) (*models.Item, error) {
	if errs := ValidateInput(req.Name, req.Price, req.Quantity); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(errs, ", "))
	}

	bill, err := s.bills.GetForOwner(ctx, req.BillID, owner)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, ErrUnauthorized
	}

	item := &models.Item{
		BillID:    req.BillID,
		Name:      req.Name,
		Price:     req.Price,
		Quantity:  req.Quantity,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Get returns an item with its allocations, owner-checked.
func (s *Service) Get(ctx context.Context, owner models.UserID, id models.ItemID) (*models.Item, error) {
	item, err := s.authorized(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	item.Allocations, err = s.allocations.ListByItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Update applies a partial edit. When price or quantity changes, every
// allocation of the item is recomputed with its existing portion and each
// affected participant recalculated, before this call returns.
func (s *Service) Update(ctx context.Context, owner models.UserID, id models.ItemID, req *UpdateItemRequest) (*models.Item, error) {
	item, err := s.authorized(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Price != nil {
		item.Price = *req.Price
	}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if errs := ValidateInput(item.Name, item.Price, item.Quantity); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(errs, ", "))
	}

	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}

	if req.Price != nil || req.Quantity != nil {
		if err := s.aggregator.CascadeItemChange(ctx, item); err != nil {
			return nil, err
		}
	}

	item.Allocations, err = s.allocations.ListByItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Remove deletes an item, removes its allocations first and recalculates
// each participant that had a share of it.
func (s *Service) Remove(ctx context.Context, owner models.UserID, id models.ItemID) (bool, error) {
	item, err := s.authorized(ctx, owner, id)
	if err != nil {
		return false, err
	}

	allocations, err := s.allocations.ListByItem(ctx, item.ID)
	if err != nil {
		return false, err
	}
	if err := s.allocations.DeleteByItem(ctx, item.ID); err != nil {
		return false, err
	}

	affected := make(map[models.ParticipantID]struct{})
	for _, alloc := range allocations {
		affected[alloc.ParticipantID] = struct{}{}
	}
	for participantID := range affected {
		if _, err := s.aggregator.RecalculateParticipant(ctx, participantID); err != nil {
			return false, err
		}
	}

	return s.items.Delete(ctx, item.ID)
}

func (s *Service) authorized(ctx context.Context, owner models.UserID, id models.ItemID) (*models.Item, error) {
	item, err := s.items.Get(ctx, id)
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
	return item, nil
}
