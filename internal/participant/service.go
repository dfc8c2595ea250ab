// Package participant manages the people splitting a bill.
package participant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/splittab/splittab/internal/models"
	"github.com/splittab/splittab/internal/storage"
)

// Common errors
var (
	ErrParticipantNotFound = errors.New("participant not found")
	ErrUnauthorized        = errors.New("unauthorized access to bill")
	ErrValidation          = errors.New("validation failed")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateInput checks the participant rules: name required and at most 50
// characters, email well-formed when present.
func ValidateInput(name string, email *string) []string {
	var errs []string
	if strings.TrimSpace(name) == "" {
		errs = append(errs, "participant name is required")
	}
	if len(name) > 50 {
		errs = append(errs, "participant name must be less than 50 characters")
	}
	if email != nil && *email != "" && !emailPattern.MatchString(*email) {
		errs = append(errs, "please provide a valid email address")
	}
	return errs
}

// Service handles participant business logic
type Service struct {
	bills        storage.BillStore
	participants storage.ParticipantStore
	allocations  storage.AllocationStore
}

// NewService creates a participant service with its dependencies injected.
func NewService(bills storage.BillStore, participants storage.ParticipantStore, allocations storage.AllocationStore) *Service {
	return &Service{
		bills:        bills,
		participants: participants,
		allocations:  allocations,
	}
}

// Add creates a participant under a bill owned by the caller. TotalOwed
// starts at zero and is only ever written by recalculation.
func (s *Service) Add(ctx context.Context, owner models.UserID, req *AddParticipantRequest) (*models.Participant, error) {
	if errs := ValidateInput(req.Name, req.Email); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(errs, ", "))
	}

	bill, err := s.bills.GetForOwner(ctx, req.BillID, owner)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, ErrUnauthorized
	}

	p := &models.Participant{
		BillID:    req.BillID,
		Name:      req.Name,
		Email:     req.Email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.participants.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a participant with their allocations, owner-checked.
func (s *Service) Get(ctx context.Context, owner models.UserID, id models.ParticipantID) (*models.Participant, error) {
	p, err := s.authorized(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	p.Allocations, err = s.allocations.ListByParticipant(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Update edits a participant's name and email. The derived total is
// untouched.
func (s *Service) Update(ctx context.Context, owner models.UserID, id models.ParticipantID, req *UpdateParticipantRequest) (*models.Participant, error) {
	p, err := s.authorized(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Email != nil {
		p.Email = req.Email
	}
	if errs := ValidateInput(p.Name, p.Email); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(errs, ", "))
	}

	if err := s.participants.Update(ctx, p); err != nil {
		return nil, err
	}
	p.Allocations, err = s.allocations.ListByParticipant(ctx, id)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Remove deletes a participant together with their allocations.
func (s *Service) Remove(ctx context.Context, owner models.UserID, id models.ParticipantID) (bool, error) {
	p, err := s.authorized(ctx, owner, id)
	if err != nil {
		return false, err
	}

	if err := s.allocations.DeleteByParticipant(ctx, p.ID); err != nil {
		return false, err
	}
	return s.participants.Delete(ctx, p.ID)
}

func (s *Service) authorized(ctx context.Context, owner models.UserID, id models.ParticipantID) (*models.Participant, error) {
	p, err := s.participants.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrParticipantNotFound
	}
	bill, err := s.bills.GetForOwner(ctx, p.BillID, owner)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, ErrUnauthorized
	}
	return p, nil
}
