package participant

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/splittab/splittab/internal/models"
	"github.com/splittab/splittab/internal/storage/memory"
)

func str(v string) *string { return &v }

type fixture struct {
	store   *memory.Store
	service *Service
	owner   models.UserID
	bill    *models.Bill
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	owner := models.NewUserID()

	bill := &models.Bill{OwnerID: owner, Title: "Dinner", Subtotal: 50}
	bill.DeriveTotal()
	if err := store.Create(ctx, bill); err != nil {
		t.Fatalf("create bill: %v", err)
	}

	return &fixture{
		store:   store,
		service: NewService(store, store.Participants(), store.Allocations()),
		owner:   owner,
		bill:    bill,
	}
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name     string
		pName    string
		email    *string
		wantErrs int
	}{
		{"valid without email", "Dana", nil, 0},
		{"valid with email", "Dana", str("dana@example.com"), 0},
		{"empty email allowed", "Dana", str(""), 0},
		{"empty name", "  ", nil, 1},
		{"name too long", strings.Repeat("x", 51), nil, 1},
		{"bad email", "Dana", str("not-an-email"), 1},
		{"email with spaces", "Dana", str("a b@example.com"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if errs := ValidateInput(tt.pName, tt.email); len(errs) != tt.wantErrs {
				t.Errorf("errors = %v, want %d", errs, tt.wantErrs)
			}
		})
	}
}

func TestAdd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.service.Add(ctx, f.owner, &AddParticipantRequest{BillID: f.bill.ID, Name: "Dana"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if p.ID == "" {
		t.Error("expected an assigned ID")
	}
	if p.TotalOwed != 0 {
		t.Errorf("totalOwed = %v, want 0", p.TotalOwed)
	}

	if _, err := f.service.Add(ctx, f.owner, &AddParticipantRequest{BillID: f.bill.ID, Name: ""}); !errors.Is(err, ErrValidation) {
		t.Errorf("invalid input err = %v, want ErrValidation", err)
	}
	if _, err := f.service.Add(ctx, models.NewUserID(), &AddParticipantRequest{BillID: f.bill.ID, Name: "Sam"}); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("stranger err = %v, want ErrUnauthorized", err)
	}
}

func TestUpdatePreservesTotalOwed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.service.Add(ctx, f.owner, &AddParticipantRequest{BillID: f.bill.ID, Name: "Dana"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := f.store.Participants().SetTotalOwed(ctx, p.ID, 42); err != nil {
		t.Fatalf("set total: %v", err)
	}

	updated, err := f.service.Update(ctx, f.owner, p.ID, &UpdateParticipantRequest{
		Name:  str("Dana S"),
		Email: str("dana@example.com"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Dana S" {
		t.Errorf("name = %q, want Dana S", updated.Name)
	}

	stored, err := f.store.Participants().Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get participant: %v", err)
	}
	if math.Abs(stored.TotalOwed-42) > 1e-9 {
		t.Errorf("totalOwed = %v, want preserved 42", stored.TotalOwed)
	}
}

func TestUpdateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.service.Add(ctx, f.owner, &AddParticipantRequest{BillID: f.bill.ID, Name: "Dana"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := f.service.Update(ctx, f.owner, p.ID, &UpdateParticipantRequest{Email: str("nope")}); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestRemoveDeletesAllocations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.service.Add(ctx, f.owner, &AddParticipantRequest{BillID: f.bill.ID, Name: "Dana"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	item := &models.Item{BillID: f.bill.ID, Name: "Pizza", Price: 20, Quantity: 1}
	if err := f.store.Items().Create(ctx, item); err != nil {
		t.Fatalf("create item: %v", err)
	}
	alloc := &models.Allocation{ItemID: item.ID, ParticipantID: p.ID, BillID: f.bill.ID, Portion: 1, Amount: 20}
	if err := f.store.Allocations().Create(ctx, alloc); err != nil {
		t.Fatalf("create allocation: %v", err)
	}

	removed, err := f.service.Remove(ctx, f.owner, p.ID)
	if err != nil || !removed {
		t.Fatalf("Remove = (%v, %v), want (true, nil)", removed, err)
	}
	if got, _ := f.store.Participants().Get(ctx, p.ID); got != nil {
		t.Error("participant still present after removal")
	}
	if remaining, _ := f.store.Allocations().ListByParticipant(ctx, p.ID); len(remaining) != 0 {
		t.Errorf("allocations = %d, want 0", len(remaining))
	}
	// The item itself survives.
	if got, _ := f.store.Items().Get(ctx, item.ID); got == nil {
		t.Error("item was deleted by participant removal")
	}
}

func TestGetUnknownParticipant(t *testing.T) {
	f := newFixture(t)
	if _, err := f.service.Get(context.Background(), f.owner, models.NewParticipantID()); !errors.Is(err, ErrParticipantNotFound) {
		t.Errorf("err = %v, want ErrParticipantNotFound", err)
	}
}
