package bill

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/splittab/splittab/internal/models"
	"github.com/splittab/splittab/internal/settlement"
	"github.com/splittab/splittab/internal/storage/memory"
)

const epsilon = 1e-9

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

type fixture struct {
	store   *memory.Store
	service *Service
	owner   models.UserID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	aggregator := settlement.NewAggregator(store, store.Participants(), store.Items(), store.Allocations())
	return &fixture{
		store:   store,
		service: NewService(store, store.Participants(), store.Items(), store.Allocations(), aggregator),
		owner:   models.NewUserID(),
	}
}

func (f *fixture) createBill(t *testing.T) *models.Bill {
	t.Helper()
	bill, err := f.service.Create(context.Background(), f.owner, &CreateBillRequest{
		Title:               "Dinner",
		Subtotal:            f64(100),
		TaxAmount:           f64(15),
		ServiceChargeAmount: f64(10),
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	return bill
}

func TestCreateDerivesTotal(t *testing.T) {
	f := newFixture(t)
	bill := f.createBill(t)

	if math.Abs(bill.TotalAmount-125) > epsilon {
		t.Errorf("total = %v, want 125", bill.TotalAmount)
	}
	if bill.OwnerID != f.owner {
		t.Errorf("ownerID = %v, want %v", bill.OwnerID, f.owner)
	}
	if bill.ID == "" {
		t.Error("expected an assigned ID")
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateBillRequest
	}{
		{"missing money fields", CreateBillRequest{Title: "Dinner"}},
		{"empty title", CreateBillRequest{Title: "  ", Subtotal: f64(1), TaxAmount: f64(0), ServiceChargeAmount: f64(0)}},
		{"title too long", CreateBillRequest{Title: strings.Repeat("x", 101), Subtotal: f64(1), TaxAmount: f64(0), ServiceChargeAmount: f64(0)}},
		{"negative subtotal", CreateBillRequest{Title: "Dinner", Subtotal: f64(-1), TaxAmount: f64(0), ServiceChargeAmount: f64(0)}},
		{"negative tax", CreateBillRequest{Title: "Dinner", Subtotal: f64(1), TaxAmount: f64(-1), ServiceChargeAmount: f64(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.service.Create(ctx, f.owner, &tt.req); !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestGetDistinguishesMissingFromForeign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.createBill(t)

	if _, err := f.service.Get(ctx, f.owner, models.NewBillID()); !errors.Is(err, ErrBillNotFound) {
		t.Errorf("missing bill err = %v, want ErrBillNotFound", err)
	}
	if _, err := f.service.Get(ctx, models.NewUserID(), bill.ID); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("foreign bill err = %v, want ErrUnauthorized", err)
	}
	got, err := f.service.Get(ctx, f.owner, bill.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != bill.ID {
		t.Errorf("got bill %v, want %v", got.ID, bill.ID)
	}
}

func TestUpdateRederivesTotalFromMergedValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.createBill(t)

	updated, err := f.service.Update(ctx, f.owner, bill.ID, &UpdateBillRequest{Subtotal: f64(200)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	// Stored tax 15 and service charge 10 merge with the patched subtotal.
	if math.Abs(updated.TotalAmount-225) > epsilon {
		t.Errorf("total = %v, want 225", updated.TotalAmount)
	}

	// A title-only edit must leave the total untouched.
	updated, err = f.service.Update(ctx, f.owner, bill.ID, &UpdateBillRequest{Title: str("Brunch")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Brunch" {
		t.Errorf("title = %q, want Brunch", updated.Title)
	}
	if math.Abs(updated.TotalAmount-225) > epsilon {
		t.Errorf("total = %v, want unchanged 225", updated.TotalAmount)
	}
}

func TestUpdateValidatesMergedState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.createBill(t)

	if _, err := f.service.Update(ctx, f.owner, bill.ID, &UpdateBillRequest{Subtotal: f64(-1)}); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	// Nothing was written.
	got, err := f.service.Get(ctx, f.owner, bill.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if math.Abs(got.Subtotal-100) > epsilon {
		t.Errorf("subtotal = %v, want 100", got.Subtotal)
	}
}

func TestDeleteCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.createBill(t)

	p := &models.Participant{BillID: bill.ID, Name: "Dana"}
	if err := f.store.Participants().Create(ctx, p); err != nil {
		t.Fatalf("create participant: %v", err)
	}
	item := &models.Item{BillID: bill.ID, Name: "Pizza", Price: 20, Quantity: 1}
	if err := f.store.Items().Create(ctx, item); err != nil {
		t.Fatalf("create item: %v", err)
	}
	alloc := &models.Allocation{ItemID: item.ID, ParticipantID: p.ID, BillID: bill.ID, Portion: 1, Amount: 20}
	if err := f.store.Allocations().Create(ctx, alloc); err != nil {
		t.Fatalf("create allocation: %v", err)
	}

	deleted, err := f.service.Delete(ctx, f.owner, bill.ID)
	if err != nil || !deleted {
		t.Fatalf("Delete = (%v, %v), want (true, nil)", deleted, err)
	}

	if got, _ := f.store.Get(ctx, bill.ID); got != nil {
		t.Error("bill still present after cascade")
	}
	if got, _ := f.store.Participants().Get(ctx, p.ID); got != nil {
		t.Error("participant still present after cascade")
	}
	if got, _ := f.store.Items().Get(ctx, item.ID); got != nil {
		t.Error("item still present after cascade")
	}
	if got, _ := f.store.Allocations().Get(ctx, alloc.ID); got != nil {
		t.Error("allocation still present after cascade")
	}
}

func TestDeleteForeignBillReportsFalse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.createBill(t)

	deleted, err := f.service.Delete(ctx, models.NewUserID(), bill.ID)
	if err != nil || deleted {
		t.Errorf("Delete = (%v, %v), want (false, nil)", deleted, err)
	}
	if got, _ := f.store.Get(ctx, bill.ID); got == nil {
		t.Error("bill was deleted by a non-owner")
	}

	deleted, err = f.service.Delete(ctx, f.owner, models.NewBillID())
	if err != nil || deleted {
		t.Errorf("Delete of missing bill = (%v, %v), want (false, nil)", deleted, err)
	}
}

func TestImportOCR(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.createBill(t)

	raw := json.RawMessage(`{"provider":"scanner","confidence":0.93}`)
	got, err := f.service.ImportOCR(ctx, f.owner, bill.ID, &OCRImportRequest{
		OCRData: raw,
		Items: []OCRItemInput{
			{Name: "Pizza", Price: f64(20), Quantity: intp(1)},
			{Name: "Soda", Price: f64(3), Quantity: intp(2)},
		},
	})
	if err != nil {
		t.Fatalf("ImportOCR: %v", err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(got.Items))
	}
	if string(got.OCRData) != string(raw) {
		t.Errorf("OCRData = %s, want %s", got.OCRData, raw)
	}
}

func TestImportOCRValidatesItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.createBill(t)

	_, err := f.service.ImportOCR(ctx, f.owner, bill.ID, &OCRImportRequest{
		Items: []OCRItemInput{
			{Name: "Pizza", Price: f64(20), Quantity: intp(1)},
			{Name: "", Price: f64(3), Quantity: intp(0)},
		},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	// The error names the offending entry.
	if !strings.Contains(err.Error(), "item 2") {
		t.Errorf("err = %v, want mention of item 2", err)
	}
}

func TestRecalculateReportsWarnings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.createBill(t)

	p := &models.Participant{BillID: bill.ID, Name: "Dana"}
	if err := f.store.Participants().Create(ctx, p); err != nil {
		t.Fatalf("create participant: %v", err)
	}
	item := &models.Item{BillID: bill.ID, Name: "Pizza", Price: 20, Quantity: 1}
	if err := f.store.Items().Create(ctx, item); err != nil {
		t.Fatalf("create item: %v", err)
	}
	for _, portion := range []float64{0.8, 0.5} {
		a := &models.Allocation{ItemID: item.ID, ParticipantID: p.ID, BillID: bill.ID, Portion: portion, Amount: 20 * portion}
		if err := f.store.Allocations().Create(ctx, a); err != nil {
			t.Fatalf("create allocation: %v", err)
		}
	}

	got, warnings, err := f.service.Recalculate(ctx, f.owner, bill.ID)
	if err != nil {
		t.Fatalf("Recalculate: %v", err)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want one over-allocation warning", warnings)
	}
	if len(got.Participants) != 1 {
		t.Fatalf("participants = %d, want 1", len(got.Participants))
	}
	if owed := got.Participants[0].TotalOwed; math.Abs(owed-26) > epsilon {
		t.Errorf("totalOwed = %v, want 26", owed)
	}
}

func TestChildQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bill := f.createBill(t)

	p := &models.Participant{BillID: bill.ID, Name: "Dana"}
	if err := f.store.Participants().Create(ctx, p); err != nil {
		t.Fatalf("create participant: %v", err)
	}
	item := &models.Item{BillID: bill.ID, Name: "Pizza", Price: 20, Quantity: 1}
	if err := f.store.Items().Create(ctx, item); err != nil {
		t.Fatalf("create item: %v", err)
	}
	alloc := &models.Allocation{ItemID: item.ID, ParticipantID: p.ID, BillID: bill.ID, Portion: 1, Amount: 20}
	if err := f.store.Allocations().Create(ctx, alloc); err != nil {
		t.Fatalf("create allocation: %v", err)
	}

	participants, err := f.service.Participants(ctx, f.owner, bill.ID)
	if err != nil {
		t.Fatalf("Participants: %v", err)
	}
	if len(participants) != 1 || len(participants[0].Allocations) != 1 {
		t.Errorf("participants = %+v, want one with one allocation", participants)
	}

	items, err := f.service.Items(ctx, f.owner, bill.ID)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 1 || len(items[0].Allocations) != 1 {
		t.Errorf("items = %+v, want one with one allocation", items)
	}

	allocations, err := f.service.Allocations(ctx, f.owner, bill.ID)
	if err != nil {
		t.Fatalf("Allocations: %v", err)
	}
	if len(allocations) != 1 {
		t.Fatalf("allocations = %d, want 1", len(allocations))
	}
	if allocations[0].Item == nil || allocations[0].Participant == nil {
		t.Error("expected populated item and participant")
	}

	if _, err := f.service.Participants(ctx, models.NewUserID(), bill.ID); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("stranger err = %v, want ErrUnauthorized", err)
	}
}

func TestListByOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createBill(t)
	f.createBill(t)

	bills, err := f.service.ListByOwner(ctx, f.owner)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(bills) != 2 {
		t.Errorf("bills = %d, want 2", len(bills))
	}

	bills, err = f.service.ListByOwner(ctx, models.NewUserID())
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(bills) != 0 {
		t.Errorf("stranger bills = %d, want 0", len(bills))
	}
}

func intp(v int) *int { return &v }
