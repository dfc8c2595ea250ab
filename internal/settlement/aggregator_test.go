package settlement

import (
	"context"
	"math"
	"testing"

	"github.com/splittab/splittab/internal/models"
	"github.com/splittab/splittab/internal/storage/memory"
)

const epsilon = 1e-9

type fixture struct {
	store      *memory.Store
	aggregator *Aggregator
	owner      models.UserID
	bill       *models.Bill
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	owner := models.NewUserID()
	bill := &models.Bill{OwnerID: owner, Title: "Dinner", Subtotal: 100, TaxAmount: 15, ServiceChargeAmount: 10}
	bill.DeriveTotal()
	if err := store.Create(context.Background(), bill); err != nil {
		t.Fatalf("create bill: %v", err)
	}
	return &fixture{
		store:      store,
		aggregator: NewAggregator(store, store.Participants(), store.Items(), store.Allocations()),
		owner:      owner,
		bill:       bill,
	}
}

func (f *fixture) addParticipant(t *testing.T, name string) *models.Participant {
	t.Helper()
	p := &models.Participant{BillID: f.bill.ID, Name: name}
	if err := f.store.Participants().Create(context.Background(), p); err != nil {
		t.Fatalf("create participant: %v", err)
	}
	return p
}

func (f *fixture) addItem(t *testing.T, name string, price float64, quantity int) *models.Item {
	t.Helper()
	item := &models.Item{BillID: f.bill.ID, Name: name, Price: price, Quantity: quantity}
	if err := f.store.Items().Create(context.Background(), item); err != nil {
		t.Fatalf("create item: %v", err)
	}
	return item
}

func (f *fixture) allocate(t *testing.T, item *models.Item, p *models.Participant, portion float64) *models.Allocation {
	t.Helper()
	a := &models.Allocation{
		ItemID:        item.ID,
		ParticipantID: p.ID,
		BillID:        f.bill.ID,
		Portion:       portion,
		Amount:        item.Value() * portion,
	}
	if err := f.store.Allocations().Create(context.Background(), a); err != nil {
		t.Fatalf("create allocation: %v", err)
	}
	return a
}

func (f *fixture) totalOwed(t *testing.T, id models.ParticipantID) float64 {
	t.Helper()
	p, err := f.store.Participants().Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get participant: %v", err)
	}
	return p.TotalOwed
}

func TestRecalculateParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addParticipant(t, "Dana")
	pizza := f.addItem(t, "Pizza", 20, 1)
	soda := f.addItem(t, "Soda", 4, 2)
	f.allocate(t, pizza, p, 0.5)
	f.allocate(t, soda, p, 1)

	total, err := f.aggregator.RecalculateParticipant(ctx, p.ID)
	if err != nil {
		t.Fatalf("RecalculateParticipant: %v", err)
	}
	if math.Abs(total-18) > epsilon {
		t.Errorf("total = %v, want 18", total)
	}
	if got := f.totalOwed(t, p.ID); math.Abs(got-18) > epsilon {
		t.Errorf("stored totalOwed = %v, want 18", got)
	}
}

func TestRecalculateParticipantIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addParticipant(t, "Dana")
	item := f.addItem(t, "Pizza", 30, 1)
	f.allocate(t, item, p, 1)

	for i := 0; i < 3; i++ {
		total, err := f.aggregator.RecalculateParticipant(ctx, p.ID)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if math.Abs(total-30) > epsilon {
			t.Errorf("run %d: total = %v, want 30", i, total)
		}
	}
}

func TestRecalculateParticipantNoAllocations(t *testing.T) {
	f := newFixture(t)
	p := f.addParticipant(t, "Dana")
	if err := f.store.Participants().SetTotalOwed(context.Background(), p.ID, 99); err != nil {
		t.Fatalf("seed total: %v", err)
	}

	total, err := f.aggregator.RecalculateParticipant(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("RecalculateParticipant: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %v, want 0", total)
	}
}

func TestCascadeItemChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addParticipant(t, "Dana")
	item := f.addItem(t, "Pizza", 10, 1)
	alloc := f.allocate(t, item, p, 1)
	if _, err := f.aggregator.RecalculateParticipant(ctx, p.ID); err != nil {
		t.Fatalf("initial recalc: %v", err)
	}

	item.Price = 20
	if err := f.store.Items().Update(ctx, item); err != nil {
		t.Fatalf("update item: %v", err)
	}
	if err := f.aggregator.CascadeItemChange(ctx, item); err != nil {
		t.Fatalf("CascadeItemChange: %v", err)
	}

	got, err := f.store.Allocations().Get(ctx, alloc.ID)
	if err != nil {
		t.Fatalf("get allocation: %v", err)
	}
	if math.Abs(got.Amount-20) > epsilon {
		t.Errorf("allocation amount = %v, want 20", got.Amount)
	}
	if math.Abs(got.Portion-1) > epsilon {
		t.Errorf("portion changed to %v, want 1", got.Portion)
	}
	if owed := f.totalOwed(t, p.ID); math.Abs(owed-20) > epsilon {
		t.Errorf("totalOwed = %v, want 20", owed)
	}
}

func TestCascadeItemChangeMultipleAllocationsSameParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addParticipant(t, "Dana")
	item := f.addItem(t, "Wings", 10, 2)
	f.allocate(t, item, p, 0.25)
	f.allocate(t, item, p, 0.25)

	item.Quantity = 4
	if err := f.store.Items().Update(ctx, item); err != nil {
		t.Fatalf("update item: %v", err)
	}
	if err := f.aggregator.CascadeItemChange(ctx, item); err != nil {
		t.Fatalf("CascadeItemChange: %v", err)
	}

	// 10 * 4 * 0.25 per allocation, twice.
	if owed := f.totalOwed(t, p.ID); math.Abs(owed-20) > epsilon {
		t.Errorf("totalOwed = %v, want 20", owed)
	}
}

func TestRecalculateBillRepairsDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.addParticipant(t, "Dana")
	p2 := f.addParticipant(t, "Sam")
	item := f.addItem(t, "Pizza", 40, 1)
	f.allocate(t, item, p1, 0.5)
	f.allocate(t, item, p2, 0.5)

	// Corrupt both stored totals.
	if err := f.store.Participants().SetTotalOwed(ctx, p1.ID, 123); err != nil {
		t.Fatalf("corrupt total: %v", err)
	}
	if err := f.store.Participants().SetTotalOwed(ctx, p2.ID, -5); err != nil {
		t.Fatalf("corrupt total: %v", err)
	}

	bill, err := f.aggregator.RecalculateBill(ctx, f.bill.ID)
	if err != nil {
		t.Fatalf("RecalculateBill: %v", err)
	}
	if len(bill.Participants) != 2 {
		t.Fatalf("populated participants = %d, want 2", len(bill.Participants))
	}
	for _, p := range bill.Participants {
		if math.Abs(p.TotalOwed-20) > epsilon {
			t.Errorf("participant %s totalOwed = %v, want 20", p.Name, p.TotalOwed)
		}
	}
}

func TestRecalculateBillMissing(t *testing.T) {
	f := newFixture(t)
	if _, err := f.aggregator.RecalculateBill(context.Background(), models.NewBillID()); err != ErrBillNotFound {
		t.Errorf("err = %v, want ErrBillNotFound", err)
	}
}

func TestItemPortionBudget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.addParticipant(t, "Dana")
	p2 := f.addParticipant(t, "Sam")
	item := f.addItem(t, "Pizza", 20, 1)

	budget, err := f.aggregator.ItemPortionBudget(ctx, item.ID)
	if err != nil {
		t.Fatalf("ItemPortionBudget: %v", err)
	}
	if budget.Total != 0 || !budget.Valid {
		t.Errorf("empty budget = %+v, want total 0 valid", budget)
	}

	f.allocate(t, item, p1, 0.6)
	f.allocate(t, item, p2, 0.4)
	budget, err = f.aggregator.ItemPortionBudget(ctx, item.ID)
	if err != nil {
		t.Fatalf("ItemPortionBudget: %v", err)
	}
	if !budget.Valid || math.Abs(budget.Total-1) > epsilon {
		t.Errorf("exact budget = %+v, want total 1 valid", budget)
	}

	f.allocate(t, item, p1, 0.5)
	budget, err = f.aggregator.ItemPortionBudget(ctx, item.ID)
	if err != nil {
		t.Fatalf("ItemPortionBudget: %v", err)
	}
	if budget.Valid {
		t.Errorf("over-allocated budget reported valid, total = %v", budget.Total)
	}
}

func TestBillWarnings(t *testing.T) {
	f := newFixture(t)
	over := &models.Bill{
		Subtotal: 10, TaxAmount: 0, ServiceChargeAmount: 0, TotalAmount: 10,
		Items: []*models.Item{{
			Name:        "Pizza",
			Allocations: []*models.Allocation{{Portion: 0.8}, {Portion: 0.5}},
		}},
	}
	warnings := f.aggregator.BillWarnings(over)
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want one over-allocation warning", warnings)
	}

	drifted := &models.Bill{Subtotal: 10, TaxAmount: 2, ServiceChargeAmount: 1, TotalAmount: 99}
	warnings = f.aggregator.BillWarnings(drifted)
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want one drift warning", warnings)
	}

	clean := &models.Bill{Subtotal: 10, TaxAmount: 2, ServiceChargeAmount: 1, TotalAmount: 13}
	if warnings = f.aggregator.BillWarnings(clean); len(warnings) != 0 {
		t.Errorf("clean bill warnings = %v, want none", warnings)
	}
}
