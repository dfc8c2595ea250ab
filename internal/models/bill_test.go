package models

import (
	"math"
	"testing"
)

func TestDeriveTotal(t *testing.T) {
	b := &Bill{Subtotal: 100, TaxAmount: 15, ServiceChargeAmount: 10}
	b.DeriveTotal()
	if math.Abs(b.TotalAmount-125) > 1e-9 {
		t.Errorf("TotalAmount = %v, want 125", b.TotalAmount)
	}
}

func TestItemValue(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want float64
	}{
		{"single unit", Item{Price: 12.5, Quantity: 1}, 12.5},
		{"multiple units", Item{Price: 4, Quantity: 3}, 12},
		{"zero price", Item{Price: 0, Quantity: 5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.item.Value(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Value() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBillStatus(t *testing.T) {
	full := []*Allocation{{Portion: 0.5}, {Portion: 0.5}}
	partial := []*Allocation{{Portion: 0.25}}

	tests := []struct {
		name string
		bill Bill
		want BillStatus
	}{
		{
			"no children",
			Bill{},
			BillStatusDraft,
		},
		{
			"participants only",
			Bill{Participants: []*Participant{{Name: "Dana"}}},
			BillStatusPopulated,
		},
		{
			"items without allocations",
			Bill{Items: []*Item{{Name: "Pizza"}}},
			BillStatusPopulated,
		},
		{
			"partially allocated",
			Bill{Items: []*Item{{Allocations: partial}}},
			BillStatusAllocated,
		},
		{
			"one item full one empty",
			Bill{Items: []*Item{{Allocations: full}, {}}},
			BillStatusAllocated,
		},
		{
			"every item fully allocated",
			Bill{Items: []*Item{{Allocations: full}, {Allocations: []*Allocation{{Portion: 1}}}}},
			BillStatusSettled,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bill.Status(); got != tt.want {
				t.Errorf("Status() = %v, want %v", got, tt.want)
			}
		})
	}
}
