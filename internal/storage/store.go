// Package storage defines the persistence interfaces the core services are
// written against. Swapping backends (Postgres, in-memory) requires no
// change to the allocation engine, settlement aggregator or bill lifecycle
// code.
//
// Lookup methods return (nil, nil) when the record does not exist; callers
// translate that into their own not-found errors. Delete methods report
// whether a record was actually removed, so repeat calls are idempotent.
package storage

import (
	"context"

	"github.com/splittab/splittab/internal/models"
)

// BillStore persists bills. DeleteCascade removes a bill together with all
// of its allocations, items and participants in that order, inside one
// store-level transaction, and only when the bill is owned by the given
// user. The owner filter and the delete are a single atomic check.
type BillStore interface {
	Create(ctx context.Context, bill *models.Bill) error
	Get(ctx context.Context, id models.BillID) (*models.Bill, error)
	GetForOwner(ctx context.Context, id models.BillID, owner models.UserID) (*models.Bill, error)
	ListByOwner(ctx context.Context, owner models.UserID) ([]*models.Bill, error)
	Update(ctx context.Context, bill *models.Bill) error
	DeleteCascade(ctx context.Context, id models.BillID, owner models.UserID) (bool, error)
}

// ParticipantStore persists bill participants. SetTotalOwed is the only
// write path for the derived total; it is separated from Update so that
// name/email edits can never clobber a concurrent recalculation.
type ParticipantStore interface {
	Create(ctx context.Context, p *models.Participant) error
	Get(ctx context.Context, id models.ParticipantID) (*models.Participant, error)
	ListByBill(ctx context.Context, billID models.BillID) ([]*models.Participant, error)
	Update(ctx context.Context, p *models.Participant) error
	SetTotalOwed(ctx context.Context, id models.ParticipantID, total float64) error
	Delete(ctx context.Context, id models.ParticipantID) (bool, error)
}

// ItemStore persists bill items. CreateMany exists for OCR imports.
type ItemStore interface {
	Create(ctx context.Context, item *models.Item) error
	CreateMany(ctx context.Context, items []*models.Item) error
	Get(ctx context.Context, id models.ItemID) (*models.Item, error)
	ListByBill(ctx context.Context, billID models.BillID) ([]*models.Item, error)
	Update(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, id models.ItemID) (bool, error)
}

// AllocationStore persists item allocations, filterable by item,
// participant and (via the denormalized bill id) bill.
type AllocationStore interface {
	Create(ctx context.Context, a *models.Allocation) error
	Get(ctx context.Context, id models.AllocationID) (*models.Allocation, error)
	ListByItem(ctx context.Context, itemID models.ItemID) ([]*models.Allocation, error)
	ListByParticipant(ctx context.Context, participantID models.ParticipantID) ([]*models.Allocation, error)
	ListByBill(ctx context.Context, billID models.BillID) ([]*models.Allocation, error)
	Update(ctx context.Context, a *models.Allocation) error
	Delete(ctx context.Context, id models.AllocationID) (bool, error)
	DeleteByItem(ctx context.Context, itemID models.ItemID) error
	DeleteByParticipant(ctx context.Context, participantID models.ParticipantID) error
}

// UserStore persists user accounts.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id models.UserID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
