// Package memory implements the storage interfaces with in-process maps.
// It backs the package tests, giving deterministic behavior without a
// database.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/splittab/splittab/internal/models"
)

// Store holds every collection behind one mutex, which makes the
// cross-collection cascade delete trivially atomic.
type Store struct {
	mu           sync.RWMutex
	users        map[models.UserID]*models.User
	bills        map[models.BillID]*models.Bill
	participants map[models.ParticipantID]*models.Participant
	items        map[models.ItemID]*models.Item
	allocations  map[models.AllocationID]*models.Allocation
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		users:        make(map[models.UserID]*models.User),
		bills:        make(map[models.BillID]*models.Bill),
		participants: make(map[models.ParticipantID]*models.Participant),
		items:        make(map[models.ItemID]*models.Item),
		allocations:  make(map[models.AllocationID]*models.Allocation),
	}
}

// --- bills ---

func (s *Store) Create(ctx context.Context, bill *models.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bill.ID == "" {
		bill.ID = models.NewBillID()
	}
	stored := *bill
	stored.Participants, stored.Items = nil, nil
	s.bills[bill.ID] = &stored
	return nil
}

func (s *Store) Get(ctx context.Context, id models.BillID) (*models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bill, ok := s.bills[id]
	if !ok {
		return nil, nil
	}
	out := *bill
	return &out, nil
}

func (s *Store) GetForOwner(ctx context.Context, id models.BillID, owner models.UserID) (*models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bill, ok := s.bills[id]
	if !ok || bill.OwnerID != owner {
		return nil, nil
	}
	out := *bill
	return &out, nil
}

func (s *Store) ListByOwner(ctx context.Context, owner models.UserID) ([]*models.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Bill
	for _, bill := range s.bills {
		if bill.OwnerID == owner {
			b := *bill
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) Update(ctx context.Context, bill *models.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *bill
	stored.Participants, stored.Items = nil, nil
	s.bills[bill.ID] = &stored
	return nil
}

func (s *Store) DeleteCascade(ctx context.Context, id models.BillID, owner models.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bill, ok := s.bills[id]
	if !ok || bill.OwnerID != owner {
		return false, nil
	}
	for allocID, alloc := range s.allocations {
		if alloc.BillID == id {
			delete(s.allocations, allocID)
		}
	}
	for itemID, item := range s.items {
		if item.BillID == id {
			delete(s.items, itemID)
		}
	}
	for pID, p := range s.participants {
		if p.BillID == id {
			delete(s.participants, pID)
		}
	}
	delete(s.bills, id)
	return true, nil
}

// --- participants ---

// Participants returns the participant view of the store.
func (s *Store) Participants() *ParticipantStore { return &ParticipantStore{s} }

// ParticipantStore adapts Store to storage.ParticipantStore.
type ParticipantStore struct{ s *Store }

func (ps *ParticipantStore) Create(ctx context.Context, p *models.Participant) error {
	ps.s.mu.Lock()
	defer ps.s.mu.Unlock()
	if p.ID == "" {
		p.ID = models.NewParticipantID()
	}
	stored := *p
	stored.Allocations = nil
	ps.s.participants[p.ID] = &stored
	return nil
}

func (ps *ParticipantStore) Get(ctx context.Context, id models.ParticipantID) (*models.Participant, error) {
	ps.s.mu.RLock()
	defer ps.s.mu.RUnlock()
	p, ok := ps.s.participants[id]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (ps *ParticipantStore) ListByBill(ctx context.Context, billID models.BillID) ([]*models.Participant, error) {
	ps.s.mu.RLock()
	defer ps.s.mu.RUnlock()
	var out []*models.Participant
	for _, p := range ps.s.participants {
		if p.BillID == billID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (ps *ParticipantStore) Update(ctx context.Context, p *models.Participant) error {
	ps.s.mu.Lock()
	defer ps.s.mu.Unlock()
	existing, ok := ps.s.participants[p.ID]
	if ok {
		// Preserve the derived total; Update only carries identity fields.
		p.TotalOwed = existing.TotalOwed
	}
	stored := *p
	stored.Allocations = nil
	ps.s.participants[p.ID] = &stored
	return nil
}

func (ps *ParticipantStore) SetTotalOwed(ctx context.Context, id models.ParticipantID, total float64) error {
	ps.s.mu.Lock()
	defer ps.s.mu.Unlock()
	if p, ok := ps.s.participants[id]; ok {
		p.TotalOwed = total
	}
	return nil
}

func (ps *ParticipantStore) Delete(ctx context.Context, id models.ParticipantID) (bool, error) {
	ps.s.mu.Lock()
	defer ps.s.mu.Unlock()
	if _, ok := ps.s.participants[id]; !ok {
		return false, nil
	}
	delete(ps.s.participants, id)
	return true, nil
}

// --- items ---

// Items returns the item view of the store.
func (s *Store) Items() *ItemStore { return &ItemStore{s} }

// ItemStore adapts Store to storage.ItemStore.
type ItemStore struct{ s *Store }

func (is *ItemStore) Create(ctx context.Context, item *models.Item) error {
	is.s.mu.Lock()
	defer is.s.mu.Unlock()
	is.createLocked(item)
	return nil
}

func (is *ItemStore) CreateMany(ctx context.Context, items []*models.Item) error {
	is.s.mu.Lock()
	defer is.s.mu.Unlock()
	for _, item := range items {
		is.createLocked(item)
	}
	return nil
}

func (is *ItemStore) createLocked(item *models.Item) {
	if item.ID == "" {
		item.ID = models.NewItemID()
	}
	stored := *item
	stored.Allocations = nil
	is.s.items[item.ID] = &stored
}

func (is *ItemStore) Get(ctx context.Context, id models.ItemID) (*models.Item, error) {
	is.s.mu.RLock()
	defer is.s.mu.RUnlock()
	item, ok := is.s.items[id]
	if !ok {
		return nil, nil
	}
	out := *item
	return &out, nil
}

func (is *ItemStore) ListByBill(ctx context.Context, billID models.BillID) ([]*models.Item, error) {
	is.s.mu.RLock()
	defer is.s.mu.RUnlock()
	var out []*models.Item
	for _, item := range is.s.items {
		if item.BillID == billID {
			cp := *item
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (is *ItemStore) Update(ctx context.Context, item *models.Item) error {
	is.s.mu.Lock()
	defer is.s.mu.Unlock()
	stored := *item
	stored.Allocations = nil
	is.s.items[item.ID] = &stored
	return nil
}

func (is *ItemStore) Delete(ctx context.Context, id models.ItemID) (bool, error) {
	is.s.mu.Lock()
	defer is.s.mu.Unlock()
	if _, ok := is.s.items[id]; !ok {
		return false, nil
	}
	delete(is.s.items, id)
	return true, nil
}

// --- allocations ---

// Allocations returns the allocation view of the store.
func (s *Store) Allocations() *AllocationStore { return &AllocationStore{s} }

// AllocationStore adapts Store to storage.AllocationStore.
type AllocationStore struct{ s *Store }

func (as *AllocationStore) Create(ctx context.Context, a *models.Allocation) error {
	as.s.mu.Lock()
	defer as.s.mu.Unlock()
	if a.ID == "" {
		a.ID = models.NewAllocationID()
	}
	stored := *a
	stored.Item, stored.Participant = nil, nil
	as.s.allocations[a.ID] = &stored
	return nil
}

func (as *AllocationStore) Get(ctx context.Context, id models.AllocationID) (*models.Allocation, error) {
	as.s.mu.RLock()
	defer as.s.mu.RUnlock()
	a, ok := as.s.allocations[id]
	if !ok {
		return nil, nil
	}
	out := *a
	return &out, nil
}

func (as *AllocationStore) ListByItem(ctx context.Context, itemID models.ItemID) ([]*models.Allocation, error) {
	return as.list(func(a *models.Allocation) bool { return a.ItemID == itemID })
}

func (as *AllocationStore) ListByParticipant(ctx context.Context, participantID models.ParticipantID) ([]*models.Allocation, error) {
	return as.list(func(a *models.Allocation) bool { return a.ParticipantID == participantID })
}

func (as *AllocationStore) ListByBill(ctx context.Context, billID models.BillID) ([]*models.Allocation, error) {
	return as.list(func(a *models.Allocation) bool { return a.BillID == billID })
}

func (as *AllocationStore) list(match func(*models.Allocation) bool) ([]*models.Allocation, error) {
	as.s.mu.RLock()
	defer as.s.mu.RUnlock()
	var out []*models.Allocation
	for _, a := range as.s.allocations {
		if match(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (as *AllocationStore) Update(ctx context.Context, a *models.Allocation) error {
	as.s.mu.Lock()
	defer as.s.mu.Unlock()
	stored := *a
	stored.Item, stored.Participant = nil, nil
	as.s.allocations[a.ID] = &stored
	return nil
}

func (as *AllocationStore) Delete(ctx context.Context, id models.AllocationID) (bool, error) {
	as.s.mu.Lock()
	defer as.s.mu.Unlock()
	if _, ok := as.s.allocations[id]; !ok {
		return false, nil
	}
	delete(as.s.allocations, id)
	return true, nil
}

func (as *AllocationStore) DeleteByItem(ctx context.Context, itemID models.ItemID) error {
	as.s.mu.Lock()
	defer as.s.mu.Unlock()
	for id, a := range as.s.allocations {
		if a.ItemID == itemID {
			delete(as.s.allocations, id)
		}
	}
	return nil
}

func (as *AllocationStore) DeleteByParticipant(ctx context.Context, participantID models.ParticipantID) error {
	as.s.mu.Lock()
	defer as.s.mu.Unlock()
	for id, a := range as.s.allocations {
		if a.ParticipantID == participantID {
			delete(as.s.allocations, id)
		}
	}
	return nil
}

// --- users ---

// Users returns the user view of the store.
func (s *Store) Users() *UserStore { return &UserStore{s} }

// UserStore adapts Store to storage.UserStore.
type UserStore struct{ s *Store }

func (us *UserStore) Create(ctx context.Context, u *models.User) error {
	us.s.mu.Lock()
	defer us.s.mu.Unlock()
	if u.ID == "" {
		u.ID = models.NewUserID()
	}
	stored := *u
	us.s.users[u.ID] = &stored
	return nil
}

func (us *UserStore) GetByID(ctx context.Context, id models.UserID) (*models.User, error) {
	us.s.mu.RLock()
	defer us.s.mu.RUnlock()
	u, ok := us.s.users[id]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (us *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	us.s.mu.RLock()
	defer us.s.mu.RUnlock()
	for _, u := range us.s.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}
