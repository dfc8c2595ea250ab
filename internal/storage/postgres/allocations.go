package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/splittab/splittab/internal/models"
)

// AllocationStore implements storage.AllocationStore.
type AllocationStore struct {
	db *sql.DB
}

// NewAllocationStore creates an allocation store over the given pool.
func NewAllocationStore(db *sql.DB) *AllocationStore {
	return &AllocationStore{db: db}
}

const allocationColumns = `id, item_id, participant_id, bill_id, portion, amount, created_at`

func scanAllocation(row interface{ Scan(...any) error }) (*models.Allocation, error) {
	a := &models.Allocation{}
	err := row.Scan(&a.ID, &a.ItemID, &a.ParticipantID, &a.BillID, &a.Portion, &a.Amount, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AllocationStore) Create(ctx context.Context, a *models.Allocation) error {
	if a.ID == "" {
		a.ID = models.NewAllocationID()
	}
	query := `INSERT INTO allocations (` + allocationColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.ExecContext(ctx, query, a.ID, a.ItemID, a.ParticipantID, a.BillID, a.Portion, a.Amount, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create allocation: %w", err)
	}
	return nil
}

func (s *AllocationStore) Get(ctx context.Context, id models.AllocationID) (*models.Allocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM allocations WHERE id = $1`
	a, err := scanAllocation(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get allocation: %w", err)
	}
	return a, nil
}

func (s *AllocationStore) ListByItem(ctx context.Context, itemID models.ItemID) ([]*models.Allocation, error) {
	return s.list(ctx, `item_id`, string(itemID))
}

func (s *AllocationStore) ListByParticipant(ctx context.Context, participantID models.ParticipantID) ([]*models.Allocation, error) {
	return s.list(ctx, `participant_id`, string(participantID))
}

func (s *AllocationStore) ListByBill(ctx context.Context, billID models.BillID) ([]*models.Allocation, error) {
	return s.list(ctx, `bill_id`, string(billID))
}

func (s *AllocationStore) list(ctx context.Context, column, value string) ([]*models.Allocation, error) {
	query := `SELECT ` + allocationColumns + ` FROM allocations WHERE ` + column + ` = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, value)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	defer rows.Close()

	var allocations []*models.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

func (s *AllocationStore) Update(ctx context.Context, a *models.Allocation) error {
	query := `UPDATE allocations SET portion = $2, amount = $3 WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, a.ID, a.Portion, a.Amount)
	if err != nil {
		return fmt.Errorf("failed to update allocation: %w", err)
	}
	return nil
}

func (s *AllocationStore) Delete(ctx context.Context, id models.AllocationID) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM allocations WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete allocation: %w", err)
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

func (s *AllocationStore) DeleteByItem(ctx context.Context, itemID models.ItemID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM allocations WHERE item_id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete allocations by item: %w", err)
	}
	return nil
}

func (s *AllocationStore) DeleteByParticipant(ctx context.Context, participantID models.ParticipantID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM allocations WHERE participant_id = $1`, participantID)
	if err != nil {
		return fmt.Errorf("failed to delete allocations by participant: %w", err)
	}
	return nil
}
