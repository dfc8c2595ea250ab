package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/splittab/splittab/internal/models"
)

// ParticipantStore implements storage.ParticipantStore.
type ParticipantStore struct {
	db *sql.DB
}

// NewParticipantStore creates a participant store over the given pool.
func NewParticipantStore(db *sql.DB) *ParticipantStore {
	return &ParticipantStore{db: db}
}

const participantColumns = `id, bill_id, name, email, total_owed, created_at`

func scanParticipant(row interface{ Scan(...any) error }) (*models.Participant, error) {
	p := &models.Participant{}
	err := row.Scan(&p.ID, &p.BillID, &p.Name, &p.Email, &p.TotalOwed, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ParticipantStore) Create(ctx context.Context, p *models.Participant) error {
	if p.ID == "" {
		p.ID = models.NewParticipantID()
	}
	query := `INSERT INTO participants (` + participantColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.db.ExecContext(ctx, query, p.ID, p.BillID, p.Name, p.Email, p.TotalOwed, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

func (s *ParticipantStore) Get(ctx context.Context, id models.ParticipantID) (*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE id = $1`
	p, err := scanParticipant(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

func (s *ParticipantStore) ListByBill(ctx context.Context, billID models.BillID) ([]*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE bill_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// Update writes identity fields only. The derived total_owed is deliberately
// excluded; it belongs to SetTotalOwed.
func (s *ParticipantStore) Update(ctx context.Context, p *models.Participant) error {
	query := `UPDATE participants SET name = $2, email = $3 WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.Email)
	if err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	return nil
}

func (s *ParticipantStore) SetTotalOwed(ctx context.Context, id models.ParticipantID, total float64) error {
	query := `UPDATE participants SET total_owed = $2 WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, id, total)
	if err != nil {
		return fmt.Errorf("failed to set total owed: %w", err)
	}
	return nil
}

func (s *ParticipantStore) Delete(ctx context.Context, id models.ParticipantID) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete participant: %w", err)
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}
