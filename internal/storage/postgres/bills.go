package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/splittab/splittab/internal/models"
)

// BillStore implements storage.BillStore.
type BillStore struct {
	db *sql.DB
}

// NewBillStore creates a bill store over the given pool.
func NewBillStore(db *sql.DB) *BillStore {
	return &BillStore{db: db}
}

const billColumns = `id, owner_id, title, description, image_url, subtotal, tax_amount, service_charge_amount, total_amount, ocr_data, created_at, updated_at`

func scanBill(row interface{ Scan(...any) error }) (*models.Bill, error) {
	bill := &models.Bill{}
	var ocr []byte
	err := row.Scan(
		&bill.ID,
		&bill.OwnerID,
		&bill.Title,
		&bill.Description,
		&bill.ImageURL,
		&bill.Subtotal,
		&bill.TaxAmount,
		&bill.ServiceChargeAmount,
		&bill.TotalAmount,
		&ocr,
		&bill.CreatedAt,
		&bill.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	bill.OCRData = ocr
	return bill, nil
}

func (s *BillStore) Create(ctx context.Context, bill *models.Bill) error {
	if bill.ID == "" {
		bill.ID = models.NewBillID()
	}
	query := `
		INSERT INTO bills (` + billColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		bill.ID, bill.OwnerID, bill.Title, bill.Description, bill.ImageURL,
		bill.Subtotal, bill.TaxAmount, bill.ServiceChargeAmount, bill.TotalAmount,
		[]byte(bill.OCRData), bill.CreatedAt, bill.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}
	return nil
}

func (s *BillStore) Get(ctx context.Context, id models.BillID) (*models.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE id = $1`
	bill, err := scanBill(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return bill, nil
}

func (s *BillStore) GetForOwner(ctx context.Context, id models.BillID, owner models.UserID) (*models.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE id = $1 AND owner_id = $2`
	bill, err := scanBill(s.db.QueryRowContext(ctx, query, id, owner))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return bill, nil
}

func (s *BillStore) ListByOwner(ctx context.Context, owner models.UserID) ([]*models.Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE owner_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var bills []*models.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		bills = append(bills, bill)
	}
	return bills, rows.Err()
}

func (s *BillStore) Update(ctx context.Context, bill *models.Bill) error {
	query := `
		UPDATE bills
		SET title = $2, description = $3, image_url = $4, subtotal = $5,
		    tax_amount = $6, service_charge_amount = $7, total_amount = $8,
		    ocr_data = $9, updated_at = $10
		WHERE id = $1
	`
	_, err := s.db.ExecContext(ctx, query,
		bill.ID, bill.Title, bill.Description, bill.ImageURL,
		bill.Subtotal, bill.TaxAmount, bill.ServiceChargeAmount, bill.TotalAmount,
		[]byte(bill.OCRData), bill.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update bill: %w", err)
	}
	return nil
}

// DeleteCascade removes the bill's allocations, items and participants, then
// the bill row, inside one transaction. The owner check and the delete are
// serialized by locking the bill row first, so there is no window between
// authorization and removal.
func (s *BillStore) DeleteCascade(ctx context.Context, id models.BillID, owner models.UserID) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var found bool
	err = tx.QueryRowContext(ctx,
		`SELECT true FROM bills WHERE id = $1 AND owner_id = $2 FOR UPDATE`, id, owner,
	).Scan(&found)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to lock bill: %w", err)
	}

	for _, stmt := range []string{
		`DELETE FROM allocations WHERE bill_id = $1`,
		`DELETE FROM items WHERE bill_id = $1`,
		`DELETE FROM participants WHERE bill_id = $1`,
		`DELETE FROM bills WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return false, fmt.Errorf("failed to cascade bill delete: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit bill delete: %w", err)
	}
	return true, nil
}
