package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/splittab/splittab/internal/models"
)

// ItemStore implements storage.ItemStore.
type ItemStore struct {
	db *sql.DB
}

// NewItemStore creates an item store over the given pool.
func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

const itemColumns = `id, bill_id, name, price, quantity, created_at`

func scanItem(row interface{ Scan(...any) error }) (*models.Item, error) {
	item := &models.Item{}
	err := row.Scan(&item.ID, &item.BillID, &item.Name, &item.Price, &item.Quantity, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ItemStore) Create(ctx context.Context, item *models.Item) error {
	if item.ID == "" {
		item.ID = models.NewItemID()
	}
	query := `INSERT INTO items (` + itemColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.db.ExecContext(ctx, query, item.ID, item.BillID, item.Name, item.Price, item.Quantity, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

// CreateMany inserts a batch of items in one transaction, used by OCR
// imports so a partial batch never lands.
func (s *ItemStore) CreateMany(ctx context.Context, items []*models.Item) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO items (` + itemColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	for _, item := range items {
		if item.ID == "" {
			item.ID = models.NewItemID()
		}
		if _, err := tx.ExecContext(ctx, query, item.ID, item.BillID, item.Name, item.Price, item.Quantity, item.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit items: %w", err)
	}
	return nil
}

func (s *ItemStore) Get(ctx context.Context, id models.ItemID) (*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	item, err := scanItem(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

func (s *ItemStore) ListByBill(ctx context.Context, billID models.BillID) ([]*models.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE bill_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, billID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *ItemStore) Update(ctx context.Context, item *models.Item) error {
	query := `UPDATE items SET name = $2, price = $3, quantity = $4 WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, item.ID, item.Name, item.Price, item.Quantity)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return nil
}

func (s *ItemStore) Delete(ctx context.Context, id models.ItemID) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete item: %w", err)
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}
