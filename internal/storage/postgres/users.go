package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/splittab/splittab/internal/models"
)

// UserStore implements storage.UserStore.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a user store over the given pool.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, name, email, password_hash, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = models.NewUserID()
	}
	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5)`
	_, err := s.db.ExecContext(ctx, query, u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id models.UserID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}
