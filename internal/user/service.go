// Package user implements account registration and login on top of the
// auth package's bcrypt hashing and JWT issuance.
package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/splittab/splittab/internal/auth"
	"github.com/splittab/splittab/internal/models"
	"github.com/splittab/splittab/internal/storage"
)

// Common errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrValidation         = errors.New("validation failed")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 6

// Service handles account registration, login and profile reads.
type Service struct {
	users storage.UserStore
	jwt   *auth.JWTManager
}

// NewService creates a user service with its dependencies injected.
func NewService(users storage.UserStore, jwt *auth.JWTManager) *Service {
	return &Service{users: users, jwt: jwt}
}

// Register creates an account and returns it with a fresh session token.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*models.User, string, error) {
	if errs := validateRegister(req); len(errs) > 0 {
		return nil, "", fmt.Errorf("%w: %s", ErrValidation, strings.Join(errs, ", "))
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return nil, "", ErrEmailTaken
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}

	u := &models.User{
		ID:           models.NewUserID(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, "", err
	}

	token, err := s.jwt.Generate(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login verifies the credentials and returns the account with a fresh
// session token. Unknown email and wrong password are indistinguishable to
// the caller.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*models.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if u == nil {
		return nil, "", ErrInvalidCredentials
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwt.Generate(u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Get returns the account by ID.
func (s *Service) Get(ctx context.Context, id models.UserID) (*models.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func validateRegister(req *RegisterRequest) []string {
	var errs []string
	if strings.TrimSpace(req.Name) == "" {
		errs = append(errs, "name is required")
	}
	if !emailPattern.MatchString(strings.TrimSpace(req.Email)) {
		errs = append(errs, "email must be a valid email address")
	}
	if len(req.Password) < minPasswordLength {
		errs = append(errs, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	return errs
}
