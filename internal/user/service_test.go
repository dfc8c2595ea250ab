package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/splittab/splittab/internal/auth"
	"github.com/splittab/splittab/internal/storage/memory"
)

func newService() *Service {
	store := memory.New()
	jwt := auth.NewJWTManager("test-secret", time.Hour)
	return NewService(store.Users(), jwt)
}

func TestRegisterAndLogin(t *testing.T) {
	s := newService()
	ctx := context.Background()

	u, token, err := s.Register(ctx, &RegisterRequest{
		Name:     "Dana",
		Email:    "Dana@Example.com",
		Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if token == "" {
		t.Error("expected a session token")
	}
	if u.Email != "dana@example.com" {
		t.Errorf("email = %q, want lowercased dana@example.com", u.Email)
	}
	if u.PasswordHash == "hunter22" {
		t.Error("password stored in plaintext")
	}

	// Login with a differently-cased email.
	logged, token, err := s.Login(ctx, &LoginRequest{Email: "DANA@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Error("expected a session token")
	}
	if logged.ID != u.ID {
		t.Errorf("logged in as %v, want %v", logged.ID, u.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newService()
	ctx := context.Background()

	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"missing name", RegisterRequest{Email: "dana@example.com", Password: "hunter22"}},
		{"bad email", RegisterRequest{Name: "Dana", Email: "nope", Password: "hunter22"}},
		{"short password", RegisterRequest{Name: "Dana", Email: "dana@example.com", Password: "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := s.Register(ctx, &tt.req); !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newService()
	ctx := context.Background()

	req := &RegisterRequest{Name: "Dana", Email: "dana@example.com", Password: "hunter22"}
	if _, _, err := s.Register(ctx, req); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, _, err := s.Register(ctx, req); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("err = %v, want ErrEmailTaken", err)
	}
}

func TestLoginFailures(t *testing.T) {
	s := newService()
	ctx := context.Background()

	if _, _, err := s.Register(ctx, &RegisterRequest{Name: "Dana", Email: "dana@example.com", Password: "hunter22"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Unknown email and wrong password return the same error.
	if _, _, err := s.Login(ctx, &LoginRequest{Email: "nobody@example.com", Password: "hunter22"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := s.Login(ctx, &LoginRequest{Email: "dana@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v, want ErrInvalidCredentials", err)
	}
}

func TestGet(t *testing.T) {
	s := newService()
	ctx := context.Background()

	u, _, err := s.Register(ctx, &RegisterRequest{Name: "Dana", Email: "dana@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, err := s.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Dana" {
		t.Errorf("name = %q, want Dana", got.Name)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}
