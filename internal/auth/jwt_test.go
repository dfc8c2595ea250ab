package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/splittab/splittab/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	u := &models.User{ID: models.NewUserID(), Email: "dana@example.com"}

	token, err := m.Generate(u)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	got, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != u.ID {
		t.Errorf("userID = %v, want %v", got, u.ID)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTManager("secret-a", time.Hour)
	verifier := NewJWTManager("secret-b", time.Hour)

	token, err := issuer.Generate(&models.User{ID: models.NewUserID()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := NewJWTManager("secret", -time.Minute)

	token, err := m.Generate(&models.User{ID: models.NewUserID()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	if _, err := m.Verify("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, "hunter22") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}
