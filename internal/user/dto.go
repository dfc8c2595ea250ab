package user

import "github.com/splittab/splittab/internal/models"

// RegisterRequest represents the request to create an account
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the request to authenticate
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the account and its session token
type AuthResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}
