package models

import "time"

// User is an account that owns bills. The password hash never leaves the
// server.
type User struct {
	ID           UserID    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
