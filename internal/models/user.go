package models

import "github.com/google/uuid"

// User is an account. Guests are ephemeral users with no password.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Password string    `json:"password,omitempty"`
	Username string    `json:"username"`

	IsEphemeral bool `json:"is_ephemeral"`
	IsAdmin     bool `json:"is_admin"`

	Elo int `json:"elo"`
}
