package user

import (
	"errors"
	"time"
)

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	// nil for accounts created through an external identity provider;
	// such accounts cannot log in with a password.
	PasswordHash *string   `json:"-"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("user not found")
