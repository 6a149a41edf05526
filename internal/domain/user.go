package domain

import "time"

// User is a registered account. PasswordHash never leaves the service.
type User struct {
	ID           int64
	Name         string
	Username     string
	Email        string
	Tel          string
	PasswordHash string
	Staff        bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the resolved caller of a request, produced by the auth
// guard from a session token and passed explicitly into handlers.
type Identity struct {
	UserID   int64
	Username string
	Staff    bool
}
