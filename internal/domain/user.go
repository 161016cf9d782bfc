package domain

import "time"

// User represents a registered account.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	PushToken    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Author is the public projection of a user attached to posts and comments.
// PushToken is carried for notification routing and is never serialised.
type Author struct {
	ID        string
	Username  string
	Email     string
	PushToken string
}

// Principal identifies the caller of an authenticated request.
type Principal struct {
	UserID   string
	Username string
	Email    string
}
