package repository

import (
	"context"
	"fmt"

	"postboard/internal/domain"
)

// UserRepository defines persistence operations for User entities.
// Lookups return an error wrapping domain.ErrNotFound when no user matches,
// and Create returns one wrapping domain.ErrConflict on a duplicate username or email.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetByUsername matches exactly but ignoring case; usernames are unique under that rule.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdatePushToken(ctx context.Context, id, token string) error
}

var (
	// ErrDuplicateEmail is returned by Create when the email is already registered.
	ErrDuplicateEmail = fmt.Errorf("email already exists: %w", domain.ErrConflict)
	// ErrDuplicateUsername is returned by Create when the username is already registered.
	ErrDuplicateUsername = fmt.Errorf("username already exists: %w", domain.ErrConflict)
)
