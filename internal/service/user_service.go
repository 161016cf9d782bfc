package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"postboard/internal/domain"
	"postboard/internal/notify"
	"postboard/internal/repository"
)

var (
	// ErrInvalidCredentials is returned for both unknown emails and wrong passwords.
	ErrInvalidCredentials = domain.NewError(domain.ErrUnauthorized, "Invalid email or password")
	// ErrEmailInUse is returned when registering with an email that already exists.
	ErrEmailInUse = domain.NewError(domain.ErrConflict, "Email already in use")
	// ErrUsernameTaken is returned when registering with a username that already exists.
	ErrUsernameTaken = domain.NewError(domain.ErrConflict, "Username already taken")
	// ErrUserNotFound is returned when an authenticated user no longer exists.
	ErrUserNotFound = domain.NewError(domain.ErrNotFound, "User not found")
)

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

// AuthResult is returned by a successful register or login.
type AuthResult struct {
	Token string
	User  *domain.User
}

// UserService describes account lifecycle operations.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Me(ctx context.Context, userID string) (*domain.User, error)
	UpdatePushToken(ctx context.Context, userID, token string) error
}

type userService struct {
	users    repository.UserRepository
	tokens   TokenIssuer
	hashCost int
}

func NewUserService(users repository.UserRepository, tokens TokenIssuer) UserService {
	return &userService{
		users:    users,
		tokens:   tokens,
		hashCost: bcrypt.DefaultCost,
	}
}

type registerInput struct {
	Username string `json:"username" validate:"required,min=3,max=30,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,passwordbytes"`
}

var registerMessages = fieldMessages{
	"username.required":      "Username is required",
	"username.min":           "Username must be 3-30 characters",
	"username.max":           "Username must be 3-30 characters",
	"username.username":      "Username may only contain letters, numbers and underscores",
	"email.required":         "Email is required",
	"email.email":            "Must be a valid email address",
	"password.required":      "Password is required",
	"password.min":           "Password must be at least 6 characters",
	"password.passwordbytes": "Password must not exceed 72 bytes",
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,passwordbytes"`
}

func (s *userService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	in := registerInput{
		Username: strings.TrimSpace(username),
		Email:    normalizeEmail(email),
		Password: password,
	}
	if err := validateInput(in, registerMessages); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if _, err := s.users.GetByUsername(ctx, in.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate user id: %w", err)
	}
	now := time.Now().UTC()
	user := &domain.User{
		ID:           id.String(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, ErrEmailInUse
		case errors.Is(err, repository.ErrDuplicateUsername):
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	return s.authResult(user)
}

func (s *userService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	in := loginInput{Email: normalizeEmail(email), Password: password}
	if err := validateInput(in, registerMessages); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.authResult(user)
}

func (s *userService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) UpdatePushToken(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.NewValidationError("pushToken", "pushToken is required")
	}
	if !notify.IsExpoPushToken(token) {
		return domain.NewValidationError("pushToken", fmt.Sprintf("Push token %s is not a valid Expo push token", token))
	}

	if err := s.users.UpdatePushToken(ctx, userID, token); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *userService) authResult(user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: sanitizeUser(user)}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		PushToken: user.PushToken,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
