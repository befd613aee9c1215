package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driving"
)

// Ensure userService implements UserService
var _ driving.UserService = (*userService)(nil)

// MinPasswordLength is the shortest password accepted at registration
const MinPasswordLength = 8

// userService implements the UserService interface
type userService struct {
	userStore   driven.UserStore
	authAdapter driven.AuthAdapter
}

// NewUserService creates a new UserService
func NewUserService(userStore driven.UserStore, authAdapter driven.AuthAdapter) driving.UserService {
	return &userService{
		userStore:   userStore,
		authAdapter: authAdapter,
	}
}

// Register creates an account. The new user ID becomes the owner of an
// empty corpus, and the plaintext API key is returned only here.
func (s *userService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.RegisterResponse, error) {
	email := normaliseEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if err := validateRegistration(email, req.Password, name); err != nil {
		return nil, err
	}

	if existing, err := s.userStore.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, domain.ErrAlreadyExists
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	passwordHash, err := s.authAdapter.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	key, prefix, err := s.authAdapter.GenerateAPIKey()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &domain.User{
		ID:           domain.GenerateID(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		APIKeyHash:   s.authAdapter.HashAPIKey(key),
		APIKeyPrefix: prefix,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userStore.Save(ctx, user); err != nil {
		return nil, err
	}

	return &domain.RegisterResponse{User: user.ToSummary(), APIKey: key}, nil
}

func validateRegistration(email, password, name string) error {
	if email == "" || password == "" || name == "" {
		return domain.Invalid("email, password and name are required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return domain.Invalid("email %q is not a valid address", email)
	}
	if len(password) < MinPasswordLength {
		return domain.Invalid("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

// Get retrieves a user by ID
func (s *userService) Get(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, domain.ErrNotFound
	}
	return s.userStore.Get(ctx, id)
}

// RotateAPIKey issues a new API key; the previous one stops working at once
func (s *userService) RotateAPIKey(ctx context.Context, userID string) (*domain.APIKeyResponse, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	key, prefix, err := s.authAdapter.GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	user.APIKeyHash = s.authAdapter.HashAPIKey(key)
	user.APIKeyPrefix = prefix
	user.UpdatedAt = time.Now()

	if err := s.userStore.Save(ctx, user); err != nil {
		return nil, err
	}
	return &domain.APIKeyResponse{APIKey: key}, nil
}
