package driving

import (
	"context"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
)

// UserService manages accounts. Every account owns exactly one corpus.
type UserService interface {
	// Register creates an account and issues its first API key
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.RegisterResponse, error)

	// Get retrieves a user by ID
	Get(ctx context.Context, id string) (*domain.User, error)

	// RotateAPIKey replaces the user's API key and returns the new plaintext key
	RotateAPIKey(ctx context.Context, userID string) (*domain.APIKeyResponse, error)
}
