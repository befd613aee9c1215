package driven

import (
	"context"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
)

// UserStore persists accounts. Emails are matched case-insensitively and
// are unique; a duplicate on Save returns ErrAlreadyExists. Missing users
// return ErrNotFound.
type UserStore interface {
	Save(ctx context.Context, user *domain.User) error
	Get(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByAPIKeyHash finds the owner of an external API key. Only the
	// SHA-256 of a key is ever stored.
	GetByAPIKeyHash(ctx context.Context, hash string) (*domain.User, error)

	Delete(ctx context.Context, id string) error

	// UpdateLastLogin stamps the current time; failures are not fatal to login
	UpdateLastLogin(ctx context.Context, id string) error
}
