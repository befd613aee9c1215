package driven

import (
	"context"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
)

// SessionStore keeps login sessions. A session is found by its ID (carried
// in the JWT), its access token, or its refresh token. Lookups of an
// expired session return ErrSessionNotFound.
type SessionStore interface {
	// Save creates or replaces a session; it lives until ExpiresAt
	Save(ctx context.Context, session *domain.Session) error

	Get(ctx context.Context, id string) (*domain.Session, error)
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error)

	// Delete and DeleteByToken succeed when no session matches
	Delete(ctx context.Context, id string) error
	DeleteByToken(ctx context.Context, token string) error

	// DeleteByUser ends every session of a user, as after a password change
	DeleteByUser(ctx context.Context, userID string) error

	// ListByUser returns the user's unexpired sessions
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
}
