package driving

import (
	"context"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
)

// AuthService turns credentials into an AuthContext. Browser clients log in
// for a JWT backed by a stored session; external callers present the
// per-user API key instead. Token problems surface as ErrTokenInvalid,
// ErrTokenExpired or ErrSessionNotFound; a bad API key is ErrUnauthorized.
type AuthService interface {
	Authenticate(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error)

	// ValidateToken checks the JWT signature and that its session still exists
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)
	ValidateAPIKey(ctx context.Context, apiKey string) (*domain.AuthContext, error)

	// RefreshToken rotates both tokens; the old refresh token stops working
	RefreshToken(ctx context.Context, req domain.RefreshRequest) (*domain.LoginResponse, error)

	Logout(ctx context.Context, token string) error
	LogoutAll(ctx context.Context, userID string) error

	// ListSessions returns the user's live sessions, flagging currentID
	ListSessions(ctx context.Context, userID, currentID string) ([]domain.SessionSummary, error)

	// ChangePassword requires the current password and ends all sessions
	ChangePassword(ctx context.Context, userID string, req domain.ChangePasswordRequest) error
}
