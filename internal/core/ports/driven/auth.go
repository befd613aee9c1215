package driven

import "github.com/custodia-labs/sercha-corpus/internal/core/domain"

// AuthAdapter holds the credential cryptography. It is stateless; sessions
// live in SessionStore.
type AuthAdapter interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) bool

	GenerateToken(claims *domain.TokenClaims) (string, error)
	// ParseToken fails with ErrTokenExpired or ErrTokenInvalid
	ParseToken(token string) (*domain.TokenClaims, error)

	// GenerateAPIKey returns a new key and a short hint of it for display
	GenerateAPIKey() (key string, hint string, err error)
	// HashAPIKey is deterministic so keys can be looked up by hash
	HashAPIKey(key string) string
}
