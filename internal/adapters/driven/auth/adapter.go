package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

var _ driven.AuthAdapter = (*Adapter)(nil)

const (
	// APIKeyPrefix marks keys issued by this service
	APIKeyPrefix = "sk-sercha-"

	tokenIssuer = "sercha-corpus"

	// displayed after the prefix so users can tell keys apart
	keyHintLen = 6
)

type claims struct {
	Email     string `json:"email"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Adapter signs HS256 session tokens and hashes passwords with bcrypt.
type Adapter struct {
	secret []byte
	cost   int
	parser *jwt.Parser
}

func NewAdapter(jwtSecret string) *Adapter {
	return NewAdapterWithCost(jwtSecret, bcrypt.DefaultCost)
}

// NewAdapterWithCost lets tests trade bcrypt strength for speed
func NewAdapterWithCost(jwtSecret string, bcryptCost int) *Adapter {
	return &Adapter{
		secret: []byte(jwtSecret),
		cost:   bcryptCost,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
			jwt.WithExpirationRequired(),
		),
	}
}

func (a *Adapter) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (a *Adapter) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken signs c. The user ID travels as the standard sub claim.
func (a *Adapter) GenerateToken(c *domain.TokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email:     c.Email,
		SessionID: c.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   c.UserID,
			IssuedAt:  jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)),
		},
	})
	return token.SignedString(a.secret)
}

// ParseToken returns ErrTokenExpired for a well-signed but stale token and
// ErrTokenInvalid for anything else it rejects.
func (a *Adapter) ParseToken(raw string) (*domain.TokenClaims, error) {
	var c claims
	_, err := a.parser.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, domain.ErrTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	case c.Subject == "" || c.SessionID == "":
		return nil, domain.ErrTokenInvalid
	}

	out := &domain.TokenClaims{
		UserID:    c.Subject,
		Email:     c.Email,
		SessionID: c.SessionID,
		ExpiresAt: c.ExpiresAt.Unix(),
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Unix()
	}
	return out, nil
}

// GenerateAPIKey returns the key and a hint that is safe to show again
// later. Only the hash of the key is kept.
func (a *Adapter) GenerateAPIKey() (string, string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", "", fmt.Errorf("generate api key: %w", err)
	}
	key := APIKeyPrefix + strings.ReplaceAll(id.String(), "-", "")
	return key, key[:len(APIKeyPrefix)+keyHintLen], nil
}

// HashAPIKey is a plain SHA-256: keys carry 122 random bits, so there is
// nothing for a slow hash to protect.
func (a *Adapter) HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
