package mocks

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

var _ driven.AuthAdapter = (*MockAuthAdapter)(nil)

// MockAuthAdapter stores passwords as-is and tokens as URL-escaped JSON,
// so tests can build and read both by hand. API keys count up from
// sk-test-1.
type MockAuthAdapter struct {
	issued atomic.Int64
}

func NewMockAuthAdapter() *MockAuthAdapter {
	return &MockAuthAdapter{}
}

func (m *MockAuthAdapter) HashPassword(password string) (string, error) {
	return password, nil
}

func (m *MockAuthAdapter) VerifyPassword(password, hash string) bool {
	return password == hash
}

func (m *MockAuthAdapter) GenerateToken(claims *domain.TokenClaims) (string, error) {
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(string(raw)), nil
}

// ParseToken does not check expiry; the service does
func (m *MockAuthAdapter) ParseToken(token string) (*domain.TokenClaims, error) {
	raw, err := url.QueryUnescape(token)
	if err != nil {
		return nil, domain.ErrTokenInvalid
	}
	var claims domain.TokenClaims
	if json.Unmarshal([]byte(raw), &claims) != nil {
		return nil, domain.ErrTokenInvalid
	}
	return &claims, nil
}

func (m *MockAuthAdapter) GenerateAPIKey() (string, string, error) {
	key := fmt.Sprintf("sk-test-%d", m.issued.Add(1))
	return key, key, nil
}

func (m *MockAuthAdapter) HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
