package domain

import "time"

// User is an account holder. The user ID is the owner of a corpus.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never serialize
	Name         string     `json:"name"`
	APIKeyHash   string     `json:"-"`
	APIKeyPrefix string     `json:"api_key_prefix,omitempty"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// UserSummary provides a safe view of user data (no secrets)
type UserSummary struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	APIKeyPrefix string     `json:"api_key_prefix,omitempty"`
	Active       bool       `json:"active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// ToSummary converts a User to UserSummary
func (u *User) ToSummary() *UserSummary {
	return &UserSummary{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		APIKeyPrefix: u.APIKeyPrefix,
		Active:       u.Active,
		LastLoginAt:  u.LastLoginAt,
	}
}

// RegisterRequest creates a new account
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// RegisterResponse carries the new account and its API key.
// The plaintext key is only ever returned here and on rotation.
type RegisterResponse struct {
	User   *UserSummary `json:"user"`
	APIKey string       `json:"api_key"`
}

// APIKeyResponse is returned when an API key is rotated
type APIKeyResponse struct {
	APIKey string `json:"api_key"`
}
