package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven/mocks"
)

func newTestAuthService() (*mocks.MockUserStore, *mocks.MockSessionStore, *mocks.MockAuthAdapter, *authService) {
	userStore := mocks.NewMockUserStore()
	sessionStore := mocks.NewMockSessionStore()
	authAdapter := mocks.NewMockAuthAdapter()
	svc := NewAuthService(userStore, sessionStore, authAdapter, time.Hour).(*authService)
	return userStore, sessionStore, authAdapter, svc
}

func seedUser(t *testing.T, store *mocks.MockUserStore, id, email string, active bool) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:           id,
		Email:        email,
		PasswordHash: "password123", // Mock hasher uses plain text comparison
		Name:         "Test User",
		Active:       active,
		CreatedAt:    time.Now(),
	}
	if err := store.Save(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestNewAuthService_DefaultTTL(t *testing.T) {
	svc := NewAuthService(nil, nil, nil, 0).(*authService)
	if svc.tokenTTL != DefaultTokenTTL {
		t.Errorf("expected default TTL %v, got %v", DefaultTokenTTL, svc.tokenTTL)
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	userStore, _, _, svc := newTestAuthService()
	seedUser(t, userStore, "user-123", "test@example.com", true)

	tests := []struct {
		name    string
		req     domain.LoginRequest
		wantErr error
	}{
		{
			name:    "valid credentials",
			req:     domain.LoginRequest{Email: "test@example.com", Password: "password123"},
			wantErr: nil,
		},
		{
			name:    "email is case insensitive",
			req:     domain.LoginRequest{Email: "  Test@Example.COM ", Password: "password123"},
			wantErr: nil,
		},
		{
			name:    "empty email",
			req:     domain.LoginRequest{Email: "", Password: "password123"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "empty password",
			req:     domain.LoginRequest{Email: "test@example.com", Password: ""},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "wrong password",
			req:     domain.LoginRequest{Email: "test@example.com", Password: "wrongpassword"},
			wantErr: domain.ErrInvalidCredentials,
		},
		{
			name:    "unknown user",
			req:     domain.LoginRequest{Email: "unknown@example.com", Password: "password123"},
			wantErr: domain.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Authenticate(context.Background(), tt.req)

			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Token == "" {
				t.Error("expected token to be generated")
			}
			if resp.RefreshToken == "" {
				t.Error("expected refresh token to be generated")
			}
			if resp.User.Email != "test@example.com" {
				t.Errorf("expected user email test@example.com, got %s", resp.User.Email)
			}
			if until := time.Until(resp.ExpiresAt); until <= 0 || until > time.Hour {
				t.Errorf("expected expiry within the configured TTL, got %v", until)
			}
		})
	}
}

func TestAuthService_Authenticate_InactiveUser(t *testing.T) {
	userStore, _, _, svc := newTestAuthService()
	seedUser(t, userStore, "user-123", "inactive@example.com", false)

	_, err := svc.Authenticate(context.Background(), domain.LoginRequest{
		Email:    "inactive@example.com",
		Password: "password123",
	})

	if err != domain.ErrUnauthorized {
		t.Errorf("expected ErrUnauthorized for inactive user, got %v", err)
	}
}

func TestAuthService_SessionKeepsClientAcrossRefresh(t *testing.T) {
	ctx := context.Background()
	userStore, sessionStore, _, svc := newTestAuthService()
	seedUser(t, userStore, "user-123", "test@example.com", true)

	login, err := svc.Authenticate(ctx, domain.LoginRequest{
		Email:     "test@example.com",
		Password:  "password123",
		UserAgent: "curl/8.0",
		IPAddress: "203.0.113.7",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.RefreshToken(ctx, domain.RefreshRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	session, err := sessionStore.GetByToken(ctx, refreshed.Token)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if session.UserAgent != "curl/8.0" || session.IPAddress != "203.0.113.7" {
		t.Errorf("expected client details to carry over, got %q %q", session.UserAgent, session.IPAddress)
	}
}

func TestAuthService_ValidateToken(t *testing.T) {
	_, sessionStore, authAdapter, svc := newTestAuthService()

	tokenFor := func(sessionID string, expiresAt time.Time) string {
		token, _ := authAdapter.GenerateToken(&domain.TokenClaims{
			UserID:    "user-789",
			Email:     "valid@example.com",
			SessionID: sessionID,
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: expiresAt.Unix(),
		})
		return token
	}

	tests := []struct {
		name      string
		setupFunc func(ctx context.Context) string
		wantErr   error
	}{
		{
			name:      "empty token",
			setupFunc: func(ctx context.Context) string { return "" },
			wantErr:   domain.ErrTokenInvalid,
		},
		{
			name:      "malformed token",
			setupFunc: func(ctx context.Context) string { return "{not json" },
			wantErr:   domain.ErrTokenInvalid,
		},
		{
			name: "expired token",
			setupFunc: func(ctx context.Context) string {
				return tokenFor("session-old", time.Now().Add(-time.Hour))
			},
			wantErr: domain.ErrTokenExpired,
		},
		{
			name: "session not found",
			setupFunc: func(ctx context.Context) string {
				return tokenFor("non-existent-session", time.Now().Add(time.Hour))
			},
			wantErr: domain.ErrSessionNotFound,
		},
		{
			name: "session expired",
			setupFunc: func(ctx context.Context) string {
				token := tokenFor("session-expired", time.Now().Add(time.Hour))
				_ = sessionStore.Save(ctx, &domain.Session{
					ID:        "session-expired",
					UserID:    "user-789",
					Token:     token,
					ExpiresAt: time.Now().Add(-time.Minute),
					CreatedAt: time.Now().Add(-2 * time.Hour),
				})
				return token
			},
			wantErr: domain.ErrSessionNotFound,
		},
		{
			name: "valid session",
			setupFunc: func(ctx context.Context) string {
				token := tokenFor("session-valid", time.Now().Add(time.Hour))
				_ = sessionStore.Save(ctx, &domain.Session{
					ID:        "session-valid",
					UserID:    "user-789",
					Token:     token,
					ExpiresAt: time.Now().Add(time.Hour),
					CreatedAt: time.Now(),
				})
				return token
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			authCtx, err := svc.ValidateToken(ctx, tt.setupFunc(ctx))

			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if authCtx.OwnerID() != "user-789" {
				t.Errorf("expected owner 'user-789', got '%s'", authCtx.OwnerID())
			}
			if authCtx.SessionID != "session-valid" {
				t.Errorf("expected SessionID 'session-valid', got '%s'", authCtx.SessionID)
			}
			if authCtx.ViaAPIKey {
				t.Error("expected token auth context, got API key context")
			}
		})
	}
}

func TestAuthService_ValidateAPIKey(t *testing.T) {
	userStore, _, authAdapter, svc := newTestAuthService()
	ctx := context.Background()

	active := seedUser(t, userStore, "user-1", "active@example.com", true)
	active.APIKeyHash = authAdapter.HashAPIKey("sk-live-active")
	_ = userStore.Save(ctx, active)

	inactive := seedUser(t, userStore, "user-2", "inactive@example.com", false)
	inactive.APIKeyHash = authAdapter.HashAPIKey("sk-live-inactive")
	_ = userStore.Save(ctx, inactive)

	tests := []struct {
		name    string
		key     string
		wantErr error
		wantID  string
	}{
		{name: "valid key", key: "sk-live-active", wantID: "user-1"},
		{name: "surrounding whitespace", key: " sk-live-active\n", wantID: "user-1"},
		{name: "empty key", key: "", wantErr: domain.ErrUnauthorized},
		{name: "unknown key", key: "sk-live-unknown", wantErr: domain.ErrUnauthorized},
		{name: "inactive user", key: "sk-live-inactive", wantErr: domain.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authCtx, err := svc.ValidateAPIKey(ctx, tt.key)
			if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if authCtx.UserID != tt.wantID {
				t.Errorf("expected user %s, got %s", tt.wantID, authCtx.UserID)
			}
			if !authCtx.ViaAPIKey {
				t.Error("expected ViaAPIKey to be set")
			}
		})
	}
}

func TestAuthService_RefreshToken(t *testing.T) {
	userStore, sessionStore, _, svc := newTestAuthService()
	ctx := context.Background()
	seedUser(t, userStore, "user-123", "test@example.com", true)

	login, err := svc.Authenticate(ctx, domain.LoginRequest{Email: "test@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.RefreshToken(ctx, domain.RefreshRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("expected a new refresh token")
	}
	if sessionStore.Count() != 1 {
		t.Errorf("expected the old session to be replaced, have %d sessions", sessionStore.Count())
	}

	// Refresh tokens are single use
	if _, err := svc.RefreshToken(ctx, domain.RefreshRequest{RefreshToken: login.RefreshToken}); err != domain.ErrTokenInvalid {
		t.Errorf("expected ErrTokenInvalid on reuse, got %v", err)
	}
	if _, err := svc.RefreshToken(ctx, domain.RefreshRequest{}); err != domain.ErrTokenInvalid {
		t.Errorf("expected ErrTokenInvalid for empty token, got %v", err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	userStore, _, _, svc := newTestAuthService()
	ctx := context.Background()
	seedUser(t, userStore, "user-123", "test@example.com", true)

	login, err := svc.Authenticate(ctx, domain.LoginRequest{Email: "test@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.ValidateToken(ctx, login.Token); err != nil {
		t.Fatalf("token should be valid before logout: %v", err)
	}

	if err := svc.Logout(ctx, login.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.ValidateToken(ctx, login.Token); err != domain.ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound after logout, got %v", err)
	}

	// Garbage and empty tokens are ignored
	if err := svc.Logout(ctx, ""); err != nil {
		t.Errorf("expected nil for empty token, got %v", err)
	}
	if err := svc.Logout(ctx, "garbage!"); err != nil {
		t.Errorf("expected nil for invalid token, got %v", err)
	}
}

func TestAuthService_LogoutAll(t *testing.T) {
	userStore, sessionStore, _, svc := newTestAuthService()
	ctx := context.Background()
	seedUser(t, userStore, "user-123", "test@example.com", true)

	for i := 0; i < 3; i++ {
		if _, err := svc.Authenticate(ctx, domain.LoginRequest{Email: "test@example.com", Password: "password123"}); err != nil {
			t.Fatalf("login: %v", err)
		}
	}
	if sessionStore.Count() != 3 {
		t.Fatalf("expected 3 sessions, got %d", sessionStore.Count())
	}

	if err := svc.LogoutAll(ctx, "user-123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sessionStore.Count() != 0 {
		t.Errorf("expected no sessions, got %d", sessionStore.Count())
	}
}

func TestAuthService_ListSessions(t *testing.T) {
	userStore, _, authAdapter, svc := newTestAuthService()
	ctx := context.Background()
	seedUser(t, userStore, "user-123", "test@example.com", true)
	seedUser(t, userStore, "user-456", "other@example.com", true)

	first, _ := svc.Authenticate(ctx, domain.LoginRequest{Email: "test@example.com", Password: "password123", UserAgent: "firefox"})
	_, _ = svc.Authenticate(ctx, domain.LoginRequest{Email: "test@example.com", Password: "password123", UserAgent: "curl"})
	_, _ = svc.Authenticate(ctx, domain.LoginRequest{Email: "other@example.com", Password: "password123"})

	claims, err := authAdapter.ParseToken(first.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	sessions, err := svc.ListSessions(ctx, "user-123", claims.SessionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	current := 0
	for _, s := range sessions {
		if s.Current {
			current++
			if s.UserAgent != "firefox" {
				t.Errorf("expected the firefox session to be current, got %q", s.UserAgent)
			}
		}
	}
	if current != 1 {
		t.Errorf("expected exactly one current session, got %d", current)
	}
}

func TestAuthService_ChangePassword(t *testing.T) {
	tests := []struct {
		name    string
		req     domain.ChangePasswordRequest
		wantErr error
	}{
		{
			name: "success",
			req:  domain.ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "new-password"},
		},
		{
			name:    "missing current password",
			req:     domain.ChangePasswordRequest{NewPassword: "new-password"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "new password too short",
			req:     domain.ChangePasswordRequest{CurrentPassword: "password123", NewPassword: "short"},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "wrong current password",
			req:     domain.ChangePasswordRequest{CurrentPassword: "nope-nope", NewPassword: "new-password"},
			wantErr: domain.ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userStore, sessionStore, _, svc := newTestAuthService()
			ctx := context.Background()
			seedUser(t, userStore, "user-123", "test@example.com", true)
			if _, err := svc.Authenticate(ctx, domain.LoginRequest{Email: "test@example.com", Password: "password123"}); err != nil {
				t.Fatalf("login: %v", err)
			}

			err := svc.ChangePassword(ctx, "user-123", tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			user, _ := userStore.Get(ctx, "user-123")
			if user.PasswordHash != tt.req.NewPassword {
				t.Error("expected password hash to be updated")
			}
			if sessionStore.Count() != 0 {
				t.Errorf("expected sessions to be revoked, have %d", sessionStore.Count())
			}
		})
	}
}
