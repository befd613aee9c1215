package mocks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

var _ driven.UserStore = (*MockUserStore)(nil)

// MockUserStore keeps copies of saved users so callers cannot mutate the
// stored record. Email matching is case-insensitive like the real store.
type MockUserStore struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func NewMockUserStore() *MockUserStore {
	return &MockUserStore{users: make(map[string]domain.User)}
}

func (m *MockUserStore) Save(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if id != user.ID && strings.EqualFold(u.Email, user.Email) {
			return domain.ErrAlreadyExists
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MockUserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.ID == id })
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *MockUserStore) GetByAPIKeyHash(ctx context.Context, hash string) (*domain.User, error) {
	if hash == "" {
		return nil, domain.ErrNotFound
	}
	return m.find(func(u *domain.User) bool { return u.APIKeyHash == hash })
}

func (m *MockUserStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *MockUserStore) UpdateLastLogin(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	now := time.Now()
	u.LastLoginAt = &now
	m.users[id] = u
	return nil
}

func (m *MockUserStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *MockUserStore) find(match func(*domain.User) bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(&u) {
			found := u
			return &found, nil
		}
	}
	return nil, domain.ErrNotFound
}
