package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

var _ driven.SessionStore = (*SessionStore)(nil)

// userIndexTTL bounds how long an idle user's session index survives
const userIndexTTL = 30 * 24 * time.Hour

// SessionStore implements driven.SessionStore using Redis.
//
// Each session is a JSON value whose TTL matches ExpiresAt, plus two lookup
// keys (access and refresh token) with the same TTL. A per-user sorted set
// scored by expiry lists the user's sessions; expired members are trimmed
// on every write and skipped on read.
type SessionStore struct {
	client *redis.Client
	keys   keyspace
}

// NewSessionStore creates a Redis-backed SessionStore under namespace
// (DefaultNamespace when empty).
func NewSessionStore(client *redis.Client, namespace string) *SessionStore {
	return &SessionStore{client: client, keys: newKeyspace(namespace)}
}

// Save stores a session. Sessions that already expired are not written.
func (s *SessionStore) Save(ctx context.Context, session *domain.Session) error {
	// Calculate TTL
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	// Serialize session
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	// Store session and lookup keys atomically
	userKey := s.keys.userSessions(session.UserID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keys.session(session.ID), data, ttl)
		pipe.Set(ctx, s.keys.sessionToken(session.Token), session.ID, ttl)
		if session.RefreshToken != "" {
			pipe.Set(ctx, s.keys.sessionRefresh(session.RefreshToken), session.ID, ttl)
		}

		// Index by user, dropping expired members
		pipe.ZAdd(ctx, userKey, redis.Z{Score: float64(session.ExpiresAt.Unix()), Member: session.ID})
		pipe.ZRemRangeByScore(ctx, userKey, "-inf", "("+strconv.FormatInt(time.Now().Unix(), 10))
		pipe.Expire(ctx, userKey, userIndexTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID
func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, s.keys.session(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	// Deserialize session
	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &session, nil
}

// GetByToken retrieves a session by access token
func (s *SessionStore) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	return s.resolve(ctx, s.keys.sessionToken(token))
}

// GetByRefreshToken retrieves a session by refresh token
func (s *SessionStore) GetByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if refreshToken == "" {
		return nil, domain.ErrSessionNotFound
	}
	return s.resolve(ctx, s.keys.sessionRefresh(refreshToken))
}

// resolve follows a lookup key to its session
func (s *SessionStore) resolve(ctx context.Context, lookupKey string) (*domain.Session, error) {
	id, err := s.client.Get(ctx, lookupKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete deletes a session. Deleting a missing session is not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	session, err := s.Get(ctx, id)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.remove(ctx, session)
}

// DeleteByToken deletes the session holding token
func (s *SessionStore) DeleteByToken(ctx context.Context, token string) error {
	session, err := s.GetByToken(ctx, token)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.remove(ctx, session)
}

// DeleteByUser deletes every session of a user
func (s *SessionStore) DeleteByUser(ctx context.Context, userID string) error {
	// Get all session IDs for user
	ids, err := s.client.ZRange(ctx, s.keys.userSessions(userID), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("list user sessions: %w", err)
	}

	// Delete each session
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			return err
		}
	}

	// Delete the user's session index
	return s.client.Del(ctx, s.keys.userSessions(userID)).Err()
}

// ListByUser lists the unexpired sessions of a user, soonest expiry first
func (s *SessionStore) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	userKey := s.keys.userSessions(userID)
	now := strconv.FormatInt(time.Now().Unix(), 10)

	// Only members scored at or after now are live
	ids, err := s.client.ZRangeByScore(ctx, userKey, &redis.ZRangeBy{Min: now, Max: "+inf"}).Result()
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}

	sessions := make([]*domain.Session, 0, len(ids))
	var gone []any
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		if errors.Is(err, domain.ErrSessionNotFound) {
			gone = append(gone, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if session.IsExpired() {
			continue
		}
		sessions = append(sessions, session)
	}

	// Clean up index entries whose session key already expired
	if len(gone) > 0 {
		s.client.ZRem(ctx, userKey, gone...)
	}
	return sessions, nil
}

func (s *SessionStore) remove(ctx context.Context, session *domain.Session) error {
	// Delete session and its lookup keys together
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.keys.session(session.ID), s.keys.sessionToken(session.Token))
		if session.RefreshToken != "" {
			pipe.Del(ctx, s.keys.sessionRefresh(session.RefreshToken))
		}
		pipe.ZRem(ctx, s.keys.userSessions(session.UserID), session.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
