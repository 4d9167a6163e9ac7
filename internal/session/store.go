// Package session implements the server-side session store mapping opaque
// tokens to authenticated user IDs.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chirper/internal/observability"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long an issued session stays valid without renewal.
const DefaultTTL = 7 * 24 * time.Hour

// ErrNotFound is returned when a token does not resolve to a session.
var ErrNotFound = errors.New("session: not found")

// Store issues and resolves opaque session tokens. The token is the only
// thing the client holds; the user ID lives server-side.
type Store interface {
	// Create issues a new token for the given user ID.
	Create(ctx context.Context, userID uint) (string, error)
	// Resolve returns the user ID for a token, or ErrNotFound.
	Resolve(ctx context.Context, token string) (uint, error)
	// Destroy invalidates a token. Destroying an unknown token is not an error.
	Destroy(ctx context.Context, token string) error
}

// redisStore keeps sessions in Redis under session:<token> with a TTL.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore returns a Store backed by the given Redis client.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &redisStore{client: client, ttl: ttl}
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

func (s *redisStore) Create(ctx context.Context, userID uint) (string, error) {
	token := uuid.New().String()
	if err := s.client.Set(ctx, sessionKey(token), userID, s.ttl).Err(); err != nil {
		return "", err
	}
	observability.SessionsActive.Inc()
	return token, nil
}

func (s *redisStore) Resolve(ctx context.Context, token string) (uint, error) {
	if token == "" {
		return 0, ErrNotFound
	}
	id, err := s.client.Get(ctx, sessionKey(token)).Uint64()
	if err == redis.Nil {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func (s *redisStore) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	deleted, err := s.client.Del(ctx, sessionKey(token)).Result()
	if err != nil {
		return err
	}
	if deleted > 0 {
		observability.SessionsActive.Dec()
	}
	return nil
}

// memoryStore is the in-process fallback used in tests and when Redis is
// unavailable. Sessions do not survive a restart.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]memorySession
	ttl      time.Duration
}

type memorySession struct {
	userID    uint
	expiresAt time.Time
}

// NewMemoryStore returns an in-memory Store.
func NewMemoryStore(ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &memoryStore{
		sessions: make(map[string]memorySession),
		ttl:      ttl,
	}
}

func (s *memoryStore) Create(_ context.Context, userID uint) (string, error) {
	token := uuid.New().String()
	s.mu.Lock()
	s.sessions[token] = memorySession{userID: userID, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	observability.SessionsActive.Inc()
	return token, nil
}

func (s *memoryStore) Resolve(_ context.Context, token string) (uint, error) {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return 0, ErrNotFound
	}
	if time.Now().After(sess.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return 0, ErrNotFound
	}
	return sess.userID, nil
}

func (s *memoryStore) Destroy(_ context.Context, token string) error {
	s.mu.Lock()
	if _, ok := s.sessions[token]; ok {
		delete(s.sessions, token)
		observability.SessionsActive.Dec()
	}
	s.mu.Unlock()
	return nil
}
