package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/cache"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/domain"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/observability"
)

const sessionKeyPrefix = "session"

// Store persists contexts in a cache.Client. Every save renews the TTL, so a
// session expires after TTL of inactivity.
type Store struct {
	client cache.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewStore creates a session store.
func NewStore(client cache.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{client: client, ttl: ttl, now: time.Now}
}

// TTL returns the inactivity window.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Load returns the stored context or a fresh one when none exists.
func (s *Store) Load(ctx context.Context, sessionID string) (*Context, error) {
	data, err := s.client.Get(ctx, cache.Key(sessionKeyPrefix, sessionID))
	if errors.Is(err, cache.ErrCacheMiss) {
		return New(sessionID, s.now()), nil
	}
	if err != nil {
		return nil, domain.StorageError("load session", err)
	}

	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, domain.StorageError("decode session", err)
	}
	return &c, nil
}

// Save writes the context.
func (s *Store) Save(ctx context.Context, c *Context) error {
	data, err := json.Marshal(c)
	if err != nil {
		return domain.StorageError("encode session", err)
	}
	if err := s.client.Set(ctx, cache.Key(sessionKeyPrefix, c.SessionID), data, s.ttl); err != nil {
		return domain.StorageError("save session", err)
	}
	return nil
}

// Delete drops a session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Delete(ctx, cache.Key(sessionKeyPrefix, sessionID)); err != nil {
		return domain.StorageError("delete session", err)
	}
	return nil
}

// SessionManager serializes read-modify-write cycles per session id so that
// concurrent requests for one session cannot lose updates.
type SessionManager struct {
	store   *Store
	logger  *observability.Logger
	metrics *observability.Metrics

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewSessionManager creates a manager over store.
func NewSessionManager(store *Store, logger *observability.Logger, metrics *observability.Metrics) *SessionManager {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &SessionManager{
		store:   store,
		logger:  logger,
		metrics: metrics,
		locks:   make(map[string]*sessionLock),
	}
}

// Store returns the underlying store.
func (m *SessionManager) Store() *Store {
	return m.store
}

// WithSession loads the session, runs fn and saves the result, holding the
// session's lock throughout. The context is not saved when fn fails.
func (m *SessionManager) WithSession(ctx context.Context, sessionID string, fn func(*Context) error) (*Context, error) {
	if sessionID == "" {
		return nil, domain.ValidationError("session id is required", nil)
	}

	unlock := m.lock(sessionID)
	defer unlock()

	c, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := fn(c); err != nil {
		return c, err
	}

	if err := m.store.Save(ctx, c); err != nil {
		m.logger.WithSession(sessionID).Error().Err(err).Msg("Failed to save session")
		return c, fmt.Errorf("with session %s: %w", sessionID, err)
	}
	return c, nil
}

// Active reports how many sessions currently hold or wait for a lock.
func (m *SessionManager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

func (m *SessionManager) lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLock{}
		m.locks[id] = l
	}
	l.refs++
	m.mu.Unlock()

	m.metrics.SessionLocked(1)
	l.mu.Lock()

	return func() {
		l.mu.Unlock()
		m.metrics.SessionLocked(-1)

		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	}
}
