package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Suitable for development and
// tests; production deployments use the Redis store so sessions survive
// restarts.
type MemoryStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	sessions map[string]*memorySession
}

type memorySession struct {
	values    map[string]string
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]*memorySession),
	}
}

// Get returns the value stored under key, or ErrNotFound.
func (s *MemoryStore) Get(_ context.Context, sessionID, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.live(sessionID)
	if sess == nil {
		return "", ErrNotFound
	}
	value, ok := sess.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Put stores value under key, creating the session if needed.
func (s *MemoryStore) Put(_ context.Context, sessionID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.live(sessionID)
	if sess == nil {
		sess = &memorySession{values: make(map[string]string)}
		s.sessions[sessionID] = sess
	}
	sess.values[key] = value
	sess.expiresAt = time.Now().Add(s.ttl)
	return nil
}

// Delete removes the given keys.
func (s *MemoryStore) Delete(_ context.Context, sessionID string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.live(sessionID)
	if sess == nil {
		return nil
	}
	for _, key := range keys {
		delete(sess.values, key)
	}
	return nil
}

// Keys lists all keys present in the session.
func (s *MemoryStore) Keys(_ context.Context, sessionID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.live(sessionID)
	if sess == nil {
		return nil, nil
	}
	keys := make([]string, 0, len(sess.values))
	for key := range sess.values {
		keys = append(keys, key)
	}
	return keys, nil
}

// Clear removes the whole session.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// live returns the session if it exists and has not expired. Callers hold at
// least a read lock.
func (s *MemoryStore) live(sessionID string) *memorySession {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	if time.Now().After(sess.expiresAt) && !sess.expiresAt.IsZero() {
		return nil
	}
	return sess
}

var _ Store = (*MemoryStore)(nil)
