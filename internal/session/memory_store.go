package session

import (
	"context"
	"sync"
	"time"
)

type memoryRecord struct {
	user      User
	expiresAt time.Time
}

// MemoryStore is the in-process fallback used when Redis is not configured.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memoryRecord)}
}

func (s *MemoryStore) Issue(ctx context.Context, user User, ttl time.Duration) (string, error) {
	token := newToken()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[hashToken(token)] = memoryRecord{user: user, expiresAt: time.Now().Add(ttl)}
	return token, nil
}

func (s *MemoryStore) Validate(ctx context.Context, token string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.sessions[hashToken(token)]
	if !ok {
		return User{}, ErrInvalidSession
	}
	if time.Now().After(record.expiresAt) {
		delete(s.sessions, hashToken(token))
		return User{}, ErrInvalidSession
	}
	return record.user, nil
}

func (s *MemoryStore) Revoke(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, hashToken(token))
	return nil
}
