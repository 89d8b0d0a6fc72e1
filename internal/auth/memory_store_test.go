package auth

import (
	"context"
	"sync"
)

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{tokens: make(map[string]string)}
}

// memorySessionStore keeps refresh tokens in a map.
type memorySessionStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// SaveRefreshToken replaces the user's active refresh token.
func (s *memorySessionStore) SaveRefreshToken(_ context.Context, userID, token string) error {
	s.mu.Lock()
	s.tokens[userID] = token
	s.mu.Unlock()
	return nil
}

// RefreshToken returns the user's active refresh token.
func (s *memorySessionStore) RefreshToken(_ context.Context, userID string) (string, error) {
	s.mu.RLock()
	token, ok := s.tokens[userID]
	s.mu.RUnlock()
	if !ok {
		return "", ErrSessionNotFound
	}
	return token, nil
}

// ClearRefreshToken removes the user's active refresh token.
func (s *memorySessionStore) ClearRefreshToken(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.tokens, userID)
	s.mu.Unlock()
	return nil
}

// Has reports whether the user has an active session.
func (s *memorySessionStore) Has(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tokens[userID]
	return ok
}
