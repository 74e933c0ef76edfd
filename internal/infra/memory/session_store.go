package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"quizboard/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]domain.Session),
	}
}

func (s *SessionStore) Create(_ context.Context, user domain.User) (domain.Session, error) {
	session := domain.Session{
		Token:     uuid.NewString(),
		User:      user,
		ExpiresAt: s.clock().Add(s.ttl),
	}
	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()
	return session, nil
}

func (s *SessionStore) Get(_ context.Context, token string) (domain.Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if s.ttl > 0 && !session.ExpiresAt.After(s.clock()) {
		_ = s.Delete(context.Background(), token)
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *SessionStore) Update(_ context.Context, token string, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.User = user
	s.sessions[token] = session
	return nil
}

func (s *SessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
