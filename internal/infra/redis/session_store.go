package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"quizboard/internal/domain"
)

// SessionStore keeps user sessions in Redis so any instance can resolve a token.
// Each session is a JSON value under quiz:session:{token} expiring after ttl.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Create(ctx context.Context, user domain.User) (domain.Session, error) {
	session := domain.Session{
		Token:     uuid.NewString(),
		User:      user,
		ExpiresAt: time.Now().Add(s.ttl),
	}
	if err := s.write(ctx, session, s.ttl); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}

func (s *SessionStore) Get(ctx context.Context, token string) (domain.Session, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

// Update replaces the user but keeps the remaining lifetime.
func (s *SessionStore) Update(ctx context.Context, token string, user domain.User) error {
	session, err := s.Get(ctx, token)
	if err != nil {
		return err
	}
	session.User = user
	return s.write(ctx, session, redis.KeepTTL)
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	return s.client.Del(ctx, s.key(token)).Err()
}

func (s *SessionStore) write(ctx context.Context, session domain.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.Token), data, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *SessionStore) key(token string) string {
	return "quiz:session:" + token
}
