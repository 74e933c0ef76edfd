package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"quizboard/internal/domain"
)

const (
	// DefaultGuestName is used when a guest joins without a name.
	DefaultGuestName = "Guest User"
	// RecentActivityKeep is how many activity rows survive per user.
	RecentActivityKeep = 10
)

// UserService owns accounts, sessions and per-user statistics.
type UserService struct {
	users      UserRepository
	activities ActivityRepository
	sessions   SessionStore
	now        func() time.Time
}

func NewUserService(users UserRepository, activities ActivityRepository, sessions SessionStore) *UserService {
	return &UserService{
		users:      users,
		activities: activities,
		sessions:   sessions,
		now:        time.Now,
	}
}

// Register creates a registered account and opens a session for it.
func (s *UserService) Register(ctx context.Context, name, email, password string) (domain.Session, error) {
	email = domain.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return domain.Session{}, &domain.ValidationError{Fields: missing(map[string]string{"name": name, "email": email, "password": password})}
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return domain.Session{}, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Session{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		Kind:         domain.KindRegistered,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := domain.Validate(user); err != nil {
		return domain.Session{}, err
	}
	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return domain.Session{}, err
	}
	log.Printf("registered user %s", created.ID)
	return s.sessions.Create(ctx, created)
}

// Login checks credentials and opens a session.
func (s *UserService) Login(ctx context.Context, email, password string) (domain.Session, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return domain.Session{}, &domain.ValidationError{Fields: missing(map[string]string{"email": email, "password": password})}
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.Session{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.Session{}, err
	}
	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return domain.Session{}, domain.ErrInvalidCredentials
	}
	return s.sessions.Create(ctx, user)
}

// Guest opens a session for an unpersisted identity.
func (s *UserService) Guest(ctx context.Context, name string) (domain.Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultGuestName
	}
	now := s.now().UTC()
	return s.sessions.Create(ctx, domain.User{
		ID:        "guest_" + uuid.NewString(),
		Name:      name,
		Kind:      domain.KindGuest,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Authenticate resolves a token to its session, refreshing registered users from the store.
func (s *UserService) Authenticate(ctx context.Context, token string) (domain.Session, error) {
	if token == "" {
		return domain.Session{}, domain.ErrUnauthorized
	}
	session, err := s.sessions.Get(ctx, token)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.Session{}, domain.ErrUnauthorized
	}
	if err != nil {
		return domain.Session{}, err
	}
	if session.User.IsGuest() {
		return session, nil
	}
	fresh, err := s.users.GetUserByID(ctx, session.User.ID)
	if err != nil {
		log.Printf("refresh user %s: %v", session.User.ID, err)
		return session, nil
	}
	session.User = fresh
	return session, nil
}

// Logout drops the session.
func (s *UserService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// RecordAttempt folds a finished attempt into the user's stats and returns the updated user.
func (s *UserService) RecordAttempt(ctx context.Context, session domain.Session, score int) (domain.User, error) {
	user := s.latest(ctx, session)
	joined := user.Stats.QuizzesJoined + 1
	user.Stats.AverageScore = int(math.Round(float64(user.Stats.AverageScore*user.Stats.QuizzesJoined+score) / float64(joined)))
	user.Stats.QuizzesJoined = joined
	if score > user.Stats.BestScore {
		user.Stats.BestScore = score
	}
	return s.saveStats(ctx, session.Token, user)
}

// RecordQuizCreated bumps the creator's quiz count.
func (s *UserService) RecordQuizCreated(ctx context.Context, session domain.Session) (domain.User, error) {
	user := s.latest(ctx, session)
	user.Stats.QuizzesCreated++
	return s.saveStats(ctx, session.Token, user)
}

// latest re-reads the user so stats updates build on the newest counters.
func (s *UserService) latest(ctx context.Context, session domain.Session) domain.User {
	if !session.User.IsGuest() {
		if user, err := s.users.GetUserByID(ctx, session.User.ID); err == nil {
			return user
		}
		return session.User
	}
	if current, err := s.sessions.Get(ctx, session.Token); err == nil {
		return current.User
	}
	return session.User
}

func (s *UserService) saveStats(ctx context.Context, token string, user domain.User) (domain.User, error) {
	user.UpdatedAt = s.now().UTC()
	if !user.IsGuest() {
		if err := s.users.UpdateUserStats(ctx, user.ID, user.Stats); err != nil {
			return domain.User{}, fmt.Errorf("update stats: %w", err)
		}
	}
	if err := s.sessions.Update(ctx, token, user); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return domain.User{}, err
	}
	return user, nil
}

// AddActivity records a finished attempt for registered users; failures are logged only.
func (s *UserService) AddActivity(ctx context.Context, user domain.User, quiz domain.Quiz, score int) {
	if user.IsGuest() {
		return
	}
	err := s.activities.AddRecentActivity(ctx, domain.RecentActivity{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		QuizID:    quiz.ID,
		QuizTitle: quiz.Title,
		QuizCode:  quiz.Code,
		Score:     score,
		CreatedAt: s.now().UTC(),
	}, RecentActivityKeep)
	if err != nil {
		log.Printf("add recent activity for %s: %v", user.ID, err)
	}
}

// RecentActivity lists the user's newest attempts; a failed read yields an empty list.
func (s *UserService) RecentActivity(ctx context.Context, user domain.User) []domain.RecentActivity {
	if user.IsGuest() {
		return []domain.RecentActivity{}
	}
	activities, err := s.activities.GetRecentActivities(ctx, user.ID, RecentActivityKeep)
	if err != nil {
		log.Printf("recent activity for %s: %v", user.ID, err)
		return []domain.RecentActivity{}
	}
	return activities
}

func missing(fields map[string]string) []string {
	var out []string
	for _, name := range []string{"name", "email", "password"} {
		if v, ok := fields[name]; ok && v == "" {
			out = append(out, name)
		}
	}
	return out
}
