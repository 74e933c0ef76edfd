package app

import (
	"context"

	"quizboard/internal/domain"
)

// UserRepository persists registered accounts. Guests never reach it.
type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	UpdateUserStats(ctx context.Context, userID string, stats domain.UserStats) error
}

// QuizRepository stores quizzes keyed by their join code.
type QuizRepository interface {
	// CreateQuiz returns domain.ErrCodeTaken if the code collides.
	CreateQuiz(ctx context.Context, quiz domain.Quiz) (string, error)
	GetQuizByCode(ctx context.Context, code string) (domain.Quiz, error)
	GetQuizzesByUser(ctx context.Context, userID string) ([]domain.Quiz, error)
	QuizCodeExists(ctx context.Context, code string) (bool, error)
}

// LeaderboardRepository stores one best-score row per (quiz, user).
type LeaderboardRepository interface {
	// GetLeaderboard returns rows ranked by score desc, completion asc; limit <= 0 returns all.
	GetLeaderboard(ctx context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error)
	// SaveEntry upserts the row, keeping the stored score when it is not lower.
	SaveEntry(ctx context.Context, entry domain.LeaderboardEntry) error
}

// ActivityRepository keeps the newest attempts per user.
type ActivityRepository interface {
	// AddRecentActivity appends and trims the user's history to keep newest rows.
	AddRecentActivity(ctx context.Context, activity domain.RecentActivity, keep int) error
	// GetRecentActivities returns newest first; limit <= 0 returns every kept row.
	GetRecentActivities(ctx context.Context, userID string, limit int) ([]domain.RecentActivity, error)
}

// Counter backs the platform statistics.
type Counter interface {
	CountUsers(ctx context.Context) (int64, error)
	CountQuizzes(ctx context.Context) (int64, error)
	CountAttempts(ctx context.Context) (int64, error)
}

// Store is the full persistence surface a backend provides.
type Store interface {
	UserRepository
	QuizRepository
	LeaderboardRepository
	ActivityRepository
	Counter
}

// QuizReader resolves quizzes by code, usually through a cache.
type QuizReader interface {
	GetQuizByCode(ctx context.Context, code string) (domain.Quiz, error)
}

// SessionStore replaces client-local user state with server-side sessions.
type SessionStore interface {
	Create(ctx context.Context, user domain.User) (domain.Session, error)
	Get(ctx context.Context, token string) (domain.Session, error)
	Update(ctx context.Context, token string, user domain.User) error
	Delete(ctx context.Context, token string) error
}
