package memory

import (
	"context"
	"sort"
	"sync"

	"quizboard/internal/domain"
	"quizboard/internal/leaderboard"
)

// Store keeps every record in process memory. It backs tests and the
// zero-config server.
type Store struct {
	mu sync.RWMutex

	users       map[string]domain.User
	usersEmail  map[string]string
	quizzes     map[string]domain.Quiz
	entries     map[string][]domain.LeaderboardEntry
	activities  map[string][]domain.RecentActivity
	attemptRows int64
}

func NewStore() *Store {
	return &Store{
		users:      make(map[string]domain.User),
		usersEmail: make(map[string]string),
		quizzes:    make(map[string]domain.Quiz),
		entries:    make(map[string][]domain.LeaderboardEntry),
		activities: make(map[string][]domain.RecentActivity),
	}
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.usersEmail[user.Email]; ok {
		return domain.User{}, domain.ErrEmailTaken
	}
	s.users[user.ID] = user
	s.usersEmail[user.Email] = user.ID
	return user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usersEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) UpdateUserStats(_ context.Context, userID string, stats domain.UserStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.Stats = stats
	s.users[userID] = user
	return nil
}

func (s *Store) CreateQuiz(_ context.Context, quiz domain.Quiz) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.Code]; ok {
		return "", domain.ErrCodeTaken
	}
	s.quizzes[quiz.Code] = quiz
	return quiz.Code, nil
}

func (s *Store) GetQuizByCode(_ context.Context, code string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[code]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *Store) GetQuizzesByUser(_ context.Context, userID string) ([]domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0)
	for _, quiz := range s.quizzes {
		if quiz.CreatedBy == userID {
			out = append(out, quiz)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) QuizCodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.quizzes[code]
	return ok, nil
}

func (s *Store) GetLeaderboard(_ context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// rows are kept ranked by SaveEntry
	out := leaderboard.Limit(s.entries[quizID], limit)
	return append(make([]domain.LeaderboardEntry, 0, len(out)), out...), nil
}

func (s *Store) SaveEntry(_ context.Context, entry domain.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.entries[entry.QuizID]
	isNew := leaderboard.Find(rows, entry.UserID) < 0
	updated := leaderboard.Submit(rows, entry.QuizID, entry.UserID, entry.UserName, entry.Score, entry.CompletedAt)
	if isNew {
		updated[leaderboard.Find(updated, entry.UserID)].ID = entry.ID
		s.attemptRows++
	}
	s.entries[entry.QuizID] = updated
	return nil
}

func (s *Store) AddRecentActivity(_ context.Context, activity domain.RecentActivity, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// newest first
	list := append([]domain.RecentActivity{activity}, s.activities[activity.UserID]...)
	if keep > 0 && len(list) > keep {
		list = list[:keep]
	}
	s.activities[activity.UserID] = list
	return nil
}

func (s *Store) GetRecentActivities(_ context.Context, userID string, limit int) ([]domain.RecentActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.activities[userID]
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return append([]domain.RecentActivity{}, list...), nil
}

func (s *Store) CountUsers(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.users)), nil
}

func (s *Store) CountQuizzes(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.quizzes)), nil
}

func (s *Store) CountAttempts(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attemptRows, nil
}
