package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"quizboard/internal/codegen"
	"quizboard/internal/domain"
	"quizboard/internal/leaderboard"
	"quizboard/internal/play"
)

// QuizOverview is what a quiz owner sees on the manage screen.
type QuizOverview struct {
	Quiz         domain.Quiz               `json:"quiz"`
	Leaderboard  []domain.LeaderboardEntry `json:"leaderboard"`
	Participants int                       `json:"participants"`
	AverageScore int                       `json:"averageScore"`
}

// QuizService contains the quiz use cases: authoring, playing and ranking.
type QuizService struct {
	store  Store
	reader QuizReader
	codes  *codegen.Generator
	users  *UserService
	boards *boards
	limit  int
	now    func() time.Time
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithLeaderboardLimit caps leaderboard reads.
func WithLeaderboardLimit(n int) Option {
	return func(s *QuizService) { s.limit = n }
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

// NewQuizService wires the quiz use cases. reader may be a cache in front of store.
func NewQuizService(store Store, reader QuizReader, codes *codegen.Generator, users *UserService, opts ...Option) *QuizService {
	if reader == nil {
		reader = store
	}
	s := &QuizService{
		store:  store,
		reader: reader,
		codes:  codes,
		users:  users,
		boards: newBoards(),
		limit:  leaderboard.DefaultLimit,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateQuiz validates the draft, assigns a unique code and stores it.
// The returned user carries the creator's bumped stats.
func (s *QuizService) CreateQuiz(ctx context.Context, session domain.Session, draft domain.Quiz) (domain.Quiz, domain.User, error) {
	now := s.now().UTC()
	quiz := domain.NormalizeQuiz(draft)
	quiz.ID = uuid.NewString()
	quiz.CreatedBy = session.User.ID
	quiz.CreatedAt = now
	quiz.UpdatedAt = now
	for i := range quiz.Questions {
		quiz.Questions[i].ID = uuid.NewString()
	}
	if err := domain.Validate(quiz); err != nil {
		return domain.Quiz{}, domain.User{}, err
	}

	// The store's unique index is the final arbiter; a lost race just draws again.
	for {
		code, err := s.codes.Generate(ctx, s.store.QuizCodeExists)
		if err != nil {
			return domain.Quiz{}, domain.User{}, err
		}
		quiz.Code = code
		_, err = s.store.CreateQuiz(ctx, quiz)
		if errors.Is(err, domain.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return domain.Quiz{}, domain.User{}, fmt.Errorf("create quiz: %w", err)
		}
		break
	}
	log.Printf("quiz %s created by %s", quiz.Code, quiz.CreatedBy)

	user, err := s.users.RecordQuizCreated(ctx, session)
	if err != nil {
		log.Printf("record quiz created for %s: %v", session.User.ID, err)
		user = session.User
	}
	return quiz, user, nil
}

// GetQuiz resolves a join code typed by a user.
func (s *QuizService) GetQuiz(ctx context.Context, code string) (domain.Quiz, error) {
	code = codegen.Normalize(code)
	if !codegen.Valid(code) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return s.reader.GetQuizByCode(ctx, code)
}

// QuizzesByUser lists quizzes a user authored, newest first. Failures yield an empty list.
func (s *QuizService) QuizzesByUser(ctx context.Context, userID string) []domain.Quiz {
	quizzes, err := s.store.GetQuizzesByUser(ctx, userID)
	if err != nil {
		log.Printf("quizzes by user %s: %v", userID, err)
		return []domain.Quiz{}
	}
	return quizzes
}

// Overview returns the manage view; only the creator may see answer keys.
func (s *QuizService) Overview(ctx context.Context, session domain.Session, code string) (QuizOverview, error) {
	quiz, err := s.GetQuiz(ctx, code)
	if err != nil {
		return QuizOverview{}, err
	}
	if quiz.CreatedBy != session.User.ID {
		return QuizOverview{}, domain.ErrForbidden
	}
	entries := s.readLeaderboard(ctx, quiz.ID, s.limit)
	return QuizOverview{
		Quiz:         quiz,
		Leaderboard:  entries,
		Participants: len(entries),
		AverageScore: leaderboard.Average(entries),
	}, nil
}

// SubmitAttempt scores a full answer sheet server side and records the result.
func (s *QuizService) SubmitAttempt(ctx context.Context, session domain.Session, code string, answers []int) (domain.AttemptResult, error) {
	quiz, err := s.GetQuiz(ctx, code)
	if err != nil {
		return domain.AttemptResult{}, err
	}
	if len(answers) != len(quiz.Questions) {
		return domain.AttemptResult{}, &domain.ValidationError{Fields: []string{"answers"}}
	}
	for _, a := range answers {
		if a < domain.NoAnswer || a >= domain.OptionCount {
			return domain.AttemptResult{}, &domain.ValidationError{Fields: []string{"answers"}}
		}
	}
	score, correct := play.Score(quiz, answers)
	return s.Complete(ctx, session, quiz, score, correct)
}

// Complete records a scored attempt: leaderboard, activity and user stats.
func (s *QuizService) Complete(ctx context.Context, session domain.Session, quiz domain.Quiz, score, correct int) (domain.AttemptResult, error) {
	if _, err := s.SubmitScore(ctx, quiz.ID, session.User.ID, session.User.Name, score); err != nil {
		return domain.AttemptResult{}, err
	}
	s.users.AddActivity(ctx, session.User, quiz, score)

	user, err := s.users.RecordAttempt(ctx, session, score)
	if err != nil {
		log.Printf("record attempt for %s: %v", session.User.ID, err)
		user = session.User
	}
	return domain.AttemptResult{
		QuizID:  quiz.ID,
		Code:    quiz.Code,
		Score:   score,
		Correct: correct,
		Total:   len(quiz.Questions),
		User:    user,
	}, nil
}

// SubmitScore records score for the user with the best-score-wins rule and
// pushes the new ranking to live subscribers. The store's conditional upsert
// does the merge, so the ranking is always re-read after the write.
func (s *QuizService) SubmitScore(ctx context.Context, quizID, userID, userName string, score int) ([]domain.LeaderboardEntry, error) {
	if score < 0 || score > 100 {
		return nil, &domain.ValidationError{Fields: []string{"score"}}
	}
	err := s.store.SaveEntry(ctx, domain.LeaderboardEntry{
		ID:          uuid.NewString(),
		QuizID:      quizID,
		UserID:      userID,
		UserName:    userName,
		Score:       score,
		CompletedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("save leaderboard entry: %w", err)
	}

	ranked, err := s.boards.refresh(quizID, func() ([]domain.LeaderboardEntry, error) {
		return s.store.GetLeaderboard(ctx, quizID, s.limit)
	})
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	return ranked, nil
}

// Leaderboard returns the ranked rows for a quiz; a failed read yields an empty list.
func (s *QuizService) Leaderboard(ctx context.Context, code string, limit int) (domain.Quiz, []domain.LeaderboardEntry, error) {
	quiz, err := s.GetQuiz(ctx, code)
	if err != nil {
		return domain.Quiz{}, nil, err
	}
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	return quiz, s.readLeaderboard(ctx, quiz.ID, limit), nil
}

// Subscribe returns a channel of leaderboard snapshots for a quiz.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(ctx context.Context, quiz domain.Quiz) (<-chan domain.Leaderboard, func()) {
	seed := s.readLeaderboard(ctx, quiz.ID, s.limit)
	return s.boards.subscribe(quiz.ID, seed, s.now)
}

func (s *QuizService) readLeaderboard(ctx context.Context, quizID string, limit int) []domain.LeaderboardEntry {
	entries, err := s.store.GetLeaderboard(ctx, quizID, limit)
	if err != nil {
		log.Printf("leaderboard for %s: %v", quizID, err)
		return []domain.LeaderboardEntry{}
	}
	return entries
}
