package domain

import "time"

// AccountKind distinguishes persisted accounts from session-local guests.
type AccountKind string

const (
	KindGuest      AccountKind = "guest"
	KindRegistered AccountKind = "registered"
)

// OptionCount is the fixed number of answer options per question.
const OptionCount = 4

// NoAnswer is recorded when a question times out without a selection.
const NoAnswer = -1

// UserStats are the aggregate counters shown on a user's profile.
type UserStats struct {
	QuizzesJoined  int `json:"quizzesJoined" validate:"min=0"`
	QuizzesCreated int `json:"quizzesCreated" validate:"min=0"`
	AverageScore   int `json:"averageScore" validate:"min=0,max=100"`
	BestScore      int `json:"bestScore" validate:"min=0,max=100"`
}

// User is either a registered account or an ephemeral guest.
type User struct {
	ID           string      `json:"id" validate:"required"`
	Name         string      `json:"name" validate:"required,max=100"`
	Email        string      `json:"email" validate:"omitempty,email"`
	Kind         AccountKind `json:"type" validate:"oneof=guest registered"`
	Stats        UserStats   `json:"stats"`
	PasswordHash []byte      `json:"-"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// IsGuest reports whether the user lives only in its session.
func (u User) IsGuest() bool {
	return u.Kind == KindGuest
}

// Question models an MCQ question with exactly four options.
type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"question" validate:"required"`
	Options       []string `json:"options" validate:"len=4,dive,required"`
	CorrectAnswer int      `json:"correctAnswer" validate:"min=0,max=3"`
}

// Quiz is an immutable collection of questions reachable through its join code.
type Quiz struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Questions   []Question `json:"questions" validate:"required,min=1,dive"`
	CreatedBy   string     `json:"createdBy" validate:"required"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// PublicQuestion hides the correct answer from quiz takers.
type PublicQuestion struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
}

// PublicQuiz is the player-facing view of a quiz.
type PublicQuiz struct {
	ID          string           `json:"id"`
	Code        string           `json:"code"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Questions   []PublicQuestion `json:"questions"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Public strips answer keys.
func (q Quiz) Public() PublicQuiz {
	questions := make([]PublicQuestion, 0, len(q.Questions))
	for _, question := range q.Questions {
		questions = append(questions, PublicQuestion{
			ID:      question.ID,
			Prompt:  question.Prompt,
			Options: append([]string(nil), question.Options...),
		})
	}
	return PublicQuiz{
		ID:          q.ID,
		Code:        q.Code,
		Title:       q.Title,
		Description: q.Description,
		Questions:   questions,
		CreatedAt:   q.CreatedAt,
	}
}

// LeaderboardEntry is one user's best recorded score for a quiz.
type LeaderboardEntry struct {
	ID          string    `json:"id"`
	QuizID      string    `json:"quizId" validate:"required"`
	UserID      string    `json:"userId" validate:"required"`
	UserName    string    `json:"userName"`
	Score       int       `json:"score" validate:"min=0,max=100"`
	CompletedAt time.Time `json:"completedAt"`
}

// Leaderboard is the ranked view pushed to live subscribers.
type Leaderboard struct {
	QuizID    string             `json:"quizId"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// RecentActivity records a finished attempt on the user's dashboard.
type RecentActivity struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	QuizID    string    `json:"quizId"`
	QuizTitle string    `json:"quizTitle"`
	QuizCode  string    `json:"quizCode"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

// PlatformStats are the landing page counters.
type PlatformStats struct {
	TotalUsers    int64 `json:"totalUsers"`
	TotalQuizzes  int64 `json:"totalQuizzes"`
	TotalAttempts int64 `json:"totalAttempts"`
}

// Session binds an opaque token to a user identity.
type Session struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AttemptResult summarizes a scored quiz attempt.
type AttemptResult struct {
	QuizID  string `json:"quizId"`
	Code    string `json:"code"`
	Score   int    `json:"score"`
	Correct int    `json:"correct"`
	Total   int    `json:"total"`
	User    User   `json:"user"`
}
