package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizboard/internal/app"
	"quizboard/internal/codegen"
	"quizboard/internal/domain"
	"quizboard/internal/infra/memory"
)

type testEnv struct {
	store   *memory.Store
	users   *app.UserService
	quizzes *app.QuizService
}

func newTestEnv(opts ...app.Option) testEnv {
	store := memory.NewStore()
	users := app.NewUserService(store, store, memory.NewSessionStore(time.Hour))
	quizzes := app.NewQuizService(store, memory.NewQuizCache(store, time.Minute), codegen.NewGenerator(codegen.DefaultMaxAttempts), users, opts...)
	return testEnv{store: store, users: users, quizzes: quizzes}
}

func sampleDraft() domain.Quiz {
	return domain.Quiz{
		Title: "Sample",
		Questions: []domain.Question{
			{Prompt: "Pick the third", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 2},
		},
	}
}

func TestCreateTakeAndRank(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	author, err := env.users.Register(ctx, "Alice", "alice@example.com", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	quiz, creator, err := env.quizzes.CreateQuiz(ctx, author, sampleDraft())
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if !codegen.Valid(quiz.Code) {
		t.Fatalf("invalid code %q", quiz.Code)
	}
	if creator.Stats.QuizzesCreated != 1 {
		t.Fatalf("expected creator stats bump, got %+v", creator.Stats)
	}

	result, err := env.quizzes.SubmitAttempt(ctx, author, quiz.Code, []int{2})
	if err != nil {
		t.Fatalf("submit attempt: %v", err)
	}
	if result.Score != 100 {
		t.Fatalf("score = %d, want 100", result.Score)
	}
	if result.User.Stats.QuizzesJoined != 1 || result.User.Stats.BestScore != 100 || result.User.Stats.AverageScore != 100 {
		t.Fatalf("unexpected stats %+v", result.User.Stats)
	}

	_, entries, err := env.quizzes.Leaderboard(ctx, quiz.Code, 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 1 || entries[0].Score != 100 {
		t.Fatalf("expected single 100 entry, got %+v", entries)
	}

	activity := env.users.RecentActivity(ctx, result.User)
	if len(activity) != 1 || activity[0].QuizCode != quiz.Code {
		t.Fatalf("expected recent activity, got %+v", activity)
	}
}

func TestBestScoreWins(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	u, _ := env.users.Guest(ctx, "U")
	quiz, _, err := env.quizzes.CreateQuiz(ctx, u, sampleDraft())
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	if _, err := env.quizzes.SubmitScore(ctx, quiz.ID, u.User.ID, "U", 60); err != nil {
		t.Fatalf("submit 60: %v", err)
	}
	if _, err := env.quizzes.SubmitScore(ctx, quiz.ID, u.User.ID, "U", 80); err != nil {
		t.Fatalf("submit 80: %v", err)
	}
	entries, err := env.quizzes.SubmitScore(ctx, quiz.ID, u.User.ID, "U", 70)
	if err != nil {
		t.Fatalf("submit 70: %v", err)
	}
	if len(entries) != 1 || entries[0].Score != 80 {
		t.Fatalf("expected one entry with 80, got %+v", entries)
	}
}

func TestLeaderboardTieBreakByCompletion(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)
	env := newTestEnv(app.WithClock(func() time.Time { return now }))

	u, _ := env.users.Guest(ctx, "")
	quiz, _, _ := env.quizzes.CreateQuiz(ctx, u, sampleDraft())

	_, _ = env.quizzes.SubmitScore(ctx, quiz.ID, "late", "Late", 90)
	now = now.Add(-time.Minute)
	entries, _ := env.quizzes.SubmitScore(ctx, quiz.ID, "early", "Early", 90)
	if entries[0].UserID != "early" {
		t.Fatalf("expected earlier completion first, got %+v", entries)
	}
}

func TestSubmitAttemptValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	u, _ := env.users.Guest(ctx, "")
	quiz, _, _ := env.quizzes.CreateQuiz(ctx, u, sampleDraft())

	if _, err := env.quizzes.SubmitAttempt(ctx, u, quiz.Code, []int{1, 2}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for answer count, got %v", err)
	}
	if _, err := env.quizzes.SubmitAttempt(ctx, u, quiz.Code, []int{7}); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for option range, got %v", err)
	}
	if _, err := env.quizzes.SubmitAttempt(ctx, u, "ZZZZZZ", []int{1}); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := env.quizzes.GetQuiz(ctx, "bad"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected malformed code to be not found, got %v", err)
	}
	if _, err := env.quizzes.GetQuiz(ctx, " "+quiz.Code+" "); err != nil {
		t.Fatalf("expected code normalization, got %v", err)
	}
}

func TestCreateQuizRejectsInvalidDraft(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	u, _ := env.users.Guest(ctx, "")

	_, _, err := env.quizzes.CreateQuiz(ctx, u, domain.Quiz{Title: " "})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGuestsAreNotPersisted(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	guest, err := env.users.Guest(ctx, "")
	if err != nil {
		t.Fatalf("guest: %v", err)
	}
	if guest.User.Name != app.DefaultGuestName || !guest.User.IsGuest() {
		t.Fatalf("unexpected guest %+v", guest.User)
	}
	quiz, _, _ := env.quizzes.CreateQuiz(ctx, guest, sampleDraft())
	result, err := env.quizzes.SubmitAttempt(ctx, guest, quiz.Code, []int{0})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 0 || result.User.Stats.QuizzesJoined != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if n, _ := env.store.CountUsers(ctx); n != 0 {
		t.Fatalf("guest persisted: %d users", n)
	}

	session, err := env.users.Authenticate(ctx, guest.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if session.User.Stats.QuizzesJoined != 1 || session.User.Stats.QuizzesCreated != 1 {
		t.Fatalf("session stats not threaded: %+v", session.User.Stats)
	}
}

func TestOverviewRequiresCreator(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	owner, _ := env.users.Guest(ctx, "Owner")
	other, _ := env.users.Guest(ctx, "Other")
	quiz, _, _ := env.quizzes.CreateQuiz(ctx, owner, sampleDraft())

	_, _ = env.quizzes.SubmitAttempt(ctx, other, quiz.Code, []int{2})
	if _, err := env.quizzes.Overview(ctx, other, quiz.Code); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	overview, err := env.quizzes.Overview(ctx, owner, quiz.Code)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.Participants != 1 || overview.AverageScore != 100 {
		t.Fatalf("unexpected overview %+v", overview)
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	u, _ := env.users.Guest(ctx, "Alice")
	quiz, _, _ := env.quizzes.CreateQuiz(ctx, u, sampleDraft())

	ch, cancel := env.quizzes.Subscribe(ctx, quiz)
	defer cancel()

	initial := <-ch
	if len(initial.Entries) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", initial.Entries)
	}

	if _, err := env.quizzes.SubmitAttempt(ctx, u, quiz.Code, []int{2}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case update := <-ch:
		if len(update.Entries) != 1 || update.Entries[0].Score != 100 {
			t.Fatalf("expected updated score 100, got %+v", update.Entries)
		}
	case <-time.After(time.Second):
		t.Fatalf("no leaderboard update received")
	}
}

func TestCreateQuizSurfacesExhaustedCodes(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	users := app.NewUserService(store, store, memory.NewSessionStore(time.Hour))
	quizzes := app.NewQuizService(&fullStore{Store: store}, nil, codegen.NewGenerator(5), users)

	u, _ := users.Guest(ctx, "")
	if _, _, err := quizzes.CreateQuiz(ctx, u, sampleDraft()); !errors.Is(err, domain.ErrExhaustedRetries) {
		t.Fatalf("expected ErrExhaustedRetries, got %v", err)
	}
}

// fullStore reports every code as taken.
type fullStore struct {
	*memory.Store
}

func (fullStore) QuizCodeExists(context.Context, string) (bool, error) { return true, nil }
