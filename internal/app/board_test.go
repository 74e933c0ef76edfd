package app_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quizboard/internal/app"
	"quizboard/internal/codegen"
	"quizboard/internal/domain"
	"quizboard/internal/infra/memory"
)

// gatedStore parks the first armed leaderboard read until released and
// reports every saved user.
type gatedStore struct {
	*memory.Store
	armed   atomic.Bool
	reached chan struct{}
	release chan struct{}
	saved   chan string

	mu     sync.Mutex
	limits []int
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		Store:   memory.NewStore(),
		reached: make(chan struct{}),
		release: make(chan struct{}),
		saved:   make(chan string, 4),
	}
}

func (g *gatedStore) GetLeaderboard(ctx context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error) {
	g.mu.Lock()
	g.limits = append(g.limits, limit)
	g.mu.Unlock()
	entries, err := g.Store.GetLeaderboard(ctx, quizID, limit)
	if g.armed.CompareAndSwap(true, false) {
		close(g.reached)
		<-g.release
	}
	return entries, err
}

func (g *gatedStore) SaveEntry(ctx context.Context, entry domain.LeaderboardEntry) error {
	err := g.Store.SaveEntry(ctx, entry)
	g.saved <- entry.UserID
	return err
}

func TestConcurrentSubmitsNeverRegressLiveBoard(t *testing.T) {
	ctx := context.Background()
	store := newGatedStore()
	users := app.NewUserService(store, store, memory.NewSessionStore(time.Hour))
	quizzes := app.NewQuizService(store, nil, codegen.NewGenerator(codegen.DefaultMaxAttempts), users)

	owner, _ := users.Guest(ctx, "Owner")
	quiz, _, err := quizzes.CreateQuiz(ctx, owner, sampleDraft())
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	ch, cancel := quizzes.Subscribe(ctx, quiz)
	defer cancel()
	<-ch

	store.armed.Store(true)
	var wg sync.WaitGroup
	var fromB []domain.LeaderboardEntry
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := quizzes.SubmitScore(ctx, quiz.ID, "a", "A", 50); err != nil {
			t.Errorf("submit a: %v", err)
		}
	}()
	<-store.saved
	<-store.reached

	go func() {
		defer wg.Done()
		entries, err := quizzes.SubmitScore(ctx, quiz.ID, "b", "B", 90)
		if err != nil {
			t.Errorf("submit b: %v", err)
		}
		fromB = entries
	}()
	if user := <-store.saved; user != "b" {
		t.Fatalf("expected b to save, got %s", user)
	}
	close(store.release)
	wg.Wait()

	var last domain.Leaderboard
	for drained := false; !drained; {
		select {
		case last = <-ch:
		default:
			drained = true
		}
	}
	if len(last.Entries) != 2 || last.Entries[0].UserID != "b" || last.Entries[1].UserID != "a" {
		t.Fatalf("live board regressed: %+v", last.Entries)
	}
	if len(fromB) != 2 {
		t.Fatalf("b saw %+v", fromB)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	for _, limit := range store.limits {
		if limit <= 0 {
			t.Fatalf("leaderboard read without the service cap: %v", store.limits)
		}
	}
}

func TestSubscribeSnapshotsNeverGoBackwards(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	u, _ := env.users.Guest(ctx, "Alice")
	quiz, _, _ := env.quizzes.CreateQuiz(ctx, u, sampleDraft())
	if _, err := env.quizzes.SubmitScore(ctx, quiz.ID, "late", "Late", 0); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// keep one subscriber attached so the board stays live
	keep, cancelKeep := env.quizzes.Subscribe(ctx, quiz)
	defer cancelKeep()
	<-keep

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 40; i++ {
			_, _ = env.quizzes.SubmitScore(ctx, quiz.ID, "late", "Late", i)
		}
	}()

	ch, cancel := env.quizzes.Subscribe(ctx, quiz)
	defer cancel()
	<-done

	best := -1
	for drained := false; !drained; {
		select {
		case lb := <-ch:
			if len(lb.Entries) != 1 {
				t.Fatalf("unexpected snapshot %+v", lb.Entries)
			}
			if lb.Entries[0].Score < best {
				t.Fatalf("snapshot went backwards: %d after %d", lb.Entries[0].Score, best)
			}
			best = lb.Entries[0].Score
		default:
			drained = true
		}
	}
	if best != 40 {
		t.Fatalf("last snapshot score = %d, want 40", best)
	}
}
