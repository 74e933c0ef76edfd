package app_test

import (
	"context"
	"errors"
	"testing"

	"quizboard/internal/app"
	"quizboard/internal/infra/memory"
)

type brokenCounter struct {
	*memory.Store
}

func (brokenCounter) CountQuizzes(context.Context) (int64, error) {
	return 0, errors.New("counter unavailable")
}

func TestStatsFallbackPerCounter(t *testing.T) {
	stats := app.NewStatsService(brokenCounter{Store: memory.NewStore()}).Stats(context.Background())
	if stats.TotalUsers != 0 || stats.TotalAttempts != 0 {
		t.Fatalf("expected real zero counts, got %+v", stats)
	}
	if stats.TotalQuizzes != app.FallbackStats.TotalQuizzes {
		t.Fatalf("expected quiz fallback %d, got %d", app.FallbackStats.TotalQuizzes, stats.TotalQuizzes)
	}
}
