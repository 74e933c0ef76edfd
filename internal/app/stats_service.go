package app

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"
	"quizboard/internal/domain"
)

// FallbackStats are shown when a counter cannot be read.
var FallbackStats = domain.PlatformStats{
	TotalUsers:    1250,
	TotalQuizzes:  450,
	TotalAttempts: 8500,
}

// StatsService reads the landing page counters.
type StatsService struct {
	counter Counter
}

func NewStatsService(counter Counter) *StatsService {
	return &StatsService{counter: counter}
}

// Stats never fails: each counter degrades to its fallback independently.
func (s *StatsService) Stats(ctx context.Context) domain.PlatformStats {
	stats := FallbackStats
	g, gctx := errgroup.WithContext(ctx)
	count := func(name string, fn func(context.Context) (int64, error), dst *int64) {
		g.Go(func() error {
			n, err := fn(gctx)
			if err != nil {
				log.Printf("count %s: %v", name, err)
				return nil
			}
			*dst = n
			return nil
		})
	}
	count("users", s.counter.CountUsers, &stats.TotalUsers)
	count("quizzes", s.counter.CountQuizzes, &stats.TotalQuizzes)
	count("attempts", s.counter.CountAttempts, &stats.TotalAttempts)
	_ = g.Wait()
	return stats
}
