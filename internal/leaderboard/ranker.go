// Package leaderboard ranks per-quiz scores with a best-score-wins merge.
package leaderboard

import (
	"math"
	"sort"
	"time"

	"quizboard/internal/domain"
)

// DefaultLimit caps how many rows a leaderboard read returns.
const DefaultLimit = 100

// Submit merges a new score for userID into entries and returns the re-ranked copy.
// An existing row is replaced only when score beats it; entries is never mutated.
func Submit(entries []domain.LeaderboardEntry, quizID, userID, userName string, score int, now time.Time) []domain.LeaderboardEntry {
	out := make([]domain.LeaderboardEntry, len(entries), len(entries)+1)
	copy(out, entries)

	if i := Find(out, userID); i >= 0 {
		if score > out[i].Score {
			out[i].Score = score
			out[i].UserName = userName
			out[i].CompletedAt = now
		}
	} else {
		out = append(out, domain.LeaderboardEntry{
			QuizID:      quizID,
			UserID:      userID,
			UserName:    userName,
			Score:       score,
			CompletedAt: now,
		})
	}

	Sort(out)
	return out
}

// Sort orders entries by score desc, then earliest completion, then user ID.
func Sort(entries []domain.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return Before(entries[i], entries[j])
	})
}

// Before reports whether a ranks ahead of b.
func Before(a, b domain.LeaderboardEntry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.CompletedAt.Equal(b.CompletedAt) {
		return a.CompletedAt.Before(b.CompletedAt)
	}
	return a.UserID < b.UserID
}

// Find returns the index of userID's row or -1.
func Find(entries []domain.LeaderboardEntry, userID string) int {
	for i := range entries {
		if entries[i].UserID == userID {
			return i
		}
	}
	return -1
}

// Limit truncates a ranked list; n <= 0 means no cap.
func Limit(entries []domain.LeaderboardEntry, n int) []domain.LeaderboardEntry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[:n]
}

// Average is the rounded mean score, 0 for an empty board.
func Average(entries []domain.LeaderboardEntry) int {
	if len(entries) == 0 {
		return 0
	}
	total := 0
	for _, e := range entries {
		total += e.Score
	}
	return int(math.Round(float64(total) / float64(len(entries))))
}
