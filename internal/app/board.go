package app

import (
	"sync"
	"time"

	"quizboard/internal/domain"
)

// Board fans out leaderboard snapshots for one quiz to live subscribers.
type Board struct {
	quizID      string
	now         func() time.Time
	refreshMu   sync.Mutex
	mu          sync.Mutex
	entries     []domain.LeaderboardEntry
	subscribers map[chan domain.Leaderboard]struct{}
}

func newBoard(quizID string, entries []domain.LeaderboardEntry, now func() time.Time) *Board {
	return &Board{
		quizID:      quizID,
		now:         now,
		entries:     entries,
		subscribers: make(map[chan domain.Leaderboard]struct{}),
	}
}

func (b *Board) publish(entries []domain.LeaderboardEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = entries
	lb := b.snapshotLocked()
	for ch := range b.subscribers {
		select {
		case ch <- lb:
		default:
			// drop the stale snapshot so a slow reader never blocks publishers
			select {
			case <-ch:
			default:
			}
			ch <- lb
		}
	}
}

func (b *Board) subscribe() (<-chan domain.Leaderboard, func()) {
	ch := make(chan domain.Leaderboard, 8)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	// the channel is fresh, so this cannot block
	ch <- b.snapshotLocked()
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *Board) isEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers) == 0
}

func (b *Board) snapshotLocked() domain.Leaderboard {
	entries := make([]domain.LeaderboardEntry, len(b.entries))
	copy(entries, b.entries)
	return domain.Leaderboard{
		QuizID:    b.quizID,
		Entries:   entries,
		UpdatedAt: b.now(),
	}
}

// boards tracks live Boards by quiz ID.
type boards struct {
	mu     sync.Mutex
	byQuiz map[string]*Board
}

func newBoards() *boards {
	return &boards{byQuiz: make(map[string]*Board)}
}

// subscribe attaches to the quiz's board, creating it from seed when absent.
func (r *boards) subscribe(quizID string, seed []domain.LeaderboardEntry, now func() time.Time) (<-chan domain.Leaderboard, func()) {
	r.mu.Lock()
	b, ok := r.byQuiz[quizID]
	if !ok {
		b = newBoard(quizID, seed, now)
		r.byQuiz[quizID] = b
	}
	ch, cancelSub := b.subscribe()
	r.mu.Unlock()

	cancel := func() {
		cancelSub()
		r.deleteIfEmpty(quizID)
	}
	return ch, cancel
}

// refresh loads the current ranking and publishes it to the quiz's board.
// Refreshes of one quiz are serialized, and each load runs after its caller's
// write, so the last snapshot pushed includes every completed write.
func (r *boards) refresh(quizID string, load func() ([]domain.LeaderboardEntry, error)) ([]domain.LeaderboardEntry, error) {
	b, ok := r.get(quizID)
	if !ok {
		return load()
	}
	b.refreshMu.Lock()
	defer b.refreshMu.Unlock()
	entries, err := load()
	if err != nil {
		return nil, err
	}
	b.publish(entries)
	return entries, nil
}

func (r *boards) get(quizID string) (*Board, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.byQuiz[quizID]
	return b, ok
}

func (r *boards) deleteIfEmpty(quizID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.byQuiz[quizID]; ok && b.isEmpty() {
		delete(r.byQuiz, quizID)
	}
}
