package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"quizboard/internal/domain"
)

// Store is a single-node backend on an embedded SQLite file.
// Timestamps are stored as unix nanoseconds.
type Store struct {
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = "quizboard.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &Store{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			kind TEXT NOT NULL,
			password_hash BLOB,
			stats TEXT NOT NULL,
			created_at_unix INTEGER NOT NULL,
			updated_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS quizzes (
			id TEXT PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			questions TEXT NOT NULL,
			created_by TEXT NOT NULL,
			created_at_unix INTEGER NOT NULL,
			updated_at_unix INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_quizzes_created_by ON quizzes (created_by, created_at_unix DESC);`,
		`CREATE TABLE IF NOT EXISTS leaderboard_entries (
			id TEXT PRIMARY KEY,
			quiz_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			user_name TEXT NOT NULL,
			score INTEGER NOT NULL,
			completed_at_unix INTEGER NOT NULL,
			UNIQUE (quiz_id, user_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_leaderboard_rank ON leaderboard_entries (quiz_id, score DESC, completed_at_unix ASC);`,
		`CREATE TABLE IF NOT EXISTS recent_activities (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			quiz_id TEXT NOT NULL,
			quiz_title TEXT NOT NULL,
			quiz_code TEXT NOT NULL,
			score INTEGER NOT NULL,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_activities_user ON recent_activities (user_id, created_at_unix DESC);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	stats, err := json.Marshal(user.Stats)
	if err != nil {
		return domain.User{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, kind, password_hash, stats, created_at_unix, updated_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, string(user.Kind), user.PasswordHash, string(stats),
		user.CreatedAt.UnixNano(), user.UpdatedAt.UnixNano(),
	)
	if isConstraint(err) {
		return domain.User{}, domain.ErrEmailTaken
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.getUser(ctx, `email = ?`, email)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return s.getUser(ctx, `id = ?`, id)
}

func (s *Store) getUser(ctx context.Context, where, arg string) (domain.User, error) {
	var (
		user               domain.User
		kind, stats        string
		createdNs, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, kind, password_hash, stats, created_at_unix, updated_at_unix
		 FROM users WHERE `+where+` LIMIT 1`, arg,
	).Scan(&user.ID, &user.Name, &user.Email, &kind, &user.PasswordHash, &stats, &createdNs, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	user.Kind = domain.AccountKind(kind)
	user.CreatedAt = time.Unix(0, createdNs).UTC()
	user.UpdatedAt = time.Unix(0, updated).UTC()
	if err := json.Unmarshal([]byte(stats), &user.Stats); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *Store) UpdateUserStats(ctx context.Context, userID string, stats domain.UserStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET stats = ?, updated_at_unix = ? WHERE id = ?`,
		string(data), time.Now().UTC().UnixNano(), userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) (string, error) {
	questions, err := json.Marshal(quiz.Questions)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quizzes (id, code, title, description, questions, created_by, created_at_unix, updated_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		quiz.ID, quiz.Code, quiz.Title, quiz.Description, string(questions), quiz.CreatedBy,
		quiz.CreatedAt.UnixNano(), quiz.UpdatedAt.UnixNano(),
	)
	if isConstraint(err) {
		return "", domain.ErrCodeTaken
	}
	if err != nil {
		return "", err
	}
	return quiz.Code, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

const quizColumns = `id, code, title, description, questions, created_by, created_at_unix, updated_at_unix`

func scanQuiz(row rowScanner) (domain.Quiz, error) {
	var (
		quiz               domain.Quiz
		questions          string
		createdNs, updated int64
	)
	if err := row.Scan(&quiz.ID, &quiz.Code, &quiz.Title, &quiz.Description, &questions, &quiz.CreatedBy, &createdNs, &updated); err != nil {
		return domain.Quiz{}, err
	}
	quiz.CreatedAt = time.Unix(0, createdNs).UTC()
	quiz.UpdatedAt = time.Unix(0, updated).UTC()
	if err := json.Unmarshal([]byte(questions), &quiz.Questions); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (s *Store) GetQuizByCode(ctx context.Context, code string) (domain.Quiz, error) {
	quiz, err := scanQuiz(s.db.QueryRowContext(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE code = ?`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, err
}

func (s *Store) GetQuizzesByUser(ctx context.Context, userID string) ([]domain.Quiz, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE created_by = ? ORDER BY created_at_unix DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quizzes := make([]domain.Quiz, 0)
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

func (s *Store) QuizCodeExists(ctx context.Context, code string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM quizzes WHERE code = ?)`, code).Scan(&exists)
	return exists == 1, err
}

func (s *Store) GetLeaderboard(ctx context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error) {
	// LIMIT -1 means no limit in SQLite.
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, quiz_id, user_id, user_name, score, completed_at_unix
		 FROM leaderboard_entries
		 WHERE quiz_id = ?
		 ORDER BY score DESC, completed_at_unix ASC, user_id ASC
		 LIMIT ?`, quizID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0)
	for rows.Next() {
		var (
			e           domain.LeaderboardEntry
			completedNs int64
		)
		if err := rows.Scan(&e.ID, &e.QuizID, &e.UserID, &e.UserName, &e.Score, &completedNs); err != nil {
			return nil, err
		}
		e.CompletedAt = time.Unix(0, completedNs).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SaveEntry upserts on the (quiz_id, user_id) key and only ever raises a score.
func (s *Store) SaveEntry(ctx context.Context, entry domain.LeaderboardEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leaderboard_entries (id, quiz_id, user_id, user_name, score, completed_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (quiz_id, user_id) DO UPDATE
		 SET score = excluded.score, user_name = excluded.user_name, completed_at_unix = excluded.completed_at_unix
		 WHERE leaderboard_entries.score < excluded.score`,
		entry.ID, entry.QuizID, entry.UserID, entry.UserName, entry.Score, entry.CompletedAt.UnixNano(),
	)
	return err
}

func (s *Store) AddRecentActivity(ctx context.Context, activity domain.RecentActivity, keep int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO recent_activities (id, user_id, quiz_id, quiz_title, quiz_code, score, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		activity.ID, activity.UserID, activity.QuizID, activity.QuizTitle, activity.QuizCode, activity.Score,
		activity.CreatedAt.UnixNano(),
	); err != nil {
		return err
	}
	if keep > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM recent_activities
			 WHERE user_id = ? AND id NOT IN (
				SELECT id FROM recent_activities WHERE user_id = ?
				ORDER BY created_at_unix DESC, rowid DESC LIMIT ?
			 )`,
			activity.UserID, activity.UserID, keep,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) GetRecentActivities(ctx context.Context, userID string, limit int) ([]domain.RecentActivity, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, quiz_id, quiz_title, quiz_code, score, created_at_unix
		 FROM recent_activities WHERE user_id = ?
		 ORDER BY created_at_unix DESC, rowid DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.RecentActivity, 0)
	for rows.Next() {
		var (
			a         domain.RecentActivity
			createdNs int64
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuizID, &a.QuizTitle, &a.QuizCode, &a.Score, &createdNs); err != nil {
			return nil, err
		}
		a.CreatedAt = time.Unix(0, createdNs).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM users`)
}

func (s *Store) CountQuizzes(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM quizzes`)
}

func (s *Store) CountAttempts(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM leaderboard_entries`)
}

func (s *Store) count(ctx context.Context, query string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, query).Scan(&n)
	return n, err
}

func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
