package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quizboard/internal/domain"
)

const uniqueViolation = "23505"

// Store persists users, quizzes and scores in Postgres.
// Questions live in a JSONB column since they have no identity outside their quiz.
type Store struct {
	pool *pgxpool.Pool
	*Counter
}

func NewStore(pool *pgxpool.Pool, counter *Counter) *Store {
	return &Store{pool: pool, Counter: counter}
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	stats, err := json.Marshal(user.Stats)
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal stats: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, kind, password_hash, stats, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Name, user.Email, string(user.Kind), user.PasswordHash, stats, user.CreatedAt, user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.User{}, domain.ErrEmailTaken
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return s.getUser(ctx, `WHERE email = $1`, email)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return s.getUser(ctx, `WHERE id = $1`, id)
}

func (s *Store) getUser(ctx context.Context, where string, arg string) (domain.User, error) {
	var (
		user  domain.User
		kind  string
		stats []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, kind, password_hash, stats, created_at, updated_at FROM users `+where, arg,
	).Scan(&user.ID, &user.Name, &user.Email, &kind, &user.PasswordHash, &stats, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	user.Kind = domain.AccountKind(kind)
	if err := json.Unmarshal(stats, &user.Stats); err != nil {
		return domain.User{}, fmt.Errorf("unmarshal stats: %w", err)
	}
	return user, nil
}

func (s *Store) UpdateUserStats(ctx context.Context, userID string, stats domain.UserStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE users SET stats = $2, updated_at = now() WHERE id = $1`, userID, data)
	if err != nil {
		return fmt.Errorf("update stats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) CreateQuiz(ctx context.Context, quiz domain.Quiz) (string, error) {
	questions, err := json.Marshal(quiz.Questions)
	if err != nil {
		return "", fmt.Errorf("marshal questions: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quizzes (id, code, title, description, questions, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		quiz.ID, quiz.Code, quiz.Title, quiz.Description, questions, quiz.CreatedBy, quiz.CreatedAt, quiz.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return "", domain.ErrCodeTaken
	}
	if err != nil {
		return "", fmt.Errorf("insert quiz: %w", err)
	}
	return quiz.Code, nil
}

const quizColumns = `id, code, title, description, questions, created_by, created_at, updated_at`

func (s *Store) GetQuizByCode(ctx context.Context, code string) (domain.Quiz, error) {
	quiz, err := scanQuiz(s.pool.QueryRow(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return quiz, nil
}

func (s *Store) GetQuizzesByUser(ctx context.Context, userID string) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+quizColumns+` FROM quizzes WHERE created_by = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	quizzes := make([]domain.Quiz, 0)
	for rows.Next() {
		quiz, err := scanQuiz(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

func (s *Store) QuizCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quizzes WHERE code = $1)`, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("check code: %w", err)
	}
	return exists, nil
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var (
		quiz      domain.Quiz
		questions []byte
	)
	if err := row.Scan(&quiz.ID, &quiz.Code, &quiz.Title, &quiz.Description, &questions, &quiz.CreatedBy, &quiz.CreatedAt, &quiz.UpdatedAt); err != nil {
		return domain.Quiz{}, err
	}
	if err := json.Unmarshal(questions, &quiz.Questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	return quiz, nil
}

func (s *Store) GetLeaderboard(ctx context.Context, quizID string, limit int) ([]domain.LeaderboardEntry, error) {
	query := `SELECT id, quiz_id, user_id, user_name, score, completed_at
		 FROM leaderboard_entries
		 WHERE quiz_id = $1
		 ORDER BY score DESC, completed_at ASC, user_id ASC`
	args := []interface{}{quizID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LeaderboardEntry, 0)
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.QuizID, &e.UserID, &e.UserName, &e.Score, &e.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SaveEntry relies on the (quiz_id, user_id) unique key so concurrent
// submissions for one user cannot overwrite a better score.
func (s *Store) SaveEntry(ctx context.Context, entry domain.LeaderboardEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO leaderboard_entries (id, quiz_id, user_id, user_name, score, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (quiz_id, user_id) DO UPDATE
		 SET score = EXCLUDED.score, user_name = EXCLUDED.user_name, completed_at = EXCLUDED.completed_at
		 WHERE leaderboard_entries.score < EXCLUDED.score`,
		entry.ID, entry.QuizID, entry.UserID, entry.UserName, entry.Score, entry.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

func (s *Store) AddRecentActivity(ctx context.Context, activity domain.RecentActivity, keep int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO recent_activities (id, user_id, quiz_id, quiz_title, quiz_code, score, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		activity.ID, activity.UserID, activity.QuizID, activity.QuizTitle, activity.QuizCode, activity.Score, activity.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	if keep > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM recent_activities
			 WHERE user_id = $1 AND id NOT IN (
				SELECT id FROM recent_activities WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2
			 )`,
			activity.UserID, keep,
		); err != nil {
			return fmt.Errorf("trim activity: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) GetRecentActivities(ctx context.Context, userID string, limit int) ([]domain.RecentActivity, error) {
	query := `SELECT id, user_id, quiz_id, quiz_title, quiz_code, score, created_at
		 FROM recent_activities WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RecentActivity, 0)
	for rows.Next() {
		var a domain.RecentActivity
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuizID, &a.QuizTitle, &a.QuizCode, &a.Score, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
