package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	pgmigrations "quizboard/internal/infra/postgres/migrations"
)

// OpenBun opens a bun handle used for migrations and counters.
func OpenBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Migrate applies every pending schema migration.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, err
	}
	return migrator.Migrate(ctx)
}

// Counter answers the platform statistics queries.
type Counter struct {
	db *bun.DB
}

func NewCounter(db *bun.DB) *Counter {
	return &Counter{db: db}
}

func (c *Counter) CountUsers(ctx context.Context) (int64, error) {
	return c.count(ctx, "users")
}

func (c *Counter) CountQuizzes(ctx context.Context) (int64, error) {
	return c.count(ctx, "quizzes")
}

func (c *Counter) CountAttempts(ctx context.Context) (int64, error) {
	return c.count(ctx, "leaderboard_entries")
}

func (c *Counter) count(ctx context.Context, table string) (int64, error) {
	n, err := c.db.NewSelect().Table(table).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return int64(n), nil
}
