package cli

import (
	"context"
	"log"

	"github.com/jackc/pgx/v4/pgxpool"
	"quizboard/internal/app"
	"quizboard/internal/config"
	"quizboard/internal/infra/memory"
	"quizboard/internal/infra/postgres"
	"quizboard/internal/infra/sqlite"
)

// openStore picks the persistence backend: Postgres, then SQLite, then memory.
// The returned func releases whatever was opened.
func openStore(ctx context.Context, cfg config.Config) (app.Store, func(), error) {
	switch {
	case cfg.Postgres.URL != "":
		db := postgres.OpenBun(cfg.Postgres.URL)
		if _, err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Printf("using postgres store")
		return postgres.NewStore(pool, postgres.NewCounter(db)), func() {
			pool.Close()
			db.Close()
		}, nil
	case cfg.SQLite.Path != "":
		store, err := sqlite.NewStore(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("using sqlite store at %s", cfg.SQLite.Path)
		return store, func() { store.Close() }, nil
	default:
		log.Printf("using in-memory store; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}
}
