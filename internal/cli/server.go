package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"quizboard/internal/app"
	"quizboard/internal/codegen"
	"quizboard/internal/config"
	"quizboard/internal/infra/memory"
	infraredis "quizboard/internal/infra/redis"
	"quizboard/internal/leaderboard"
	"quizboard/internal/play"
	transport "quizboard/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizCache app.QuizReader
	if redisClient != nil {
		quizCache = infraredis.NewQuizCache(redisClient, store, quizTTL)
	} else {
		quizCache = memory.NewQuizCache(store, quizTTL)
	}

	sessionTTL := config.TTLDuration(cfg.Session.TTL, config.TTLDuration(cfg.Redis.TTL, 24*time.Hour))
	var sessions app.SessionStore
	if redisClient != nil {
		sessions = infraredis.NewSessionStore(redisClient, sessionTTL)
	} else {
		sessions = memory.NewSessionStore(sessionTTL)
	}

	users := app.NewUserService(store, store, sessions)
	quizzes := app.NewQuizService(store, quizCache,
		codegen.NewGenerator(config.IntOr(cfg.Quiz.CodeAttempts, codegen.DefaultMaxAttempts)),
		users,
		app.WithLeaderboardLimit(config.IntOr(cfg.Leaderboard.Limit, leaderboard.DefaultLimit)),
	)
	stats := app.NewStatsService(store)

	wsHandler := transport.NewWSHandler(quizzes, users,
		transport.WithQuestionTime(config.TTLDuration(cfg.Quiz.QuestionTime, play.DefaultQuestionTime)),
	)
	router := transport.NewRouter(transport.NewAPI(quizzes, users, stats), wsHandler)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizboard on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
