package http

import (
	"log"
	"net/http"
	"time"

	"quizboard/internal/app"
)

type API struct {
	quizzes *app.QuizService
	users   *app.UserService
	stats   *app.StatsService
}

func NewAPI(quizzes *app.QuizService, users *app.UserService, stats *app.StatsService) *API {
	return &API{
		quizzes: quizzes,
		users:   users,
		stats:   stats,
	}
}

// NewRouter mounts the REST API and the timed play socket on one mux.
func NewRouter(api *API, ws *WSHandler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /api/users/register", api.HandleRegister)
	mux.HandleFunc("POST /api/users/login", api.HandleLogin)
	mux.HandleFunc("POST /api/users/guest", api.HandleGuest)
	mux.HandleFunc("POST /api/users/logout", api.HandleLogout)

	mux.HandleFunc("GET /api/me", api.HandleMe)
	mux.HandleFunc("GET /api/me/activity", api.HandleMyActivity)
	mux.HandleFunc("GET /api/me/quizzes", api.HandleMyQuizzes)

	mux.HandleFunc("POST /api/quizzes", api.HandleCreateQuiz)
	mux.HandleFunc("GET /api/quizzes/{code}", api.HandleGetQuiz)
	mux.HandleFunc("GET /api/quizzes/{code}/manage", api.HandleManageQuiz)
	mux.HandleFunc("POST /api/quizzes/{code}/attempts", api.HandleSubmitAttempt)
	mux.HandleFunc("GET /api/quizzes/{code}/leaderboard", api.HandleLeaderboard)

	mux.HandleFunc("GET /api/stats", api.HandleStats)

	if ws != nil {
		mux.HandleFunc("GET /ws", ws.ServeWS)
	}
	return logRequests(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the socket endpoint needs the raw writer for Hijack
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.statusCode, time.Since(start).Round(time.Microsecond))
	})
}
