package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"quizboard/internal/app"
	"quizboard/internal/domain"
	"quizboard/internal/play"
)

// WSHandler runs timed quiz attempts over a websocket.
type WSHandler struct {
	quizzes      *app.QuizService
	users        *app.UserService
	upgrader     websocket.Upgrader
	questionTime time.Duration
	tick         time.Duration
}

// WSOption customizes a WSHandler.
type WSOption func(*WSHandler)

// WithQuestionTime sets the countdown per question.
func WithQuestionTime(d time.Duration) WSOption {
	return func(h *WSHandler) {
		if d > 0 {
			h.questionTime = d
		}
	}
}

// WithTickInterval sets the wall-clock length of one countdown step. Tests shorten it.
func WithTickInterval(d time.Duration) WSOption {
	return func(h *WSHandler) {
		if d > 0 {
			h.tick = d
		}
	}
}

func NewWSHandler(quizzes *app.QuizService, users *app.UserService, opts ...WSOption) *WSHandler {
	h := &WSHandler{
		quizzes: quizzes,
		users:   users,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		questionTime: play.DefaultQuestionTime,
		tick:         time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Option *int `json:"option"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type questionPayload struct {
	Index     int                   `json:"index"`
	Total     int                   `json:"total"`
	Remaining int                   `json:"remaining"`
	Question  domain.PublicQuestion `json:"question"`
}

type tickPayload struct {
	Remaining int `json:"remaining"`
}

type completedPayload struct {
	Score   int         `json:"score"`
	Correct int         `json:"correct"`
	Total   int         `json:"total"`
	User    domain.User `json:"user"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS authenticates the player, resolves the quiz code and then hands the
// connection to a single event loop that owns the attempt.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	session, err := h.users.Authenticate(r.Context(), bearerToken(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	quiz, err := h.quizzes.GetQuiz(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, unsubscribe := h.quizzes.Subscribe(ctx, quiz)
	defer unsubscribe()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		broken := false
		for msg := range send {
			if broken {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				broken = true
				cancel()
			}
		}
	}()

	inbound := make(chan inboundMessage)
	go func() {
		defer close(inbound)
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case inbound <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	loop := &playLoop{
		ctx:      ctx,
		quizzes:  h.quizzes,
		session:  session,
		quiz:     quiz,
		attempt:  play.NewAttempt(quiz, h.questionTime),
		interval: h.tick,
		send:     send,
	}
	loop.run(inbound, updates)

	close(send)
	<-writerDone
}

// playLoop is confined to the handler goroutine; nothing else touches the attempt.
type playLoop struct {
	ctx      context.Context
	quizzes  *app.QuizService
	session  domain.Session
	quiz     domain.Quiz
	attempt  *play.Attempt
	interval time.Duration
	ticker   *time.Ticker
	send     chan<- outboundMessage
}

func (l *playLoop) run(inbound <-chan inboundMessage, updates <-chan domain.Leaderboard) {
	defer l.stopTicker()

	l.emit("quiz", l.quiz.Public())
	for {
		select {
		case <-l.ctx.Done():
			return
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			l.handle(msg)
		case update, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			l.emit("leaderboard", update)
		case <-l.tickC():
			advanced, completed := l.attempt.Tick()
			switch {
			case completed:
				l.finish()
			case advanced:
				l.emitQuestion()
			default:
				l.emit("tick", tickPayload{Remaining: l.attempt.Remaining()})
			}
		}
	}
}

func (l *playLoop) handle(msg inboundMessage) {
	switch msg.Type {
	case "start":
		if l.attempt.State() == play.Completed {
			l.attempt = l.attempt.Restart()
		}
		if err := l.attempt.Start(); err != nil {
			l.fail(err)
			return
		}
		if l.attempt.State() == play.Completed {
			l.finish()
			return
		}
		l.ticker = time.NewTicker(l.interval)
		l.emitQuestion()
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.Option == nil {
			l.emit("error", errorPayload{Message: "invalid select payload"})
			return
		}
		if err := l.attempt.Select(*payload.Option); err != nil {
			l.fail(err)
		}
	case "next":
		completed, err := l.attempt.Next()
		if err != nil {
			l.fail(err)
			return
		}
		if completed {
			l.finish()
			return
		}
		l.ticker.Reset(l.interval)
		l.emitQuestion()
	default:
		l.emit("error", errorPayload{Message: "unsupported message type"})
	}
}

func (l *playLoop) finish() {
	l.stopTicker()
	score, correct, err := l.attempt.Result()
	if err != nil {
		l.fail(err)
		return
	}
	result, err := l.quizzes.Complete(l.ctx, l.session, l.quiz, score, correct)
	if err != nil {
		log.Printf("complete attempt on %s: %v", l.quiz.Code, err)
		l.emit("error", errorPayload{Message: "could not record your score"})
		return
	}
	l.session.User = result.User
	l.emit("completed", completedPayload{
		Score:   result.Score,
		Correct: result.Correct,
		Total:   result.Total,
		User:    result.User,
	})
}

func (l *playLoop) emitQuestion() {
	l.emit("question", questionPayload{
		Index:     l.attempt.Index(),
		Total:     l.attempt.Total(),
		Remaining: l.attempt.Remaining(),
		Question:  l.quiz.Public().Questions[l.attempt.Index()],
	})
}

func (l *playLoop) fail(err error) {
	msg := err.Error()
	if errors.Is(err, domain.ErrAttemptState) {
		msg = "not allowed in state " + l.attempt.State().String()
	}
	l.emit("error", errorPayload{Message: msg})
}

func (l *playLoop) emit(typ string, payload any) {
	select {
	case l.send <- outboundMessage{Type: typ, Payload: payload}:
	case <-l.ctx.Done():
	}
}

func (l *playLoop) tickC() <-chan time.Time {
	if l.ticker == nil {
		return nil
	}
	return l.ticker.C
}

func (l *playLoop) stopTicker() {
	if l.ticker != nil {
		l.ticker.Stop()
		l.ticker = nil
	}
}
