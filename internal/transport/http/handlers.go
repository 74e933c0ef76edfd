package http

import (
	"net/http"

	"quizboard/internal/domain"
	"quizboard/internal/leaderboard"
)

func (a *API) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := a.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: session.Token, User: session.User})
}

func (a *API) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := a.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: session.Token, User: session.User})
}

func (a *API) HandleGuest(w http.ResponseWriter, r *http.Request) {
	// the body is optional for guests
	var req guestRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	session, err := a.users.Guest(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: session.Token, User: session.User})
}

func (a *API) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.users.Logout(r.Context(), bearerToken(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) HandleMe(w http.ResponseWriter, r *http.Request) {
	session, ok := a.authenticate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.User)
}

func (a *API) HandleMyActivity(w http.ResponseWriter, r *http.Request) {
	session, ok := a.authenticate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.users.RecentActivity(r.Context(), session.User))
}

func (a *API) HandleMyQuizzes(w http.ResponseWriter, r *http.Request) {
	session, ok := a.authenticate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, a.quizzes.QuizzesByUser(r.Context(), session.User.ID))
}

func (a *API) HandleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	session, ok := a.authenticate(w, r)
	if !ok {
		return
	}
	var req createQuizRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	quiz, user, err := a.quizzes.CreateQuiz(r.Context(), session, req.draft())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createQuizResponse{Code: quiz.Code, Quiz: quiz, User: user})
}

func (a *API) HandleGetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := a.quizzes.GetQuiz(r.Context(), r.PathValue("code"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz.Public())
}

func (a *API) HandleManageQuiz(w http.ResponseWriter, r *http.Request) {
	session, ok := a.authenticate(w, r)
	if !ok {
		return
	}
	overview, err := a.quizzes.Overview(r.Context(), session, r.PathValue("code"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (a *API) HandleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	session, ok := a.authenticate(w, r)
	if !ok {
		return
	}
	var req attemptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Answers == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "answers is required"})
		return
	}
	result, err := a.quizzes.SubmitAttempt(r.Context(), session, r.PathValue("code"), req.Answers)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLeaderboardLimit(r, leaderboard.DefaultLimit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	quiz, entries, err := a.quizzes.Leaderboard(r.Context(), r.PathValue("code"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{
		QuizID:       quiz.ID,
		Code:         quiz.Code,
		Title:        quiz.Title,
		Entries:      entries,
		AverageScore: leaderboard.Average(entries),
	})
}

func (a *API) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.stats.Stats(r.Context()))
}

func (a *API) authenticate(w http.ResponseWriter, r *http.Request) (domain.Session, bool) {
	session, err := a.users.Authenticate(r.Context(), bearerToken(r))
	if err != nil {
		writeServiceError(w, err)
		return domain.Session{}, false
	}
	return session, true
}
