package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func doJSON(t *testing.T, method, url, token string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func TestRESTCreateTakeAndRank(t *testing.T) {
	srv := newTestServer(t)

	var author sessionResponse
	status := doJSON(t, http.MethodPost, srv.URL+"/api/users/register", "",
		registerRequest{Name: "Alice", Email: "Alice@Example.com", Password: "secret"}, &author)
	if status != http.StatusCreated || author.Token == "" {
		t.Fatalf("register status=%d token=%q", status, author.Token)
	}
	if status := doJSON(t, http.MethodPost, srv.URL+"/api/users/register", "",
		registerRequest{Name: "Alice", Email: "alice@example.com", Password: "x"}, nil); status != http.StatusConflict {
		t.Fatalf("duplicate register status=%d, want 409", status)
	}

	var created createQuizResponse
	status = doJSON(t, http.MethodPost, srv.URL+"/api/quizzes", author.Token, createQuizRequest{
		Title: "Sample",
		Questions: []questionRequest{
			{Question: "Pick the third", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 2},
		},
	}, &created)
	if status != http.StatusCreated || len(created.Code) != 6 {
		t.Fatalf("create status=%d code=%q", status, created.Code)
	}
	if created.User.Stats.QuizzesCreated != 1 {
		t.Fatalf("expected creator stats, got %+v", created.User.Stats)
	}

	var public map[string]any
	if status := doJSON(t, http.MethodGet, srv.URL+"/api/quizzes/"+created.Code, "", nil, &public); status != http.StatusOK {
		t.Fatalf("get quiz status=%d", status)
	}
	raw, _ := json.Marshal(public)
	if strings.Contains(string(raw), "correctAnswer") {
		t.Fatalf("public quiz leaks answers: %s", raw)
	}

	var result struct {
		Score int `json:"score"`
		Total int `json:"total"`
	}
	status = doJSON(t, http.MethodPost, srv.URL+"/api/quizzes/"+created.Code+"/attempts", author.Token,
		attemptRequest{Answers: []int{2}}, &result)
	if status != http.StatusOK || result.Score != 100 || result.Total != 1 {
		t.Fatalf("attempt status=%d result=%+v", status, result)
	}

	var board leaderboardResponse
	if status := doJSON(t, http.MethodGet, srv.URL+"/api/quizzes/"+created.Code+"/leaderboard?limit=10", "", nil, &board); status != http.StatusOK {
		t.Fatalf("leaderboard status=%d", status)
	}
	if len(board.Entries) != 1 || board.Entries[0].Score != 100 || board.Entries[0].UserName != "Alice" {
		t.Fatalf("unexpected leaderboard %+v", board)
	}

	var activity []map[string]any
	if status := doJSON(t, http.MethodGet, srv.URL+"/api/me/activity", author.Token, nil, &activity); status != http.StatusOK || len(activity) != 1 {
		t.Fatalf("activity status=%d len=%d", status, len(activity))
	}

	var login sessionResponse
	if status := doJSON(t, http.MethodPost, srv.URL+"/api/users/login", "",
		loginRequest{Email: "alice@example.com", Password: "secret"}, &login); status != http.StatusOK {
		t.Fatalf("login status=%d", status)
	}
	if login.User.Stats.BestScore != 100 || login.User.Stats.QuizzesCreated != 1 {
		t.Fatalf("login user missing stats: %+v", login.User.Stats)
	}
}

func TestRESTAuthAndErrors(t *testing.T) {
	srv := newTestServer(t)

	if status := doJSON(t, http.MethodGet, srv.URL+"/api/me", "", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("me without token status=%d", status)
	}
	if status := doJSON(t, http.MethodPost, srv.URL+"/api/users/login", "",
		loginRequest{Email: "nobody@example.com", Password: "x"}, nil); status != http.StatusUnauthorized {
		t.Fatalf("unknown login status=%d", status)
	}

	var owner, other sessionResponse
	doJSON(t, http.MethodPost, srv.URL+"/api/users/guest", "", guestRequest{Name: "Owner"}, &owner)
	doJSON(t, http.MethodPost, srv.URL+"/api/users/guest", "", nil, &other)
	if other.User.Name != "Guest User" {
		t.Fatalf("default guest name = %q", other.User.Name)
	}

	var invalid errorResponse
	if status := doJSON(t, http.MethodPost, srv.URL+"/api/quizzes", owner.Token,
		createQuizRequest{Title: "No questions"}, &invalid); status != http.StatusBadRequest {
		t.Fatalf("invalid quiz status=%d", status)
	}

	var created createQuizResponse
	doJSON(t, http.MethodPost, srv.URL+"/api/quizzes", owner.Token, createQuizRequest{
		Title:     "Mine",
		Questions: []questionRequest{{Question: "q", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: 0}},
	}, &created)

	if status := doJSON(t, http.MethodGet, srv.URL+"/api/quizzes/"+created.Code+"/manage", other.Token, nil, nil); status != http.StatusForbidden {
		t.Fatalf("manage by other status=%d", status)
	}
	if status := doJSON(t, http.MethodGet, srv.URL+"/api/quizzes/"+created.Code+"/manage", owner.Token, nil, nil); status != http.StatusOK {
		t.Fatalf("manage by owner status=%d", status)
	}
	if status := doJSON(t, http.MethodPost, srv.URL+"/api/quizzes/"+created.Code+"/attempts", other.Token,
		attemptRequest{Answers: []int{0, 1}}, nil); status != http.StatusBadRequest {
		t.Fatalf("wrong answer count status=%d", status)
	}
	if status := doJSON(t, http.MethodGet, srv.URL+"/api/quizzes/NOPE00", "", nil, nil); status != http.StatusNotFound {
		t.Fatalf("missing quiz status=%d", status)
	}
	if status := doJSON(t, http.MethodGet, srv.URL+"/api/quizzes/"+created.Code+"/leaderboard?limit=abc", "", nil, nil); status != http.StatusBadRequest {
		t.Fatalf("bad limit status=%d", status)
	}
}

func TestOversizedBodyRejected(t *testing.T) {
	srv := newTestServer(t)
	var guest sessionResponse
	doJSON(t, http.MethodPost, srv.URL+"/api/users/guest", "", nil, &guest)

	huge := createQuizRequest{
		Title:     "Big",
		Questions: []questionRequest{{Question: strings.Repeat("x", maxBodyBytes+1), Options: []string{"a", "b", "c", "d"}}},
	}
	var resp errorResponse
	if status := doJSON(t, http.MethodPost, srv.URL+"/api/quizzes", guest.Token, huge, &resp); status != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized body status=%d, want 413", status)
	}
	if n, _ := srv.store.CountQuizzes(context.Background()); n != 0 {
		t.Fatalf("oversized quiz was stored")
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	var stats struct {
		TotalUsers    int64 `json:"totalUsers"`
		TotalQuizzes  int64 `json:"totalQuizzes"`
		TotalAttempts int64 `json:"totalAttempts"`
	}
	if status := doJSON(t, http.MethodGet, srv.URL+"/api/stats", "", nil, &stats); status != http.StatusOK {
		t.Fatalf("stats status=%d", status)
	}
	if stats.TotalUsers != 0 || stats.TotalQuizzes != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "bearer abc")
	if got := bearerToken(req); got != "abc" {
		t.Fatalf("header token = %q", got)
	}
	req = httptest.NewRequest(http.MethodGet, "/ws?token=xyz", nil)
	if got := bearerToken(req); got != "xyz" {
		t.Fatalf("query token = %q", got)
	}
}

func TestParseLeaderboardLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/leaderboard", nil)
	if got, err := parseLeaderboardLimit(req, 100); err != nil || got != 100 {
		t.Fatalf("default parseLeaderboardLimit = (%d, %v), want (100, nil)", got, err)
	}
	req = httptest.NewRequest(http.MethodGet, "/leaderboard?limit=-1", nil)
	if got, err := parseLeaderboardLimit(req, 100); err != nil || got != -1 {
		t.Fatalf("negative parseLeaderboardLimit = (%d, %v), want (-1, nil)", got, err)
	}
}
