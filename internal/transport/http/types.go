package http

import "quizboard/internal/domain"

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type guestRequest struct {
	Name string `json:"name"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type questionRequest struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

type createQuizRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Questions   []questionRequest `json:"questions"`
}

func (r createQuizRequest) draft() domain.Quiz {
	questions := make([]domain.Question, 0, len(r.Questions))
	for _, q := range r.Questions {
		questions = append(questions, domain.Question{
			Prompt:        q.Question,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
		})
	}
	return domain.Quiz{
		Title:       r.Title,
		Description: r.Description,
		Questions:   questions,
	}
}

type createQuizResponse struct {
	Code string      `json:"code"`
	Quiz domain.Quiz `json:"quiz"`
	User domain.User `json:"user"`
}

type attemptRequest struct {
	Answers []int `json:"answers"`
}

type leaderboardResponse struct {
	QuizID       string                    `json:"quizId"`
	Code         string                    `json:"code"`
	Title        string                    `json:"title"`
	Entries      []domain.LeaderboardEntry `json:"entries"`
	AverageScore int                       `json:"averageScore"`
}

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}
