// Package play drives a single timed pass through a quiz.
package play

import (
	"math"
	"time"

	"quizboard/internal/domain"
)

// DefaultQuestionTime is the countdown each question starts with.
const DefaultQuestionTime = 30 * time.Second

// State is the phase of an attempt.
type State int

const (
	NotStarted State = iota
	InProgress
	Completed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Attempt is not safe for concurrent use; a single event loop owns it.
type Attempt struct {
	quiz         domain.Quiz
	questionTime int

	state     State
	index     int
	remaining int
	selected  int
	answers   []int
}

// NewAttempt prepares an attempt whose countdown ticks once per second.
func NewAttempt(quiz domain.Quiz, questionTime time.Duration) *Attempt {
	secs := int(questionTime / time.Second)
	if secs <= 0 {
		secs = int(DefaultQuestionTime / time.Second)
	}
	return &Attempt{
		quiz:         quiz,
		questionTime: secs,
		selected:     domain.NoAnswer,
	}
}

func (a *Attempt) State() State { return a.state }

// Index is the current question position.
func (a *Attempt) Index() int { return a.index }

// Total is the number of questions in the quiz.
func (a *Attempt) Total() int { return len(a.quiz.Questions) }

// Remaining is the countdown in seconds for the current question.
func (a *Attempt) Remaining() int { return a.remaining }

// Answers returns the committed answers so far.
func (a *Attempt) Answers() []int {
	return append([]int(nil), a.answers...)
}

// Start moves a fresh attempt to InProgress.
func (a *Attempt) Start() error {
	if a.state != NotStarted {
		return domain.ErrAttemptState
	}
	a.state = InProgress
	a.index = 0
	a.remaining = a.questionTime
	a.selected = domain.NoAnswer
	a.answers = make([]int, 0, len(a.quiz.Questions))
	if len(a.quiz.Questions) == 0 {
		a.state = Completed
	}
	return nil
}

// Select marks an option for the current question without committing it.
func (a *Attempt) Select(option int) error {
	if a.state != InProgress {
		return domain.ErrAttemptState
	}
	if option < 0 || option >= len(a.quiz.Questions[a.index].Options) {
		return &domain.ValidationError{Fields: []string{"option"}}
	}
	a.selected = option
	return nil
}

// Next commits the selection and advances. It reports whether the attempt completed.
func (a *Attempt) Next() (bool, error) {
	if a.state != InProgress {
		return false, domain.ErrAttemptState
	}
	if a.selected == domain.NoAnswer {
		return false, &domain.ValidationError{Fields: []string{"option"}}
	}
	return a.commit(a.selected), nil
}

// Tick consumes one second. At zero the question is recorded as unanswered
// and the attempt advances; advanced reports that case.
func (a *Attempt) Tick() (advanced, completed bool) {
	if a.state != InProgress {
		return false, a.state == Completed
	}
	a.remaining--
	if a.remaining > 0 {
		return false, false
	}
	return true, a.commit(domain.NoAnswer)
}

func (a *Attempt) commit(answer int) bool {
	a.answers = append(a.answers, answer)
	a.selected = domain.NoAnswer
	if a.index+1 >= len(a.quiz.Questions) {
		a.state = Completed
		a.remaining = 0
		return true
	}
	a.index++
	a.remaining = a.questionTime
	return false
}

// Result returns the score once the attempt is Completed.
func (a *Attempt) Result() (score, correct int, err error) {
	if a.state != Completed {
		return 0, 0, domain.ErrAttemptState
	}
	score, correct = Score(a.quiz, a.answers)
	return score, correct, nil
}

// Restart returns a fresh attempt on the same quiz.
func (a *Attempt) Restart() *Attempt {
	return &Attempt{quiz: a.quiz, questionTime: a.questionTime, selected: domain.NoAnswer}
}

// Score computes round(100 * correct / total). Missing answers count as wrong.
func Score(quiz domain.Quiz, answers []int) (score, correct int) {
	total := len(quiz.Questions)
	if total == 0 {
		return 0, 0
	}
	for i, q := range quiz.Questions {
		if i < len(answers) && answers[i] == q.CorrectAnswer {
			correct++
		}
	}
	return int(math.Round(100 * float64(correct) / float64(total))), correct
}
