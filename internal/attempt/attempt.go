// Package attempt is the exam-taking state machine. An Attempt moves
// loading → in_progress → submitting → completed and falls back from
// submitting to in_progress when a submission fails.
package attempt

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/korenlms/portal/internal/model"
)

type Status string

const (
	StatusLoading    Status = "loading"
	StatusInProgress Status = "in_progress"
	StatusSubmitting Status = "submitting"
	StatusCompleted  Status = "completed"
)

var (
	ErrNotInProgress   = errors.New("attempt is not in progress")
	ErrNotSubmitting   = errors.New("attempt is not being submitted")
	ErrNotCompleted    = errors.New("attempt is not completed")
	ErrNoQuestions     = errors.New("exam has no questions")
	ErrUnknownQuestion = errors.New("question is not part of this attempt")
	ErrIndexOutOfRange = errors.New("question index out of range")
	ErrBadOption       = errors.New("option index out of range")
)

// IncompleteError is returned by BeginSubmit while questions are unanswered.
type IncompleteError struct {
	Missing []model.ID
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%d question(s) unanswered", len(e.Missing))
}

// Attempt is one student's pass through a drawn exam.
type Attempt struct {
	ID                string              `json:"id"`
	UserID            model.ID            `json:"user_id"`
	Token             string              `json:"attempt_token"`
	ExamType          model.ExamType      `json:"exam_type"`
	NumberOfQuestions int                 `json:"number_of_questions"`
	Questions         []model.Question    `json:"questions"`
	Answers           map[model.ID]int    `json:"answers"`
	Current           int                 `json:"current"`
	Status            Status              `json:"status"`
	LastError         string              `json:"last_error,omitempty"`
	Result            *model.SubmitResult `json:"result,omitempty"`
	StartedAt         time.Time           `json:"started_at"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty"`
	// Version counts stored revisions. Stores refuse a save made from an
	// older revision.
	Version int64 `json:"version"`
}

// New returns an attempt waiting for its questions.
func New(id string, userID model.ID) *Attempt {
	return &Attempt{
		ID:      id,
		UserID:  userID,
		Answers: make(map[model.ID]int),
		Status:  StatusLoading,
	}
}

// Begin loads the questions the server drew and starts the attempt.
func (a *Attempt) Begin(exam *model.StartedExam, now time.Time) error {
	if a.Status != StatusLoading {
		return fmt.Errorf("begin: attempt is %s", a.Status)
	}
	if exam == nil || len(exam.Questions) == 0 {
		return ErrNoQuestions
	}
	a.Token = exam.AttemptToken
	a.ExamType = exam.ExamType
	a.NumberOfQuestions = exam.NumberOfQuestions
	a.Questions = exam.Questions
	a.Current = 0
	a.StartedAt = now
	a.Status = StatusInProgress
	return nil
}

func (a *Attempt) question(id model.ID) *model.Question {
	for i := range a.Questions {
		if a.Questions[i].ID == id {
			return &a.Questions[i]
		}
	}
	return nil
}

// SelectAnswer records option as the answer to questionID, replacing any
// earlier choice. The current index is left alone.
func (a *Attempt) SelectAnswer(questionID model.ID, option int) error {
	if a.Status != StatusInProgress {
		return ErrNotInProgress
	}
	q := a.question(questionID)
	if q == nil {
		return ErrUnknownQuestion
	}
	n := len(q.Options)
	if n == 0 {
		n = model.OptionCount
	}
	if option < 0 || option >= n {
		return ErrBadOption
	}
	if a.Answers == nil {
		a.Answers = make(map[model.ID]int)
	}
	a.Answers[questionID] = option
	return nil
}

// Next moves forward one question; it does nothing on the last question.
func (a *Attempt) Next() error {
	if a.Status != StatusInProgress {
		return ErrNotInProgress
	}
	if a.Current < len(a.Questions)-1 {
		a.Current++
	}
	return nil
}

// Previous moves back one question; it does nothing on the first question.
func (a *Attempt) Previous() error {
	if a.Status != StatusInProgress {
		return ErrNotInProgress
	}
	if a.Current > 0 {
		a.Current--
	}
	return nil
}

// Jump moves to question i. An index outside the attempt is rejected and
// the position is kept.
func (a *Attempt) Jump(i int) error {
	if a.Status != StatusInProgress {
		return ErrNotInProgress
	}
	if i < 0 || i >= len(a.Questions) {
		return ErrIndexOutOfRange
	}
	a.Current = i
	return nil
}

// CurrentQuestion returns the question at the current index.
func (a *Attempt) CurrentQuestion() *model.Question {
	if a.Current < 0 || a.Current >= len(a.Questions) {
		return nil
	}
	return &a.Questions[a.Current]
}

// Unanswered lists unanswered question ids in exam order.
func (a *Attempt) Unanswered() []model.ID {
	var out []model.ID
	for _, q := range a.Questions {
		if _, ok := a.Answers[q.ID]; !ok {
			out = append(out, q.ID)
		}
	}
	return out
}

// AnsweredCount counts answered questions of this attempt.
func (a *Attempt) AnsweredCount() int {
	n := 0
	for _, q := range a.Questions {
		if _, ok := a.Answers[q.ID]; ok {
			n++
		}
	}
	return n
}

// Progress is the answered share as a rounded percentage.
func (a *Attempt) Progress() int {
	if len(a.Questions) == 0 {
		return 0
	}
	return int(math.Round(float64(a.AnsweredCount()) * 100 / float64(len(a.Questions))))
}

// BeginSubmit moves to submitting and returns the answers in exam order.
// While any question is unanswered it returns *IncompleteError and leaves
// the attempt unchanged.
func (a *Attempt) BeginSubmit() ([]model.SubmittedAnswer, error) {
	if a.Status != StatusInProgress {
		return nil, ErrNotInProgress
	}
	if missing := a.Unanswered(); len(missing) > 0 {
		return nil, &IncompleteError{Missing: missing}
	}

	answers := make([]model.SubmittedAnswer, 0, len(a.Questions))
	for _, q := range a.Questions {
		sa := model.SubmittedAnswer{QuestionID: q.ID}
		if idx, ok := a.Answers[q.ID]; ok {
			idx := idx
			sa.SelectedIndex = &idx
		}
		answers = append(answers, sa)
	}
	a.Status = StatusSubmitting
	a.LastError = ""
	return answers, nil
}

// FailSubmit returns a submitting attempt to in_progress with its answers intact.
func (a *Attempt) FailSubmit(cause error) error {
	if a.Status != StatusSubmitting {
		return ErrNotSubmitting
	}
	a.Status = StatusInProgress
	if cause != nil {
		a.LastError = cause.Error()
	}
	return nil
}

// Finish records the server's grading and completes the attempt.
func (a *Attempt) Finish(res *model.SubmitResult, now time.Time) error {
	if a.Status != StatusSubmitting {
		return ErrNotSubmitting
	}
	a.Result = res
	a.CompletedAt = &now
	a.Status = StatusCompleted
	return nil
}

// Export is the downloadable result document of a completed attempt.
func (a *Attempt) Export(now time.Time) (*model.ResultExport, error) {
	if a.Status != StatusCompleted || a.Result == nil {
		return nil, ErrNotCompleted
	}
	return &model.ResultExport{
		ExamType:     a.ExamType,
		Timestamp:    now.UTC().Format(time.RFC3339),
		Summary:      a.Result.Summary,
		AttemptToken: a.Token,
		ExamResultID: a.Result.ExamResultID,
	}, nil
}
