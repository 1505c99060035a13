package attempt

import (
	"time"

	"github.com/korenlms/portal/internal/model"
)

// QuestionView is a question as shown to the student; correct answers are
// only revealed once the attempt is completed.
type QuestionView struct {
	ID             model.ID             `json:"id"`
	QuestionText   string               `json:"questionText"`
	QuestionType   model.QuestionType   `json:"questionType"`
	QuestionFormat model.QuestionFormat `json:"questionFormat"`
	QuestionImage  *string              `json:"questionImage"`
	AnswerType     model.AnswerType     `json:"answerType"`
	Options        []model.Option       `json:"options"`
	AudioLink      string               `json:"audioLink,omitempty"`
	TimeLimit      int                  `json:"timeLimit"`
	CorrectAnswers []int                `json:"correctAnswers,omitempty"`
	SelectedIndex  *int                 `json:"selectedIndex"`
}

// View is the client-facing snapshot of an attempt.
type View struct {
	ID            string              `json:"id"`
	Status        Status              `json:"status"`
	ExamType      model.ExamType      `json:"examType"`
	Current       int                 `json:"currentIndex"`
	Total         int                 `json:"totalQuestions"`
	AnsweredCount int                 `json:"answeredCount"`
	Progress      int                 `json:"progress"`
	Unanswered    []model.ID          `json:"unanswered"`
	Questions     []QuestionView      `json:"questions"`
	LastError     string              `json:"lastError,omitempty"`
	Result        *model.SubmitResult `json:"result,omitempty"`
	Performance   *model.Performance  `json:"performance,omitempty"`
	StartedAt     time.Time           `json:"startedAt"`
	CompletedAt   *time.Time          `json:"completedAt,omitempty"`
}

// View renders the attempt for the student.
func (a *Attempt) View() View {
	v := View{
		ID:            a.ID,
		Status:        a.Status,
		ExamType:      a.ExamType,
		Current:       a.Current,
		Total:         len(a.Questions),
		AnsweredCount: a.AnsweredCount(),
		Progress:      a.Progress(),
		Unanswered:    a.Unanswered(),
		Questions:     make([]QuestionView, 0, len(a.Questions)),
		LastError:     a.LastError,
		Result:        a.Result,
		StartedAt:     a.StartedAt,
		CompletedAt:   a.CompletedAt,
	}
	if v.Unanswered == nil {
		v.Unanswered = []model.ID{}
	}

	done := a.Status == StatusCompleted
	for _, q := range a.Questions {
		qv := QuestionView{
			ID:             q.ID,
			QuestionText:   q.QuestionText,
			QuestionType:   q.QuestionType,
			QuestionFormat: q.QuestionFormat,
			QuestionImage:  q.QuestionImage,
			AnswerType:     q.AnswerType,
			Options:        q.Options,
			AudioLink:      q.AudioLink,
			TimeLimit:      q.TimeLimit,
		}
		if idx, ok := a.Answers[q.ID]; ok {
			idx := idx
			qv.SelectedIndex = &idx
		}
		if done {
			qv.CorrectAnswers = q.CorrectAnswers
		}
		v.Questions = append(v.Questions, qv)
	}

	if a.Result != nil {
		p := model.PerformanceFor(a.Result.Summary.Percentage)
		v.Performance = &p
	}
	return v
}
