package attempt

import (
	"errors"
	"testing"
	"time"

	"github.com/korenlms/portal/internal/model"
)

func opts() []model.Option {
	return []model.Option{{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"}}
}

func started(t *testing.T, ids ...model.ID) *Attempt {
	t.Helper()
	qs := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		qs = append(qs, model.Question{ID: id, QuestionType: model.QuestionTypeMCQ, Options: opts(), CorrectAnswers: []int{0}})
	}
	a := New("att-1", 7)
	if err := a.Begin(&model.StartedExam{AttemptToken: "tok", ExamType: model.ExamTypeMCQ, Questions: qs}, time.Now()); err != nil {
		t.Fatal(err)
	}
	return a
}

func TestBeginRequiresQuestions(t *testing.T) {
	a := New("x", 1)
	if err := a.Begin(&model.StartedExam{}, time.Now()); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("Begin = %v", err)
	}
	if a.Status != StatusLoading {
		t.Errorf("status = %s", a.Status)
	}
}

func TestSubmitRequiresEveryAnswer(t *testing.T) {
	a := started(t, 1, 2)
	_ = a.SelectAnswer(1, 0)

	_, err := a.BeginSubmit()
	var inc *IncompleteError
	if !errors.As(err, &inc) {
		t.Fatalf("BeginSubmit = %v, want IncompleteError", err)
	}
	if len(inc.Missing) != 1 || inc.Missing[0] != 2 {
		t.Errorf("missing = %v", inc.Missing)
	}
	if a.Status != StatusInProgress {
		t.Errorf("status changed to %s", a.Status)
	}

	_ = a.SelectAnswer(2, 1)
	answers, err := a.BeginSubmit()
	if err != nil {
		t.Fatal(err)
	}
	if a.Status != StatusSubmitting {
		t.Errorf("status = %s", a.Status)
	}
	if len(answers) != 2 || answers[0].QuestionID != 1 || *answers[0].SelectedIndex != 0 || *answers[1].SelectedIndex != 1 {
		t.Errorf("answers = %+v", answers)
	}
}

func TestSelectAnswerUpserts(t *testing.T) {
	a := started(t, 1, 2, 3)
	_ = a.Jump(1)
	_ = a.SelectAnswer(1, 0)
	_ = a.SelectAnswer(1, 3)

	if a.Answers[1] != 3 || len(a.Answers) != 1 {
		t.Errorf("answers = %v", a.Answers)
	}
	if a.Current != 1 {
		t.Errorf("current moved to %d", a.Current)
	}
	if err := a.SelectAnswer(9, 0); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("unknown question = %v", err)
	}
	if err := a.SelectAnswer(1, 4); !errors.Is(err, ErrBadOption) {
		t.Errorf("option 4 = %v", err)
	}
}

func TestNavigationIsBounded(t *testing.T) {
	a := started(t, 1, 2, 3)

	_ = a.Previous()
	if a.Current != 0 {
		t.Errorf("Previous at start moved to %d", a.Current)
	}
	_ = a.Next()
	_ = a.Next()
	_ = a.Next()
	if a.Current != 2 {
		t.Errorf("Next past end = %d", a.Current)
	}
	if err := a.Jump(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Jump(3) = %v", err)
	}
	if err := a.Jump(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Jump(-1) = %v", err)
	}
	if a.Current != 2 {
		t.Errorf("failed jump moved to %d", a.Current)
	}
	_ = a.Jump(0)
	if a.CurrentQuestion().ID != 1 {
		t.Errorf("CurrentQuestion = %+v", a.CurrentQuestion())
	}
}

func TestFailSubmitKeepsAnswers(t *testing.T) {
	a := started(t, 1, 2)
	_ = a.SelectAnswer(1, 2)
	_ = a.SelectAnswer(2, 3)
	if _, err := a.BeginSubmit(); err != nil {
		t.Fatal(err)
	}

	if err := a.FailSubmit(errors.New("connection reset")); err != nil {
		t.Fatal(err)
	}
	if a.Status != StatusInProgress || a.LastError != "connection reset" {
		t.Errorf("status %s lastError %q", a.Status, a.LastError)
	}
	if a.Answers[1] != 2 || a.Answers[2] != 3 {
		t.Errorf("answers lost: %v", a.Answers)
	}
	if _, err := a.BeginSubmit(); err != nil {
		t.Errorf("retry refused: %v", err)
	}
}

func TestFinishAndExport(t *testing.T) {
	a := started(t, 1)
	_ = a.SelectAnswer(1, 0)
	if _, err := a.Export(time.Now()); !errors.Is(err, ErrNotCompleted) {
		t.Errorf("Export before finish = %v", err)
	}
	_, _ = a.BeginSubmit()

	rid := model.ID(44)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if err := a.Finish(&model.SubmitResult{Summary: model.ResultSummary{Total: 1, Correct: 1, Percentage: 100}, ExamResultID: &rid}, now); err != nil {
		t.Fatal(err)
	}
	if err := a.SelectAnswer(1, 1); !errors.Is(err, ErrNotInProgress) {
		t.Errorf("answer after completion = %v", err)
	}

	exp, err := a.Export(now)
	if err != nil {
		t.Fatal(err)
	}
	if exp.AttemptToken != "tok" || *exp.ExamResultID != 44 || exp.Timestamp != "2024-05-01T10:00:00Z" {
		t.Errorf("export = %+v", exp)
	}
}

func TestProgressAndView(t *testing.T) {
	a := started(t, 1, 2, 3)
	_ = a.SelectAnswer(2, 1)
	if a.Progress() != 33 {
		t.Errorf("Progress = %d", a.Progress())
	}

	v := a.View()
	if v.AnsweredCount != 1 || len(v.Unanswered) != 2 || v.Total != 3 {
		t.Errorf("view = %+v", v)
	}
	for _, q := range v.Questions {
		if q.CorrectAnswers != nil {
			t.Errorf("question %d leaks correct answers", q.ID)
		}
	}
	if v.Questions[1].SelectedIndex == nil || *v.Questions[1].SelectedIndex != 1 {
		t.Errorf("selected index missing from view")
	}
}
