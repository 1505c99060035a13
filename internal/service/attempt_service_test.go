package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/korenlms/portal/internal/attempt"
	"github.com/korenlms/portal/internal/model"
	"github.com/korenlms/portal/internal/phpapi"
	"github.com/korenlms/portal/internal/repository"
	"github.com/rs/zerolog"
)

func drawnQuestion(id int) map[string]interface{} {
	return map[string]interface{}{
		"id":             id,
		"questionText":   "Pick one",
		"questionType":   "mcq",
		"questionFormat": "normal",
		"answerType":     "single",
		"options": []map[string]interface{}{
			{"text": "a"}, {"text": "b"}, {"text": "c"}, {"text": "d"},
		},
		"correctAnswers": []int{1},
	}
}

func startedAttempt(t *testing.T) (*AttemptService, *fakePHP, *memAttempts, *memQueue, *attempt.Attempt) {
	t.Helper()
	php, api := newFakePHP(t)
	php.handle("POST /takeExam.php?startExam", ok(map[string]interface{}{
		"attemptToken": "tok-1",
		"questions":    []interface{}{drawnQuestion(11), drawnQuestion(12)},
	}))
	store, queue := newMemAttempts(), &memQueue{}
	svc := NewAttemptService(api, store, queue, zerolog.Nop())

	a, err := svc.Start(context.Background(), testSession(5), model.StartExamRequest{
		ExamType: model.ExamTypeMCQ, NumberOfQuestions: 20,
	})
	if err != nil {
		t.Fatal(err)
	}
	return svc, php, store, queue, a
}

func TestStartStoresAttempt(t *testing.T) {
	_, _, store, _, a := startedAttempt(t)

	if a.Status != attempt.StatusInProgress || a.Token != "tok-1" || len(a.Questions) != 2 {
		t.Fatalf("attempt = %+v", a)
	}
	if a.ExamType != model.ExamTypeMCQ || a.NumberOfQuestions != 20 {
		t.Errorf("request defaults not applied: %s/%d", a.ExamType, a.NumberOfQuestions)
	}
	if _, err := store.Get(context.Background(), a.ID); err != nil {
		t.Errorf("attempt not stored: %v", err)
	}
}

func TestAttemptIsPrivateToItsUser(t *testing.T) {
	svc, _, _, _, a := startedAttempt(t)
	_, err := svc.Get(context.Background(), testSession(99), a.ID)
	if !errors.Is(err, repository.ErrAttemptNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestNavigationPersists(t *testing.T) {
	svc, _, _, _, a := startedAttempt(t)
	ctx, sess := context.Background(), testSession(5)

	if _, err := svc.Next(ctx, sess, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Next(ctx, sess, a.ID); err != nil {
		t.Fatal(err)
	}
	got, _ := svc.Get(ctx, sess, a.ID)
	if got.Current != 1 {
		t.Errorf("current = %d, want 1", got.Current)
	}
	if _, err := svc.Jump(ctx, sess, a.ID, 5); !errors.Is(err, attempt.ErrIndexOutOfRange) {
		t.Errorf("jump err = %v", err)
	}
	got, _ = svc.Previous(ctx, sess, a.ID)
	if got.Current != 0 {
		t.Errorf("current = %d, want 0", got.Current)
	}
}

func TestSubmitRefusesIncompleteAttempt(t *testing.T) {
	svc, php, _, _, a := startedAttempt(t)
	ctx, sess := context.Background(), testSession(5)

	if _, err := svc.Select(ctx, sess, a.ID, 11, 1); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Submit(ctx, sess, a.ID)
	var inc *attempt.IncompleteError
	if !errors.As(err, &inc) || len(inc.Missing) != 1 || inc.Missing[0] != 12 {
		t.Fatalf("err = %v", err)
	}
	if php.count("POST /takeExam.php?submitAnswers") != 0 {
		t.Error("incomplete attempt reached the server")
	}
}

func TestSubmitFailureKeepsAnswers(t *testing.T) {
	svc, php, store, queue, a := startedAttempt(t)
	ctx, sess := context.Background(), testSession(5)
	php.handle("POST /takeExam.php?submitAnswers", fail(http.StatusInternalServerError, "Database error"))

	_, _ = svc.Select(ctx, sess, a.ID, 11, 1)
	_, _ = svc.Select(ctx, sess, a.ID, 12, 3)

	got, err := svc.Submit(ctx, sess, a.ID)
	var apiErr *phpapi.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Database error" {
		t.Fatalf("err = %v", err)
	}
	if got.Status != attempt.StatusInProgress || got.LastError == "" {
		t.Errorf("attempt = %s %q", got.Status, got.LastError)
	}
	stored, _ := store.Get(ctx, a.ID)
	if stored.Status != attempt.StatusInProgress || stored.Answers[12] != 3 {
		t.Errorf("stored = %+v", stored)
	}
	if len(store.locks) != 0 {
		t.Error("submit lock not released")
	}
	if len(queue.rows) != 0 {
		t.Error("failed submit queued a result")
	}
}

func TestSubmitGradesAndQueuesResult(t *testing.T) {
	svc, php, _, queue, a := startedAttempt(t)
	ctx, sess := context.Background(), testSession(5)
	php.handle("POST /takeExam.php?submitAnswers", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			AttemptToken string                  `json:"attemptToken"`
			Answers      []model.SubmittedAnswer `json:"answers"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.AttemptToken != "tok-1" || len(body.Answers) != 2 || body.Answers[0].QuestionID != 11 {
			t.Errorf("body = %+v", body)
		}
		ok(map[string]interface{}{
			"summary":      map[string]interface{}{"total": 2, "correct": 1, "incorrect": 1, "percentage": 50},
			"examResultId": 301,
		})(w, r)
	})

	_, _ = svc.Select(ctx, sess, a.ID, 11, 1)
	_, _ = svc.Select(ctx, sess, a.ID, 12, 0)

	got, err := svc.Submit(ctx, sess, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != attempt.StatusCompleted || got.Result.Summary.Correct != 1 {
		t.Fatalf("attempt = %+v", got)
	}
	if len(queue.rows) != 1 {
		t.Fatalf("queued %d results", len(queue.rows))
	}
	row := queue.rows[0]
	if row.AttemptID != a.ID || row.UserID != 5 || row.Percentage != 50 || *row.UpstreamResultID != 301 {
		t.Errorf("row = %+v", row)
	}

	exp, err := svc.Export(ctx, sess, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if exp.AttemptToken != "tok-1" || exp.Summary.Total != 2 {
		t.Errorf("export = %+v", exp)
	}
}

func TestSubmitRefusedWhileLocked(t *testing.T) {
	svc, _, store, _, a := startedAttempt(t)
	store.locks[a.ID] = true

	if _, err := svc.Submit(context.Background(), testSession(5), a.ID); !errors.Is(err, ErrSubmitInProgress) {
		t.Errorf("err = %v", err)
	}
}

func TestExportBeforeCompletion(t *testing.T) {
	svc, _, _, _, a := startedAttempt(t)
	if _, err := svc.Export(context.Background(), testSession(5), a.ID); !errors.Is(err, attempt.ErrNotCompleted) {
		t.Errorf("err = %v", err)
	}
}

func gradeAll(php *fakePHP) {
	php.handle("POST /takeExam.php?submitAnswers", ok(map[string]interface{}{
		"summary":      map[string]interface{}{"total": 2, "correct": 2, "incorrect": 0, "percentage": 100},
		"examResultId": 302,
	}))
}

// stall leaves the stored attempt in submitting with no lock held, as a
// process that died mid-submission would.
func stall(t *testing.T, store *memAttempts, id string) {
	t.Helper()
	a, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.BeginSubmit(); err != nil {
		t.Fatal(err)
	}
	store.put(t, a)
}

func TestSubmitRecoversInterruptedSubmission(t *testing.T) {
	svc, php, store, queue, a := startedAttempt(t)
	ctx, sess := context.Background(), testSession(5)
	gradeAll(php)
	_, _ = svc.Select(ctx, sess, a.ID, 11, 1)
	_, _ = svc.Select(ctx, sess, a.ID, 12, 1)
	stall(t, store, a.ID)

	got, err := svc.Submit(ctx, sess, a.ID)
	if err != nil {
		t.Fatalf("submit after interruption: %v", err)
	}
	if got.Status != attempt.StatusCompleted || got.Result == nil {
		t.Fatalf("attempt = %s %+v", got.Status, got.Result)
	}
	if len(queue.rows) != 1 || len(store.locks) != 0 {
		t.Errorf("queued %d, locks %v", len(queue.rows), store.locks)
	}
}

func TestSelectRecoversInterruptedSubmission(t *testing.T) {
	svc, _, store, _, a := startedAttempt(t)
	ctx, sess := context.Background(), testSession(5)
	_, _ = svc.Select(ctx, sess, a.ID, 11, 1)
	_, _ = svc.Select(ctx, sess, a.ID, 12, 1)
	stall(t, store, a.ID)

	got, err := svc.Select(ctx, sess, a.ID, 12, 2)
	if err != nil {
		t.Fatalf("select after interruption: %v", err)
	}
	if got.Status != attempt.StatusInProgress || got.LastError == "" {
		t.Errorf("attempt = %s %q", got.Status, got.LastError)
	}
	if got.Answers[11] != 1 || got.Answers[12] != 2 {
		t.Errorf("answers = %v", got.Answers)
	}
	if len(store.locks) != 0 {
		t.Error("recovery left the submit lock behind")
	}
}

func TestSelectLeavesLiveSubmissionAlone(t *testing.T) {
	svc, _, store, _, a := startedAttempt(t)
	ctx, sess := context.Background(), testSession(5)
	_, _ = svc.Select(ctx, sess, a.ID, 11, 1)
	_, _ = svc.Select(ctx, sess, a.ID, 12, 1)
	stall(t, store, a.ID)
	store.locks[a.ID] = true

	if _, err := svc.Next(ctx, sess, a.ID); !errors.Is(err, attempt.ErrNotInProgress) {
		t.Errorf("err = %v", err)
	}
	stored, _ := store.Get(ctx, a.ID)
	if stored.Status != attempt.StatusSubmitting {
		t.Errorf("status = %s", stored.Status)
	}
}

func TestSelectRacingSubmitKeepsResult(t *testing.T) {
	svc, php, store, _, a := startedAttempt(t)
	ctx, sess := context.Background(), testSession(5)
	gradeAll(php)
	_, _ = svc.Select(ctx, sess, a.ID, 11, 1)
	_, _ = svc.Select(ctx, sess, a.ID, 12, 1)

	// The submission completes after Select has read the attempt but
	// before it writes.
	store.beforeSave = func() {
		if _, err := svc.Submit(ctx, sess, a.ID); err != nil {
			t.Errorf("submit: %v", err)
		}
	}

	if _, err := svc.Select(ctx, sess, a.ID, 12, 3); !errors.Is(err, attempt.ErrNotInProgress) {
		t.Errorf("select err = %v", err)
	}
	stored, _ := store.Get(ctx, a.ID)
	if stored.Status != attempt.StatusCompleted || stored.Result == nil || stored.Answers[12] != 1 {
		t.Errorf("stored = %s result=%v answers=%v", stored.Status, stored.Result, stored.Answers)
	}
}
