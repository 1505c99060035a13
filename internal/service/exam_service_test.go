package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/korenlms/portal/internal/model"
	"github.com/korenlms/portal/internal/repository"
)

var eligible = []map[string]interface{}{
	{"id": 1, "questionText": "q1", "questionType": "mcq"},
	{"id": 2, "questionText": "q2", "questionType": "mcq"},
	{"id": 3, "questionText": "q3", "questionType": "voice"},
}

func TestCreateExamRejectsIneligibleQuestions(t *testing.T) {
	php, api := newFakePHP(t)
	php.handle("GET /exam.php?questions", ok(eligible))
	svc := NewExamService(api, newMemDrafts())

	_, err := svc.Create(context.Background(), testSession(1), model.ExamRequest{
		Name: "Week 1", ExamType: model.ExamTypeMCQ, Duration: 30, NumberOfQuestions: 20,
		TotalMarks: 100, SelectedQuestions: []model.ID{1, 3},
	})
	var fe model.FieldErrors
	if !errors.As(err, &fe) || fe["selectedQuestions"] == "" {
		t.Fatalf("err = %v", err)
	}
	if php.count("POST /exam.php") != 0 {
		t.Error("invalid exam reached the server")
	}
}

func TestCreateExamPayload(t *testing.T) {
	php, api := newFakePHP(t)
	php.handle("GET /exam.php?questions", ok(eligible))
	php.handle("POST /exam.php", func(w http.ResponseWriter, r *http.Request) {
		var p model.ExamUpstreamPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		if p.EligibilityType != EligibilityBatch || p.SelectedBatch != PracticeBatch {
			t.Errorf("eligibility = %s/%s", p.EligibilityType, p.SelectedBatch)
		}
		if p.MCQCount != 2 || p.VoiceCount != 1 || len(p.SelectedQuestions) != 3 {
			t.Errorf("counts = %d/%d %v", p.MCQCount, p.VoiceCount, p.SelectedQuestions)
		}
		if p.Description != nil {
			t.Errorf("blank description sent as %q", *p.Description)
		}
		writeEnvelope(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Exam created"})
	})
	svc := NewExamService(api, newMemDrafts())

	msg, err := svc.Create(context.Background(), testSession(1), model.ExamRequest{
		Name: " Week 1 ", Description: "  ", ExamType: model.ExamTypeBoth, Duration: 60,
		NumberOfQuestions: 20, TotalMarks: 100, SelectedQuestions: []model.ID{1, 2, 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	if msg != "Exam created" {
		t.Errorf("msg = %q", msg)
	}
}

func TestDraftLifecycle(t *testing.T) {
	php, api := newFakePHP(t)
	php.handle("GET /exam.php?questions", ok(eligible))
	php.handle("POST /exam.php", ok(nil))
	drafts := newMemDrafts()
	svc := NewExamService(api, drafts)
	ctx, sess := context.Background(), testSession(1)

	v, err := svc.CreateDraft(ctx, sess, model.ExamDraftCreateRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if v.ExamType != model.ExamTypeBoth || v.NumberOfQuestions != defaultDraftLimit || len(v.Questions) != 3 {
		t.Fatalf("draft = %+v", v)
	}

	for _, id := range []model.ID{1, 3} {
		if v, err = svc.ToggleDraftQuestion(ctx, sess, v.ID, id); err != nil {
			t.Fatal(err)
		}
	}
	if v.MCQCount != 1 || v.VoiceCount != 1 {
		t.Errorf("counts = %d/%d", v.MCQCount, v.VoiceCount)
	}

	mcq := model.ExamTypeMCQ
	v, err = svc.PatchDraft(ctx, sess, v.ID, model.ExamDraftSettings{ExamType: &mcq})
	if err != nil {
		t.Fatal(err)
	}
	if len(v.SelectedQuestions) != 1 || v.SelectedQuestions[0] != 1 || len(v.Questions) != 2 {
		t.Errorf("after type change: selected %v, %d selectable", v.SelectedQuestions, len(v.Questions))
	}

	if _, err := svc.GetDraft(ctx, testSession(2), v.ID); !errors.Is(err, repository.ErrDraftNotFound) {
		t.Errorf("foreign draft read = %v", err)
	}

	if _, err := svc.SubmitDraft(ctx, sess, v.ID, model.ExamDraftSubmitRequest{Name: "Quiz", Duration: 30, TotalMarks: 10}); err != nil {
		t.Fatal(err)
	}
	if _, err := drafts.Get(ctx, v.ID); !errors.Is(err, repository.ErrDraftNotFound) {
		t.Error("submitted draft was kept")
	}
}

func TestDraftFromExam(t *testing.T) {
	php, api := newFakePHP(t)
	php.handle("GET /exam.php?questions", ok(eligible))
	php.handle("GET /exam.php?all", ok([]map[string]interface{}{
		{"id": 9, "exam_name": "Old", "exam_type": "voice", "duration": 30, "number_of_questions": 20,
			"total_marks": 10, "assigned_questions": []int{3, 42}},
	}))
	svc := NewExamService(api, newMemDrafts())

	v, err := svc.CreateDraft(context.Background(), testSession(1), model.ExamDraftCreateRequest{FromExamID: 9})
	if err != nil {
		t.Fatal(err)
	}
	if v.ExamID != 9 || len(v.SelectedQuestions) != 1 || len(v.Dropped) != 1 || v.Dropped[0] != 42 {
		t.Errorf("draft = %+v", v)
	}

	if _, err := svc.CreateDraft(context.Background(), testSession(1), model.ExamDraftCreateRequest{FromExamID: 10}); !errors.Is(err, ErrExamNotFound) {
		t.Errorf("unknown exam = %v", err)
	}
}

func TestListExamsSearch(t *testing.T) {
	php, api := newFakePHP(t)
	php.handle("GET /exam.php?all", ok([]map[string]interface{}{
		{"id": 1, "exam_name": "Listening Week 1", "exam_type": "voice", "duration": 120},
		{"id": 2, "exam_name": "Grammar", "exam_type": "mcq", "duration": 30},
	}))
	svc := NewExamService(api, newMemDrafts())

	items, err := svc.List(context.Background(), testSession(1), "listening")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ExamTypeLabel != "Voice Only" {
		t.Errorf("items = %+v", items)
	}
}
