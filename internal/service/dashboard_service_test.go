package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/korenlms/portal/internal/phpapi"
)

func TestDashboardStats(t *testing.T) {
	php, api := newFakePHP(t)
	php.handle("GET /student.php?list", ok([]map[string]interface{}{{"id": 1}, {"id": 2}}))
	php.handle("GET /questions.php?list", ok([]map[string]interface{}{
		{"id": 1, "questionType": "mcq"}, {"id": 2, "questionType": "mcq"}, {"id": 3, "questionType": "voice"},
	}))
	php.handle("GET /exam.php?all", ok([]map[string]interface{}{{"id": 1, "exam_name": "A"}}))

	stats, err := NewDashboardService(api).Stats(context.Background(), testSession(1))
	if err != nil {
		t.Fatal(err)
	}
	want := DashboardStats{Students: 2, Questions: 3, MCQQuestions: 2, VoiceQuestions: 1, Exams: 1}
	if *stats != want {
		t.Errorf("stats = %+v, want %+v", *stats, want)
	}
}

func TestDashboardStatsFailsOnAnyUpstreamError(t *testing.T) {
	php, api := newFakePHP(t)
	php.handle("GET /student.php?list", ok([]interface{}{}))
	php.handle("GET /questions.php?list", fail(http.StatusInternalServerError, "Database error"))
	php.handle("GET /exam.php?all", ok([]interface{}{}))

	_, err := NewDashboardService(api).Stats(context.Background(), testSession(1))
	var apiErr *phpapi.APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("err = %v", err)
	}
}
