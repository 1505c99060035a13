package phpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/korenlms/portal/internal/model"
)

const pathExams = "/exam.php"

// flexInt decodes integers that PHP may send as numbers, numeric strings or null.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(string(b))
	if err != nil {
		f, ferr := strconv.ParseFloat(string(b), 64)
		if ferr != nil {
			return err
		}
		v = int(f)
	}
	*n = flexInt(v)
	return nil
}

// examRow is an exam as exam.php?action=all lists it.
type examRow struct {
	ID                model.ID       `json:"id"`
	ExamName          string         `json:"exam_name"`
	Description       *string        `json:"description"`
	ExamType          model.ExamType `json:"exam_type"`
	Duration          flexInt        `json:"duration"`
	NumberOfQuestions flexInt        `json:"number_of_questions"`
	TotalMarks        flexInt        `json:"total_marks"`
	AssignedQuestions idList         `json:"assigned_questions"`
	MCQCount          flexInt        `json:"mcq_count"`
	VoiceCount        flexInt        `json:"voice_count"`
	CreatedAt         string         `json:"created_at"`
}

func (r examRow) toExam() model.Exam {
	e := model.Exam{
		ID:                r.ID,
		Name:              r.ExamName,
		ExamType:          r.ExamType,
		Duration:          int(r.Duration),
		NumberOfQuestions: int(r.NumberOfQuestions),
		TotalMarks:        int(r.TotalMarks),
		SelectedQuestions: []model.ID(r.AssignedQuestions),
		MCQCount:          int(r.MCQCount),
		VoiceCount:        int(r.VoiceCount),
		CreatedAt:         r.CreatedAt,
	}
	if r.Description != nil {
		e.Description = *r.Description
	}
	if e.SelectedQuestions == nil {
		e.SelectedQuestions = []model.ID{}
	}
	return e
}

// idList accepts a JSON array of ids or a JSON-encoded array inside a string,
// which is how a TEXT column holding the assignment comes back.
type idList []model.ID

func (l *idList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	if b[0] == '"' {
		var inner string
		if err := json.Unmarshal(b, &inner); err != nil {
			return err
		}
		if inner == "" {
			*l = nil
			return nil
		}
		b = []byte(inner)
	}
	var ids []model.ID
	if err := json.Unmarshal(b, &ids); err != nil {
		return err
	}
	*l = ids
	return nil
}

// ListExams returns every exam definition.
func (c *Client) ListExams(ctx context.Context) ([]model.Exam, error) {
	var rows []examRow
	if err := c.Do(ctx, http.MethodGet, pathExams, url.Values{"action": {"all"}}, nil, &rows); err != nil {
		return nil, err
	}
	exams := make([]model.Exam, 0, len(rows))
	for _, r := range rows {
		exams = append(exams, r.toExam())
	}
	return exams, nil
}

// ListEligibleQuestions returns the questions an exam may be assembled from.
func (c *Client) ListEligibleQuestions(ctx context.Context) ([]model.EligibleQuestion, error) {
	var qs []model.EligibleQuestion
	if err := c.Do(ctx, http.MethodGet, pathExams, url.Values{"action": {"questions"}}, nil, &qs); err != nil {
		return nil, err
	}
	return qs, nil
}

// CreateExam stores a new exam.
func (c *Client) CreateExam(ctx context.Context, p model.ExamUpstreamPayload) (string, error) {
	p.ID = 0
	return c.send(ctx, http.MethodPost, pathExams, nil, p)
}

// UpdateExam replaces the exam with p.ID.
func (c *Client) UpdateExam(ctx context.Context, p model.ExamUpstreamPayload) (string, error) {
	return c.send(ctx, http.MethodPut, pathExams, nil, p)
}

// DeleteExam removes an exam.
func (c *Client) DeleteExam(ctx context.Context, id model.ID) (string, error) {
	return c.send(ctx, http.MethodDelete, pathExams, url.Values{"id": {id.String()}}, nil)
}
