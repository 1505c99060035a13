package phpapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/korenlms/portal/internal/model"
)

const pathTakeExam = "/takeExam.php"

type startExamBody struct {
	ExamType          model.ExamType `json:"examType"`
	NumberOfQuestions int            `json:"numberOfQuestions"`
	Category          string         `json:"category,omitempty"`
}

type submitAnswersBody struct {
	AttemptToken string                  `json:"attemptToken"`
	Answers      []model.SubmittedAnswer `json:"answers"`
}

// StartExam asks the server to draw a practice exam.
func (c *Client) StartExam(ctx context.Context, req model.StartExamRequest) (*model.StartedExam, error) {
	body := startExamBody{
		ExamType:          req.ExamType,
		NumberOfQuestions: req.NumberOfQuestions,
		Category:          req.Category,
	}
	var out model.StartedExam
	q := url.Values{"action": {"startExam"}}
	if err := c.Do(ctx, http.MethodPost, pathTakeExam, q, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitAnswers sends the answers of an attempt for grading.
func (c *Client) SubmitAnswers(ctx context.Context, attemptToken string, answers []model.SubmittedAnswer) (*model.SubmitResult, error) {
	body := submitAnswersBody{AttemptToken: attemptToken, Answers: answers}
	var out model.SubmitResult
	q := url.Values{"action": {"submitAnswers"}}
	if err := c.Do(ctx, http.MethodPost, pathTakeExam, q, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
