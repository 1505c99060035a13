package phpapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/korenlms/portal/internal/model"
)

const pathQuestions = "/questions.php"

// questionPayload is a question as questions.php accepts it: optional links
// travel as null rather than empty strings.
type questionPayload struct {
	ID             model.ID             `json:"id,omitempty"`
	QuestionText   string               `json:"questionText"`
	QuestionType   model.QuestionType   `json:"questionType"`
	QuestionFormat model.QuestionFormat `json:"questionFormat"`
	QuestionImage  *string              `json:"questionImage"`
	AnswerType     model.AnswerType     `json:"answerType"`
	Options        []model.Option       `json:"options"`
	CorrectAnswers []int                `json:"correctAnswers"`
	AudioLink      *string              `json:"audioLink"`
	TimeLimit      int                  `json:"timeLimit"`
	Difficulty     string               `json:"difficulty"`
	Category       string               `json:"category"`
}

func toQuestionPayload(q model.Question) questionPayload {
	q.Normalize()
	p := questionPayload{
		ID:             q.ID,
		QuestionText:   q.QuestionText,
		QuestionType:   q.QuestionType,
		QuestionFormat: q.QuestionFormat,
		QuestionImage:  q.QuestionImage,
		AnswerType:     q.AnswerType,
		Options:        q.Options,
		CorrectAnswers: q.CorrectAnswers,
		TimeLimit:      q.TimeLimit,
		Difficulty:     q.Difficulty,
		Category:       q.Category,
	}
	if q.AudioLink != "" {
		link := q.AudioLink
		p.AudioLink = &link
	}
	return p
}

// ListQuestions returns the whole question bank.
func (c *Client) ListQuestions(ctx context.Context) ([]model.Question, error) {
	var qs []model.Question
	q := url.Values{"action": {"list"}}
	if err := c.Do(ctx, http.MethodGet, pathQuestions, q, nil, &qs); err != nil {
		return nil, err
	}
	return qs, nil
}

// CreateQuestion stores a new question.
func (c *Client) CreateQuestion(ctx context.Context, q model.Question) (string, error) {
	q.ID = 0
	return c.send(ctx, http.MethodPost, pathQuestions, nil, toQuestionPayload(q))
}

// UpdateQuestion replaces the question with q.ID.
func (c *Client) UpdateQuestion(ctx context.Context, q model.Question) (string, error) {
	return c.send(ctx, http.MethodPut, pathQuestions, nil, toQuestionPayload(q))
}

// DeleteQuestion removes a question.
func (c *Client) DeleteQuestion(ctx context.Context, id model.ID) (string, error) {
	return c.send(ctx, http.MethodDelete, pathQuestions, url.Values{"id": {id.String()}}, nil)
}
