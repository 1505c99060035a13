package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/korenlms/portal/internal/model"
	"github.com/korenlms/portal/internal/phpapi"
	"github.com/korenlms/portal/internal/session"
)

// ErrQuestionNotFound is returned when the bank has no question with an id.
var ErrQuestionNotFound = errors.New("question not found")

// QuestionService manages the question bank through questions.php.
type QuestionService struct {
	api *phpapi.Client
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(api *phpapi.Client) *QuestionService {
	return &QuestionService{api: api}
}

// List returns the questions matching search (text, category or difficulty).
func (s *QuestionService) List(ctx context.Context, sess *session.Data, search string) ([]model.Question, error) {
	all, err := s.api.WithCredentials(sess.Credentials).ListQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]model.Question, 0, len(all))
	for i := range all {
		if all[i].MatchesSearch(search) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// Get finds one question by id.
func (s *QuestionService) Get(ctx context.Context, sess *session.Data, id model.ID) (*model.Question, error) {
	all, err := s.api.WithCredentials(sess.Credentials).ListQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, ErrQuestionNotFound
}

// Create validates and stores a question. Invalid questions never reach
// the server.
func (s *QuestionService) Create(ctx context.Context, sess *session.Data, req model.QuestionRequest) (string, error) {
	q := req.ToQuestion()
	if err := q.Validate(); err != nil {
		return "", err
	}
	msg, err := s.api.WithCredentials(sess.Credentials).CreateQuestion(ctx, q)
	if err != nil {
		return "", fmt.Errorf("create question: %w", err)
	}
	return msg, nil
}

// Update validates and replaces question id.
func (s *QuestionService) Update(ctx context.Context, sess *session.Data, id model.ID, req model.QuestionRequest) (string, error) {
	q := req.ToQuestion()
	q.ID = id
	if err := q.Validate(); err != nil {
		return "", err
	}
	msg, err := s.api.WithCredentials(sess.Credentials).UpdateQuestion(ctx, q)
	if err != nil {
		return "", fmt.Errorf("update question %d: %w", id, err)
	}
	return msg, nil
}

// Delete removes question id.
func (s *QuestionService) Delete(ctx context.Context, sess *session.Data, id model.ID) (string, error) {
	msg, err := s.api.WithCredentials(sess.Credentials).DeleteQuestion(ctx, id)
	if err != nil {
		return "", fmt.Errorf("delete question %d: %w", id, err)
	}
	return msg, nil
}

// ToggleCorrect flips one option of question id in or out of the correct
// answers and saves the result.
func (s *QuestionService) ToggleCorrect(ctx context.Context, sess *session.Data, id model.ID, index int) (*model.Question, error) {
	q, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if err := q.ToggleCorrect(index); err != nil {
		return nil, model.FieldErrors{"index": err.Error()}
	}
	q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.api.WithCredentials(sess.Credentials).UpdateQuestion(ctx, *q); err != nil {
		return nil, fmt.Errorf("update question %d: %w", id, err)
	}
	return q, nil
}
