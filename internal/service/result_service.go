package service

import (
	"context"
	"fmt"

	"github.com/korenlms/portal/internal/model"
	"github.com/korenlms/portal/internal/session"
)

const (
	defaultResultsPerPage = 20
	maxResultsPerPage     = 100
)

// ResultHistory reads persisted exam results.
type ResultHistory interface {
	ListByUser(ctx context.Context, userID model.ID, page, perPage int) ([]model.ExamResult, int64, error)
	ListAll(ctx context.Context, page, perPage int) ([]model.ExamResult, int64, error)
}

// ResultPage is one page of result history.
type ResultPage struct {
	Results []model.ExamResult
	Page    int
	PerPage int
	Total   int64
}

// ResultService serves the local exam result history.
type ResultService struct {
	repo ResultHistory
}

// NewResultService creates a new ResultService.
func NewResultService(repo ResultHistory) *ResultService {
	return &ResultService{repo: repo}
}

// ListMine returns the session user's results, newest first.
func (s *ResultService) ListMine(ctx context.Context, sess *session.Data, page, perPage int) (*ResultPage, error) {
	page, perPage = clampPage(page, perPage)
	rows, total, err := s.repo.ListByUser(ctx, sess.User.ID, page, perPage)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return &ResultPage{Results: nonNil(rows), Page: page, PerPage: perPage, Total: total}, nil
}

// ListAll returns every stored result, newest first.
func (s *ResultService) ListAll(ctx context.Context, page, perPage int) (*ResultPage, error) {
	page, perPage = clampPage(page, perPage)
	rows, total, err := s.repo.ListAll(ctx, page, perPage)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return &ResultPage{Results: nonNil(rows), Page: page, PerPage: perPage, Total: total}, nil
}

func clampPage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultResultsPerPage
	}
	if perPage > maxResultsPerPage {
		perPage = maxResultsPerPage
	}
	return page, perPage
}

func nonNil(rows []model.ExamResult) []model.ExamResult {
	if rows == nil {
		return []model.ExamResult{}
	}
	return rows
}
