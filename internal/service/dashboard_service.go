package service

import (
	"context"
	"fmt"

	"github.com/korenlms/portal/internal/model"
	"github.com/korenlms/portal/internal/phpapi"
	"github.com/korenlms/portal/internal/session"
	"golang.org/x/sync/errgroup"
)

// DashboardStats are the overview counters of the admin dashboard.
type DashboardStats struct {
	Students       int `json:"totalStudents"`
	Questions      int `json:"totalQuestions"`
	MCQQuestions   int `json:"mcqQuestions"`
	VoiceQuestions int `json:"voiceQuestions"`
	Exams          int `json:"totalExams"`
}

// DashboardService aggregates counts from the PHP API.
type DashboardService struct {
	api *phpapi.Client
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(api *phpapi.Client) *DashboardService {
	return &DashboardService{api: api}
}

// Stats fetches students, questions and exams concurrently. The first
// failure cancels the other requests.
func (s *DashboardService) Stats(ctx context.Context, sess *session.Data) (*DashboardStats, error) {
	api := s.api.WithCredentials(sess.Credentials)
	var (
		stats     DashboardStats
		questions []model.Question
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		students, err := api.ListStudents(gctx, "")
		if err != nil {
			return fmt.Errorf("list students: %w", err)
		}
		stats.Students = len(students)
		return nil
	})
	g.Go(func() error {
		qs, err := api.ListQuestions(gctx)
		if err != nil {
			return fmt.Errorf("list questions: %w", err)
		}
		questions = qs
		return nil
	})
	g.Go(func() error {
		exams, err := api.ListExams(gctx)
		if err != nil {
			return fmt.Errorf("list exams: %w", err)
		}
		stats.Exams = len(exams)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.Questions = len(questions)
	for _, q := range questions {
		switch q.QuestionType {
		case model.QuestionTypeMCQ:
			stats.MCQQuestions++
		case model.QuestionTypeVoice:
			stats.VoiceQuestions++
		}
	}
	return &stats, nil
}
