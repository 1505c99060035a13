package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/korenlms/portal/internal/model"
	"github.com/korenlms/portal/internal/phpapi"
	"github.com/korenlms/portal/internal/session"
	"github.com/korenlms/portal/internal/validator"
)

// StudentService manages the student roster through student.php.
type StudentService struct {
	api *phpapi.Client
}

// NewStudentService creates a new StudentService.
func NewStudentService(api *phpapi.Client) *StudentService {
	return &StudentService{api: api}
}

// List returns the roster filtered server-side by search.
func (s *StudentService) List(ctx context.Context, sess *session.Data, search string) ([]model.Student, error) {
	students, err := s.api.WithCredentials(sess.Credentials).ListStudents(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// Searcher returns a search function bound to the caller's credentials,
// suitable for a debouncer.
func (s *StudentService) Searcher(sess *session.Data) func(ctx context.Context, term string) ([]model.Student, error) {
	api := s.api.WithCredentials(sess.Credentials)
	return func(ctx context.Context, term string) ([]model.Student, error) {
		return api.ListStudents(ctx, term)
	}
}

// Create adds a student.
func (s *StudentService) Create(ctx context.Context, sess *session.Data, req model.StudentRequest) (string, error) {
	st := normalizeStudent(req.ToStudent())
	msg, err := s.api.WithCredentials(sess.Credentials).CreateStudent(ctx, st)
	if err != nil {
		return "", fmt.Errorf("create student: %w", err)
	}
	return msg, nil
}

// Update replaces student id.
func (s *StudentService) Update(ctx context.Context, sess *session.Data, id model.ID, req model.StudentRequest) (string, error) {
	st := normalizeStudent(req.ToStudent())
	st.ID = id
	msg, err := s.api.WithCredentials(sess.Credentials).UpdateStudent(ctx, st)
	if err != nil {
		return "", fmt.Errorf("update student %d: %w", id, err)
	}
	return msg, nil
}

// Delete removes student id.
func (s *StudentService) Delete(ctx context.Context, sess *session.Data, id model.ID) (string, error) {
	msg, err := s.api.WithCredentials(sess.Credentials).DeleteStudent(ctx, id)
	if err != nil {
		return "", fmt.Errorf("delete student %d: %w", id, err)
	}
	return msg, nil
}

func normalizeStudent(st model.Student) model.Student {
	st.FirstName = strings.TrimSpace(st.FirstName)
	st.LastName = strings.TrimSpace(st.LastName)
	st.Email = strings.TrimSpace(st.Email)
	st.BatchNumber = strings.TrimSpace(st.BatchNumber)
	st.Phone = validator.DigitsOnly(st.Phone)
	st.NICNumber = strings.ToUpper(strings.TrimSpace(st.NICNumber))
	return st
}
