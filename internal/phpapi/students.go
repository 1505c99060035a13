package phpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/korenlms/portal/internal/model"
)

const pathStudents = "/student.php"

// ListStudents returns the roster, filtered server-side by search when set.
func (c *Client) ListStudents(ctx context.Context, search string) ([]model.Student, error) {
	q := url.Values{"action": {"list"}}
	if s := strings.TrimSpace(search); s != "" {
		q.Set("search", s)
	}
	var students []model.Student
	if err := c.Do(ctx, http.MethodGet, pathStudents, q, nil, &students); err != nil {
		return nil, err
	}
	if students == nil {
		students = []model.Student{}
	}
	return students, nil
}

// CreateStudent adds a student.
func (c *Client) CreateStudent(ctx context.Context, s model.Student) (string, error) {
	s.ID = 0
	return c.send(ctx, http.MethodPost, pathStudents, nil, s)
}

// UpdateStudent replaces the student with s.ID.
func (c *Client) UpdateStudent(ctx context.Context, s model.Student) (string, error) {
	return c.send(ctx, http.MethodPut, pathStudents, nil, s)
}

// DeleteStudent removes a student. Servers that refuse DELETE are retried
// with POST ?action=delete; if both fail the fallback's error wins unless
// it carried no message of its own.
func (c *Client) DeleteStudent(ctx context.Context, id model.ID) (string, error) {
	msg, err := c.send(ctx, http.MethodDelete, pathStudents, url.Values{"id": {id.String()}}, nil)
	if err == nil {
		return msg, nil
	}

	var first *APIError
	if !errors.As(err, &first) {
		return "", err
	}

	msg, err = c.send(ctx, http.MethodPost, pathStudents, url.Values{"action": {"delete"}}, map[string]model.ID{"id": id})
	if err == nil {
		return msg, nil
	}
	var second *APIError
	if errors.As(err, &second) && second.Message == DefaultErrorMessage && first.Message != DefaultErrorMessage {
		second.Message = first.Message
	}
	return "", err
}
