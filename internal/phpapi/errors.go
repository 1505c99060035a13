package phpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// DefaultErrorMessage is used when the server gives no message of its own.
const DefaultErrorMessage = "API request failed"

// APIError is returned when the PHP API answered but reported failure,
// either through a non-2xx status or success=false.
type APIError struct {
	Status  int
	Path    string
	Message string
	Errors  []string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return DefaultErrorMessage
	}
	return e.Message
}

// Unauthorized reports whether the server rejected the caller's session.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// NetworkError is returned when the request could not be completed or the
// answer was not the expected JSON envelope. Callers may retry.
type NetworkError struct {
	Path string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("php api %s: %v", e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is an APIError with status 401.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Unauthorized()
}

// messages decodes the envelope's errors field, which the PHP endpoints
// send either as a list or as a field → message object.
type messages []string

func (m *messages) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*m = list
		return nil
	}

	var byField map[string]string
	if err := json.Unmarshal(b, &byField); err == nil {
		keys := make([]string, 0, len(byField))
		for k := range byField {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			out = append(out, byField[k])
		}
		*m = out
		return nil
	}

	var single string
	if err := json.Unmarshal(b, &single); err == nil && single != "" {
		*m = []string{single}
		return nil
	}
	*m = nil
	return nil
}
