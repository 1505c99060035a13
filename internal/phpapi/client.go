// Package phpapi is the client for the Koren LMS PHP API. Every endpoint
// answers with the envelope {success, data?, message?, errors?}; the client
// unwraps data on success and turns everything else into *APIError or
// *NetworkError.
package phpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/korenlms/portal/internal/logger"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 8 << 20

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  messages        `json:"errors"`
}

// Client talks to the PHP API. A Client is safe for concurrent use; bind
// per-user credentials with WithCredentials.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	defaultHeaders map[string]string
	creds          Credentials
	log            zerolog.Logger
}

// New creates a client for baseURL (e.g. http://localhost).
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		defaultHeaders: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		log: logger.Component(log, "phpapi"),
	}
}

// WithCredentials returns a copy of the client that forwards creds.
func (c *Client) WithCredentials(creds Credentials) *Client {
	cp := *c
	cp.creds = creds
	return &cp
}

// Credentials returns the credentials this client forwards.
func (c *Client) Credentials() Credentials {
	return c.creds
}

// BaseURL is the API root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do performs one API call. body, when non-nil, is sent as JSON; data of a
// successful envelope is decoded into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	_, err := c.do(ctx, method, path, query, body, out)
	return err
}

// result is what a successful call yields besides data.
type result struct {
	message string
	cookies []*http.Cookie
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) (*result, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	for k, v := range c.defaultHeaders {
		req.Header.Set(k, v)
	}
	c.creds.apply(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("PHP API unreachable")
		return nil, &NetworkError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{Path: path, Err: fmt.Errorf("read body: %w", err)}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("method", method).
			Str("path", path).
			Msg("PHP API returned a non-JSON body")
		return nil, &NetworkError{Path: path, Err: fmt.Errorf("status %d: invalid JSON: %w", resp.StatusCode, err)}
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = DefaultErrorMessage
		}
		c.log.Debug().
			Int("status", resp.StatusCode).
			Str("method", method).
			Str("path", path).
			Str("message", msg).
			Dur("took", time.Since(start)).
			Msg("PHP API call failed")
		return nil, &APIError{Status: resp.StatusCode, Path: path, Message: msg, Errors: env.Errors}
	}

	if out != nil && len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, &NetworkError{Path: path, Err: fmt.Errorf("decode data: %w", err)}
		}
	}
	return &result{message: env.Message, cookies: resp.Cookies()}, nil
}

// send performs a call whose useful output is the envelope message
// (create, update and delete endpoints).
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body interface{}) (string, error) {
	res, err := c.do(ctx, method, path, query, body, nil)
	if err != nil {
		return "", err
	}
	return res.message, nil
}
