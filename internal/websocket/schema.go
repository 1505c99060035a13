package websocket

import "github.com/korenlms/portal/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionSelect   Action = "select"
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionJump     Action = "jump"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
	ActionSearch   Action = "search"
)

// AttemptRequest is any message on the attempt stream. Fields unused by
// an action are ignored.
type AttemptRequest struct {
	Action      Action   `json:"action"`
	QuestionID  model.ID `json:"questionId,omitempty"`
	OptionIndex *int     `json:"optionIndex,omitempty"`
	Index       *int     `json:"index,omitempty"`
}

// SearchRequest is a typed search term on the roster stream.
type SearchRequest struct {
	Action Action `json:"action"`
	Term   string `json:"term"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState   Event = "state"
	EventGraded  Event = "graded"
	EventResults Event = "results"
	EventError   Event = "error"
	EventPong    Event = "pong"
)

// StateResponse carries the attempt snapshot after every change.
type StateResponse struct {
	Event   Event       `json:"event"`
	Attempt interface{} `json:"attempt"`
}

// GradedResponse is sent once a submission has been graded.
type GradedResponse struct {
	Event       Event               `json:"event"`
	Attempt     interface{}         `json:"attempt"`
	Result      *model.SubmitResult `json:"result"`
	Performance model.Performance   `json:"performance"`
}

// ResultsResponse answers the latest search term.
type ResultsResponse struct {
	Event    Event           `json:"event"`
	Term     string          `json:"term"`
	Students []model.Student `json:"students"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
	// Fields carries per-field validation messages.
	Fields map[string]string `json:"fields,omitempty"`
	// Unanswered lists the questions blocking a submission.
	Unanswered []model.ID `json:"unanswered,omitempty"`
	// Retryable marks failures worth retrying: the upstream was down or
	// answered 5xx, or another write to the attempt got there first.
	Retryable bool `json:"retryable,omitempty"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
