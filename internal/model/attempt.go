package model

import (
	"fmt"
	"time"
)

// StartExamRequest configures a new practice attempt.
type StartExamRequest struct {
	ExamType          ExamType `json:"examType" binding:"required,oneof=mcq voice both"`
	NumberOfQuestions int      `json:"numberOfQuestions" binding:"required,oneof=20 40 60"`
	Category          string   `json:"category" binding:"max=100"`
}

// StartedExam is the payload of takeExam.php?action=startExam.
type StartedExam struct {
	AttemptToken      string     `json:"attemptToken"`
	ExamType          ExamType   `json:"examType"`
	NumberOfQuestions int        `json:"numberOfQuestions"`
	Questions         []Question `json:"questions"`
}

// SubmittedAnswer is one entry of the submitAnswers body. SelectedIndex is
// null for an unanswered question.
type SubmittedAnswer struct {
	QuestionID    ID   `json:"question_id"`
	SelectedIndex *int `json:"selected_index"`
}

// ResultSummary is the server's scoring of a submitted attempt.
type ResultSummary struct {
	Total      int     `json:"total"`
	Correct    int     `json:"correct"`
	Incorrect  int     `json:"incorrect"`
	Percentage float64 `json:"percentage"`
}

// SubmitResult is the payload of takeExam.php?action=submitAnswers.
// ExamResultID is absent when the server did not record the result
// (guest or mock attempts).
type SubmitResult struct {
	Summary      ResultSummary `json:"summary"`
	ExamResultID *ID           `json:"examResultId,omitempty"`
}

// SelectAnswerRequest records one answer.
type SelectAnswerRequest struct {
	QuestionID  ID   `json:"questionId" binding:"required"`
	OptionIndex *int `json:"optionIndex" binding:"required,min=0,max=3"`
}

// JumpRequest moves to a question by position.
type JumpRequest struct {
	Index *int `json:"index" binding:"required,min=0"`
}

// Performance is the verdict shown beside a score.
type Performance struct {
	Text  string `json:"text"`
	Color string `json:"color"`
}

// PerformanceFor grades a percentage score.
func PerformanceFor(percentage float64) Performance {
	switch {
	case percentage >= 90:
		return Performance{Text: "Excellent! Outstanding performance!", Color: "green"}
	case percentage >= 80:
		return Performance{Text: "Great job! Very good performance!", Color: "green"}
	case percentage >= 70:
		return Performance{Text: "Good work! You passed!", Color: "blue"}
	case percentage >= 60:
		return Performance{Text: "Fair performance. Keep practicing!", Color: "yellow"}
	default:
		return Performance{Text: "Needs improvement. Don't give up!", Color: "red"}
	}
}

// Passed mirrors the pass mark used on the result screen.
func (s ResultSummary) Passed() bool {
	return s.Percentage >= 70
}

// FormatDuration renders seconds as m:ss.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "0:00"
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// ResultExport is the downloadable JSON document of a finished attempt.
type ResultExport struct {
	ExamType     ExamType      `json:"examType"`
	Timestamp    string        `json:"timestamp"`
	Summary      ResultSummary `json:"summary"`
	AttemptToken string        `json:"attemptToken"`
	ExamResultID *ID           `json:"examResultId"`
}

// ExamResult is a persisted row of the local result history.
type ExamResult struct {
	ID               int64     `json:"id"`
	AttemptID        string    `json:"attempt_id"`
	UserID           ID        `json:"user_id"`
	ExamType         ExamType  `json:"exam_type"`
	Total            int       `json:"total"`
	Correct          int       `json:"correct"`
	Incorrect        int       `json:"incorrect"`
	Percentage       float64   `json:"percentage"`
	UpstreamResultID *ID       `json:"upstream_result_id,omitempty"`
	SubmittedAt      time.Time `json:"submitted_at"`
}
