package model

import (
	"strconv"
	"strings"
	"time"
)

// ExamType selects which question types an exam may contain.
type ExamType string

const (
	ExamTypeMCQ   ExamType = "mcq"
	ExamTypeVoice ExamType = "voice"
	ExamTypeBoth  ExamType = "both"
)

// Admits reports whether a question of type qt may be part of an exam of this type.
func (t ExamType) Admits(qt QuestionType) bool {
	switch t {
	case ExamTypeMCQ:
		return qt == QuestionTypeMCQ
	case ExamTypeVoice:
		return qt == QuestionTypeVoice
	default:
		return true
	}
}

// Label is the human-readable exam type.
func (t ExamType) Label() string {
	switch t {
	case ExamTypeMCQ:
		return "MCQ Only"
	case ExamTypeVoice:
		return "Voice Only"
	default:
		return "MCQ & Voice"
	}
}

// Exam is an exam definition.
type Exam struct {
	ID                ID       `json:"id"`
	Name              string   `json:"examName"`
	Description       string   `json:"description"`
	ExamType          ExamType `json:"examType"`
	Duration          int      `json:"duration"`
	NumberOfQuestions int      `json:"numberOfQuestions"`
	TotalMarks        int      `json:"totalMarks"`
	SelectedQuestions []ID     `json:"selectedQuestions"`
	MCQCount          int      `json:"mcqCount"`
	VoiceCount        int      `json:"voiceCount"`
	CreatedAt         string   `json:"createdAt,omitempty"`
}

// DurationLabel renders the duration the way the exam list shows it.
func (e *Exam) DurationLabel() string {
	switch e.Duration {
	case 30:
		return "30 Minutes"
	case 60:
		return "1 Hour"
	case 120:
		return "2 Hours"
	default:
		return strconv.Itoa(e.Duration) + " Minutes"
	}
}

// MatchesSearch reports whether the exam name contains term, ignoring case.
func (e *Exam) MatchesSearch(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	return term == "" || strings.Contains(strings.ToLower(e.Name), term)
}

// ExamRequest is the payload for creating or updating an exam.
type ExamRequest struct {
	Name              string   `json:"examName" binding:"required,min=1,max=255"`
	Description       string   `json:"description" binding:"max=2000"`
	ExamType          ExamType `json:"examType" binding:"required,oneof=mcq voice both"`
	Duration          int      `json:"duration" binding:"required,oneof=30 60 120"`
	NumberOfQuestions int      `json:"numberOfQuestions" binding:"required,oneof=20 40 60"`
	TotalMarks        int      `json:"totalMarks" binding:"required,min=1"`
	SelectedQuestions []ID     `json:"selectedQuestions"`
}

// ExamDraftSettings patches an exam-builder draft.
type ExamDraftSettings struct {
	ExamType          *ExamType `json:"examType" binding:"omitempty,oneof=mcq voice both"`
	NumberOfQuestions *int      `json:"numberOfQuestions" binding:"omitempty,oneof=20 40 60"`
}

// ExamDraftToggleRequest adds or removes one question from a draft.
type ExamDraftToggleRequest struct {
	QuestionID ID `json:"questionId" binding:"required"`
}

// ExamDraftCreateRequest starts a draft, optionally from an existing exam.
type ExamDraftCreateRequest struct {
	FromExamID        ID       `json:"fromExamId"`
	ExamType          ExamType `json:"examType" binding:"omitempty,oneof=mcq voice both"`
	NumberOfQuestions int      `json:"numberOfQuestions" binding:"omitempty,oneof=20 40 60"`
}

// ExamUpstreamPayload is the body exam.php expects on POST/PUT.
type ExamUpstreamPayload struct {
	ID                ID       `json:"id,omitempty"`
	ExamName          string   `json:"examName"`
	Description       *string  `json:"description"`
	ExamType          ExamType `json:"examType"`
	Duration          int      `json:"duration"`
	NumberOfQuestions int      `json:"numberOfQuestions"`
	TotalMarks        int      `json:"totalMarks"`
	EligibilityType   string   `json:"eligibilityType"`
	SelectedBatch     string   `json:"selectedBatch"`
	SelectedStudents  []ID     `json:"selectedStudents"`
	SelectedQuestions []ID     `json:"selectedQuestions"`
	MCQCount          int      `json:"mcqCount"`
	VoiceCount        int      `json:"voiceCount"`
}

// EligibleQuestion is the slim question row exam.php?action=questions returns.
type EligibleQuestion struct {
	ID           ID           `json:"id"`
	QuestionText string       `json:"questionText"`
	QuestionType QuestionType `json:"questionType"`
	Category     string       `json:"category"`
	Difficulty   string       `json:"difficulty"`
}

// ExamDraft is an exam-builder working set held server-side between edits.
type ExamDraft struct {
	ID                string    `json:"id"`
	OwnerID           ID        `json:"ownerId"`
	ExamID            ID        `json:"examId,omitempty"`
	ExamType          ExamType  `json:"examType"`
	NumberOfQuestions int       `json:"numberOfQuestions"`
	SelectedQuestions []ID      `json:"selectedQuestions"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// ExamDraftSubmitRequest carries the exam fields a draft does not hold.
type ExamDraftSubmitRequest struct {
	Name        string `json:"examName" binding:"required,min=1,max=255"`
	Description string `json:"description" binding:"max=2000"`
	Duration    int    `json:"duration" binding:"required,oneof=30 60 120"`
	TotalMarks  int    `json:"totalMarks" binding:"required,min=1"`
}
