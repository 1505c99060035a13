package model

import (
	"errors"
	"net/url"
	"strings"
)

// QuestionType distinguishes multiple-choice from listening questions.
type QuestionType string

const (
	QuestionTypeMCQ   QuestionType = "mcq"
	QuestionTypeVoice QuestionType = "voice"
)

type QuestionFormat string

const (
	QuestionFormatNormal QuestionFormat = "normal"
	QuestionFormatImage  QuestionFormat = "image"
)

type AnswerType string

const (
	AnswerTypeSingle   AnswerType = "single"
	AnswerTypeMultiple AnswerType = "multiple"
)

const (
	// OptionCount is the fixed number of options every question carries.
	OptionCount = 4

	MinVoiceTimeLimit = 5
	MaxVoiceTimeLimit = 300
)

// ErrOptionIndex is returned when an option index falls outside [0, OptionCount).
var ErrOptionIndex = errors.New("option index out of range")

// Option is one of the four answer choices.
type Option struct {
	Text  string  `json:"text"`
	Image *string `json:"image"`
}

// Question is a question-bank record as exchanged with questions.php.
type Question struct {
	ID             ID             `json:"id,omitempty"`
	QuestionText   string         `json:"questionText"`
	QuestionType   QuestionType   `json:"questionType"`
	QuestionFormat QuestionFormat `json:"questionFormat"`
	QuestionImage  *string        `json:"questionImage"`
	AnswerType     AnswerType     `json:"answerType"`
	Options        []Option       `json:"options"`
	CorrectAnswers []int          `json:"correctAnswers"`
	AudioLink      string         `json:"audioLink,omitempty"`
	TimeLimit      int            `json:"timeLimit"`
	Difficulty     string         `json:"difficulty"`
	Category       string         `json:"category"`
}

// QuestionRequest is the payload for creating or replacing a question.
// Cross-field rules live in Question.Validate.
type QuestionRequest struct {
	QuestionText   string         `json:"questionText" binding:"required,max=2000"`
	QuestionType   QuestionType   `json:"questionType" binding:"required,oneof=mcq voice"`
	QuestionFormat QuestionFormat `json:"questionFormat" binding:"omitempty,oneof=normal image"`
	QuestionImage  *string        `json:"questionImage"`
	AnswerType     AnswerType     `json:"answerType" binding:"required,oneof=single multiple"`
	Options        []Option       `json:"options" binding:"required,len=4"`
	CorrectAnswers []int          `json:"correctAnswers"`
	AudioLink      string         `json:"audioLink"`
	TimeLimit      int            `json:"timeLimit"`
	Difficulty     string         `json:"difficulty" binding:"required,oneof=Beginner Intermediate Advanced"`
	Category       string         `json:"category" binding:"max=100"`
}

// ToQuestion converts the request into a normalized Question.
func (r QuestionRequest) ToQuestion() Question {
	q := Question{
		QuestionText:   strings.TrimSpace(r.QuestionText),
		QuestionType:   r.QuestionType,
		QuestionFormat: r.QuestionFormat,
		QuestionImage:  r.QuestionImage,
		AnswerType:     r.AnswerType,
		Options:        r.Options,
		CorrectAnswers: r.CorrectAnswers,
		AudioLink:      strings.TrimSpace(r.AudioLink),
		TimeLimit:      r.TimeLimit,
		Difficulty:     r.Difficulty,
		Category:       strings.TrimSpace(r.Category),
	}
	q.Normalize()
	return q
}

// Normalize fills defaults the PHP API expects: a normal format, no nil
// answer slice, and a zero time limit on MCQ questions.
func (q *Question) Normalize() {
	if q.QuestionFormat == "" {
		q.QuestionFormat = QuestionFormatNormal
	}
	if q.CorrectAnswers == nil {
		q.CorrectAnswers = []int{}
	}
	if q.QuestionType == QuestionTypeMCQ {
		q.TimeLimit = 0
	}
}

// Validate enforces the question-bank invariants.
func (q *Question) Validate() error {
	fe := FieldErrors{}

	if strings.TrimSpace(q.QuestionText) == "" {
		fe["questionText"] = "question text is required"
	}

	if len(q.Options) != OptionCount {
		fe["options"] = "exactly 4 options are required"
	} else {
		for _, o := range q.Options {
			if strings.TrimSpace(o.Text) == "" {
				fe["options"] = "all 4 options must have text"
				break
			}
		}
	}

	seen := make(map[int]bool, len(q.CorrectAnswers))
	for _, idx := range q.CorrectAnswers {
		if idx < 0 || idx >= OptionCount {
			fe["correctAnswers"] = "correct answers must reference options 0-3"
			break
		}
		if seen[idx] {
			fe["correctAnswers"] = "correct answers must not repeat"
			break
		}
		seen[idx] = true
	}
	if _, bad := fe["correctAnswers"]; !bad {
		switch {
		case q.QuestionType == QuestionTypeMCQ && len(q.CorrectAnswers) == 0:
			fe["correctAnswers"] = "select at least one correct answer"
		case q.AnswerType == AnswerTypeSingle && len(q.CorrectAnswers) > 1:
			fe["correctAnswers"] = "single-answer questions take exactly one correct answer"
		}
	}

	switch q.QuestionType {
	case QuestionTypeMCQ:
	case QuestionTypeVoice:
		if q.AudioLink == "" {
			fe["audioLink"] = "an audio link is required for voice questions"
		} else if u, err := url.Parse(q.AudioLink); err != nil || (u.Host == "" && !strings.HasPrefix(q.AudioLink, "/")) {
			fe["audioLink"] = "audio link must be a URL"
		}
		if q.TimeLimit < MinVoiceTimeLimit || q.TimeLimit > MaxVoiceTimeLimit {
			fe["timeLimit"] = "time limit must be between 5 and 300 seconds for voice questions"
		}
	default:
		fe["questionType"] = "question type must be mcq or voice"
	}

	return fe.orNil()
}

// ToggleCorrect marks or unmarks option i as correct. Single-answer
// questions replace the current answer; multiple-answer questions toggle
// membership.
func (q *Question) ToggleCorrect(i int) error {
	if i < 0 || i >= OptionCount {
		return ErrOptionIndex
	}

	if q.AnswerType == AnswerTypeSingle {
		q.CorrectAnswers = []int{i}
		return nil
	}

	for pos, idx := range q.CorrectAnswers {
		if idx == i {
			q.CorrectAnswers = append(q.CorrectAnswers[:pos:pos], q.CorrectAnswers[pos+1:]...)
			return nil
		}
	}
	q.CorrectAnswers = append(q.CorrectAnswers, i)
	return nil
}

// MatchesSearch reports whether term appears in the text, category or
// difficulty, ignoring case.
func (q *Question) MatchesSearch(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(q.QuestionText), term) ||
		strings.Contains(strings.ToLower(q.Category), term) ||
		strings.Contains(strings.ToLower(q.Difficulty), term)
}

// ToggleCorrectRequest is the payload for flipping one correct-answer index.
type ToggleCorrectRequest struct {
	Index *int `json:"index" binding:"required,min=0,max=3"`
}
