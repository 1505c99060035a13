package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func validMCQ() Question {
	return Question{
		QuestionText:   "Pick the odd one out",
		QuestionType:   QuestionTypeMCQ,
		QuestionFormat: QuestionFormatNormal,
		AnswerType:     AnswerTypeSingle,
		Options: []Option{
			{Text: "apple"}, {Text: "pear"}, {Text: "plum"}, {Text: "car"},
		},
		CorrectAnswers: []int{3},
		Difficulty:     "Beginner",
		Category:       "Vocabulary",
	}
}

func validVoice() Question {
	q := validMCQ()
	q.QuestionType = QuestionTypeVoice
	q.AudioLink = "https://cdn.example.com/a.mp3"
	q.TimeLimit = 30
	return q
}

func TestQuestionValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(q *Question)
		wantField string
	}{
		{name: "valid mcq", mutate: func(q *Question) {}},
		{name: "blank text", mutate: func(q *Question) { q.QuestionText = "  " }, wantField: "questionText"},
		{name: "three options", mutate: func(q *Question) { q.Options = q.Options[:3] }, wantField: "options"},
		{name: "blank option", mutate: func(q *Question) { q.Options[2].Text = "" }, wantField: "options"},
		{name: "mcq without answer", mutate: func(q *Question) { q.CorrectAnswers = nil }, wantField: "correctAnswers"},
		{name: "answer out of range", mutate: func(q *Question) { q.CorrectAnswers = []int{4} }, wantField: "correctAnswers"},
		{name: "duplicate answer", mutate: func(q *Question) {
			q.AnswerType = AnswerTypeMultiple
			q.CorrectAnswers = []int{1, 1}
		}, wantField: "correctAnswers"},
		{name: "single with two answers", mutate: func(q *Question) { q.CorrectAnswers = []int{0, 1} }, wantField: "correctAnswers"},
		{name: "multiple with two answers", mutate: func(q *Question) {
			q.AnswerType = AnswerTypeMultiple
			q.CorrectAnswers = []int{0, 1}
		}},
		{name: "unknown type", mutate: func(q *Question) { q.QuestionType = "essay" }, wantField: "questionType"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validMCQ()
			tt.mutate(&q)
			err := q.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var fe FieldErrors
			if !errors.As(err, &fe) {
				t.Fatalf("Validate() = %v, want FieldErrors", err)
			}
			if _, ok := fe[tt.wantField]; !ok {
				t.Errorf("Validate() fields = %v, want %q", fe, tt.wantField)
			}
		})
	}
}

func TestVoiceTimeLimit(t *testing.T) {
	q := validVoice()
	q.TimeLimit = 3
	if err := q.Validate(); err == nil {
		t.Fatal("timeLimit 3 accepted")
	}

	q.TimeLimit = 30
	if err := q.Validate(); err != nil {
		t.Fatalf("timeLimit 30 rejected: %v", err)
	}

	q.TimeLimit = 301
	if err := q.Validate(); err == nil {
		t.Fatal("timeLimit 301 accepted")
	}
}

func TestVoiceRequiresAudioLink(t *testing.T) {
	q := validVoice()
	q.AudioLink = ""
	var fe FieldErrors
	if err := q.Validate(); !errors.As(err, &fe) || fe["audioLink"] == "" {
		t.Fatalf("Validate() = %v, want audioLink error", err)
	}

	q.AudioLink = "not a url"
	if err := q.Validate(); err == nil {
		t.Fatal("relative garbage accepted as audio link")
	}

	q.AudioLink = "/uploads/clip.mp3"
	if err := q.Validate(); err != nil {
		t.Fatalf("local upload path rejected: %v", err)
	}
}

func TestNormalizeZeroesMCQTimeLimit(t *testing.T) {
	q := validMCQ()
	q.TimeLimit = 30
	q.QuestionFormat = ""
	q.CorrectAnswers = nil
	q.Normalize()

	if q.TimeLimit != 0 {
		t.Errorf("TimeLimit = %d, want 0", q.TimeLimit)
	}
	if q.QuestionFormat != QuestionFormatNormal {
		t.Errorf("QuestionFormat = %q, want normal", q.QuestionFormat)
	}
	if q.CorrectAnswers == nil {
		t.Error("CorrectAnswers left nil")
	}
}

func TestToggleCorrectSingle(t *testing.T) {
	q := validMCQ()
	q.CorrectAnswers = []int{1}

	if err := q.ToggleCorrect(2); err != nil {
		t.Fatal(err)
	}
	if len(q.CorrectAnswers) != 1 || q.CorrectAnswers[0] != 2 {
		t.Errorf("CorrectAnswers = %v, want [2]", q.CorrectAnswers)
	}
}

func TestToggleCorrectMultiple(t *testing.T) {
	q := validMCQ()
	q.AnswerType = AnswerTypeMultiple
	q.CorrectAnswers = []int{0}

	_ = q.ToggleCorrect(2)
	if len(q.CorrectAnswers) != 2 {
		t.Fatalf("after add CorrectAnswers = %v", q.CorrectAnswers)
	}
	_ = q.ToggleCorrect(0)
	if len(q.CorrectAnswers) != 1 || q.CorrectAnswers[0] != 2 {
		t.Errorf("after remove CorrectAnswers = %v, want [2]", q.CorrectAnswers)
	}
	if err := q.ToggleCorrect(4); !errors.Is(err, ErrOptionIndex) {
		t.Errorf("ToggleCorrect(4) = %v, want ErrOptionIndex", err)
	}
}

func TestQuestionMatchesSearch(t *testing.T) {
	q := validMCQ()
	for _, term := range []string{"", "ODD", "vocab", "beginner"} {
		if !q.MatchesSearch(term) {
			t.Errorf("MatchesSearch(%q) = false", term)
		}
	}
	if q.MatchesSearch("grammar") {
		t.Error("MatchesSearch(grammar) = true")
	}
}

func TestIDUnmarshal(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a":12,"b":"34","c":null}`), &v); err != nil {
		t.Fatal(err)
	}
	if v.A != 12 || v.B != 34 || v.C != 0 {
		t.Errorf("got %+v", v)
	}
	if err := json.Unmarshal([]byte(`{"a":"x"}`), &v); err == nil {
		t.Error("non-numeric id accepted")
	}
	if _, err := ParseID("0"); err == nil {
		t.Error("ParseID(0) accepted")
	}
}
