package builder

import (
	"errors"
	"testing"

	"github.com/korenlms/portal/internal/model"
)

func catalog() Catalog {
	return Catalog{
		1: model.QuestionTypeMCQ,
		2: model.QuestionTypeMCQ,
		3: model.QuestionTypeVoice,
		4: model.QuestionTypeVoice,
		5: model.QuestionTypeMCQ,
	}
}

func TestToggleCountsAndCap(t *testing.T) {
	b := New(catalog(), model.ExamTypeBoth, 3)

	for _, id := range []model.ID{1, 3, 2} {
		if added, err := b.Toggle(id); err != nil || !added {
			t.Fatalf("Toggle(%d) = %v, %v", id, added, err)
		}
	}
	if mcq, voice := b.Counts(); mcq != 2 || voice != 1 {
		t.Errorf("counts = %d/%d", mcq, voice)
	}

	if b.CanAdd(4) {
		t.Error("CanAdd at cap = true")
	}
	if _, err := b.Toggle(4); !errors.Is(err, ErrSelectionFull) {
		t.Errorf("Toggle at cap = %v", err)
	}

	if added, err := b.Toggle(1); err != nil || added {
		t.Errorf("removal = %v, %v", added, err)
	}
	if mcq, _ := b.Counts(); mcq != 1 {
		t.Errorf("mcq after removal = %d", mcq)
	}
	if _, err := b.Toggle(99); !errors.Is(err, ErrUnknownQuestion) {
		t.Errorf("unknown id = %v", err)
	}
}

func TestSetExamTypeFilters(t *testing.T) {
	b := New(catalog(), model.ExamTypeBoth, 20)
	for _, id := range []model.ID{1, 3, 2, 4} {
		_, _ = b.Toggle(id)
	}

	b.SetExamType(model.ExamTypeVoice)
	for _, id := range b.Selected() {
		if catalog()[id] != model.QuestionTypeVoice {
			t.Errorf("non-voice id %d kept", id)
		}
	}
	if mcq, voice := b.Counts(); mcq != 0 || voice != 2 {
		t.Errorf("counts = %d/%d", mcq, voice)
	}
	if _, err := b.Toggle(5); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("adding mcq to voice exam = %v", err)
	}

	b.SetExamType(model.ExamTypeBoth)
	if len(b.Selected()) != 2 {
		t.Errorf("widening the type changed selection: %v", b.Selected())
	}
}

func TestValidate(t *testing.T) {
	b := New(catalog(), model.ExamTypeBoth, 2)
	if err := b.Validate(); !errors.Is(err, ErrSelectionEmpty) {
		t.Errorf("empty = %v", err)
	}
	_, _ = b.Toggle(1)
	_, _ = b.Toggle(2)
	if err := b.Validate(); err != nil {
		t.Errorf("at cap = %v", err)
	}

	b.SetLimit(1)
	var over *OverLimitError
	if err := b.Validate(); !errors.As(err, &over) || over.Selected != 2 {
		t.Errorf("over cap = %v", err)
	}
}

func TestFromStateDropsIneligible(t *testing.T) {
	b, dropped := FromState(catalog(), State{
		ExamType: model.ExamTypeMCQ,
		Limit:    20,
		Selected: []model.ID{1, 3, 1, 42, 5},
	})
	sel := b.Selected()
	if len(sel) != 2 || sel[0] != 1 || sel[1] != 5 {
		t.Errorf("selected = %v", sel)
	}
	if len(dropped) != 3 {
		t.Errorf("dropped = %v", dropped)
	}
	if st := b.State(); st.Limit != 20 || st.ExamType != model.ExamTypeMCQ {
		t.Errorf("state = %+v", st)
	}
}
