// Package builder assembles an exam's question selection: a working set of
// question ids with running MCQ and voice counts, capped at the exam's
// question count and filtered by its exam type.
package builder

import (
	"errors"
	"fmt"

	"github.com/korenlms/portal/internal/model"
)

var (
	ErrSelectionFull   = errors.New("selection already holds the maximum number of questions")
	ErrSelectionEmpty  = errors.New("select at least one question")
	ErrUnknownQuestion = errors.New("question is not in the eligible catalog")
	ErrTypeMismatch    = errors.New("question type does not match the exam type")
)

// OverLimitError is returned by Validate when the selection exceeds the cap.
type OverLimitError struct {
	Selected, Limit int
}

func (e *OverLimitError) Error() string {
	return fmt.Sprintf("you can only select up to %d questions (selected %d)", e.Limit, e.Selected)
}

// Catalog maps eligible question ids to their type.
type Catalog map[model.ID]model.QuestionType

// NewCatalog indexes the eligible questions.
func NewCatalog(qs []model.EligibleQuestion) Catalog {
	c := make(Catalog, len(qs))
	for _, q := range qs {
		c[q.ID] = q.QuestionType
	}
	return c
}

// State is the serialisable part of a Builder.
type State struct {
	ExamType model.ExamType `json:"examType"`
	Limit    int            `json:"numberOfQuestions"`
	Selected []model.ID     `json:"selectedQuestions"`
}

// Builder is not safe for concurrent use.
type Builder struct {
	catalog  Catalog
	examType model.ExamType
	limit    int
	selected []model.ID
	mcq      int
	voice    int
}

// New starts an empty selection.
func New(catalog Catalog, examType model.ExamType, limit int) *Builder {
	if examType == "" {
		examType = model.ExamTypeBoth
	}
	return &Builder{catalog: catalog, examType: examType, limit: limit, selected: []model.ID{}}
}

// FromState rebuilds a builder against catalog. Ids the catalog no longer
// knows, or whose type the exam type excludes, are dropped and returned.
func FromState(catalog Catalog, st State) (*Builder, []model.ID) {
	b := New(catalog, st.ExamType, st.Limit)
	var dropped []model.ID
	seen := make(map[model.ID]bool, len(st.Selected))
	for _, id := range st.Selected {
		qt, ok := catalog[id]
		if !ok || seen[id] || !b.examType.Admits(qt) {
			dropped = append(dropped, id)
			continue
		}
		seen[id] = true
		b.selected = append(b.selected, id)
	}
	b.recount()
	return b, dropped
}

// State snapshots the builder.
func (b *Builder) State() State {
	return State{ExamType: b.examType, Limit: b.limit, Selected: b.Selected()}
}

func (b *Builder) ExamType() model.ExamType { return b.examType }
func (b *Builder) Limit() int               { return b.limit }

// Selected returns a copy of the selection in the order it was built.
func (b *Builder) Selected() []model.ID {
	return append([]model.ID{}, b.selected...)
}

// Counts returns how many selected questions are MCQ and voice.
func (b *Builder) Counts() (mcq, voice int) {
	return b.mcq, b.voice
}

// SetExamType changes the exam type and drops selected questions it excludes.
func (b *Builder) SetExamType(t model.ExamType) {
	b.examType = t
	kept := b.selected[:0]
	for _, id := range b.selected {
		if t.Admits(b.catalog[id]) {
			kept = append(kept, id)
		}
	}
	b.selected = kept
	b.recount()
}

// SetLimit changes the cap. A selection above the new cap is kept but
// fails Validate until trimmed.
func (b *Builder) SetLimit(n int) {
	b.limit = n
}

func (b *Builder) index(id model.ID) int {
	for i, sel := range b.selected {
		if sel == id {
			return i
		}
	}
	return -1
}

// CanAdd reports whether id could be added right now.
func (b *Builder) CanAdd(id model.ID) bool {
	return b.checkAdd(id) == nil
}

func (b *Builder) checkAdd(id model.ID) error {
	qt, ok := b.catalog[id]
	if !ok {
		return ErrUnknownQuestion
	}
	if !b.examType.Admits(qt) {
		return ErrTypeMismatch
	}
	if len(b.selected) >= b.limit {
		return ErrSelectionFull
	}
	return nil
}

// Toggle removes id when selected and adds it otherwise. Removal always
// succeeds; adding fails at the cap or for ineligible questions.
func (b *Builder) Toggle(id model.ID) (added bool, err error) {
	if i := b.index(id); i >= 0 {
		b.selected = append(b.selected[:i], b.selected[i+1:]...)
		b.recount()
		return false, nil
	}
	if err := b.checkAdd(id); err != nil {
		return false, err
	}
	b.selected = append(b.selected, id)
	b.recount()
	return true, nil
}

// Validate checks the selection is non-empty and within the cap.
func (b *Builder) Validate() error {
	if len(b.selected) == 0 {
		return ErrSelectionEmpty
	}
	if len(b.selected) > b.limit {
		return &OverLimitError{Selected: len(b.selected), Limit: b.limit}
	}
	return nil
}

func (b *Builder) recount() {
	b.mcq, b.voice = 0, 0
	for _, id := range b.selected {
		switch b.catalog[id] {
		case model.QuestionTypeMCQ:
			b.mcq++
		case model.QuestionTypeVoice:
			b.voice++
		}
	}
}
