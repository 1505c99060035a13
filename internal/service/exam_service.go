package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/korenlms/portal/internal/builder"
	"github.com/korenlms/portal/internal/model"
	"github.com/korenlms/portal/internal/phpapi"
	"github.com/korenlms/portal/internal/repository"
	"github.com/korenlms/portal/internal/session"
)

// Exam payload constants the PHP API requires. Eligibility is not managed
// from the portal, so every exam targets the practice batch.
const (
	EligibilityBatch = "batch"
	PracticeBatch    = "Practice"

	defaultDraftLimit = 20
)

// ErrExamNotFound is returned when no exam has the requested id.
var ErrExamNotFound = errors.New("exam not found")

// DraftStore persists exam-builder drafts.
type DraftStore interface {
	Save(ctx context.Context, d *model.ExamDraft) error
	Get(ctx context.Context, id string) (*model.ExamDraft, error)
	Delete(ctx context.Context, id string) error
}

// ExamListItem is an exam with its display labels.
type ExamListItem struct {
	model.Exam
	DurationLabel string `json:"durationLabel"`
	ExamTypeLabel string `json:"examTypeLabel"`
}

// DraftQuestion is an eligible question as the draft's selector shows it.
type DraftQuestion struct {
	model.EligibleQuestion
	Selected bool `json:"selected"`
	CanAdd   bool `json:"canAdd"`
}

// DraftView is a draft with its running counts and selectable questions.
type DraftView struct {
	model.ExamDraft
	MCQCount   int             `json:"mcqCount"`
	VoiceCount int             `json:"voiceCount"`
	Dropped    []model.ID      `json:"dropped,omitempty"`
	Questions  []DraftQuestion `json:"questions"`
}

// ExamService manages exam definitions through exam.php and holds
// exam-builder drafts.
type ExamService struct {
	api    *phpapi.Client
	drafts DraftStore
	now    func() time.Time
}

// NewExamService creates a new ExamService.
func NewExamService(api *phpapi.Client, drafts DraftStore) *ExamService {
	return &ExamService{api: api, drafts: drafts, now: time.Now}
}

// List returns the exams whose name matches search.
func (s *ExamService) List(ctx context.Context, sess *session.Data, search string) ([]ExamListItem, error) {
	exams, err := s.api.WithCredentials(sess.Credentials).ListExams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	out := make([]ExamListItem, 0, len(exams))
	for i := range exams {
		if !exams[i].MatchesSearch(search) {
			continue
		}
		out = append(out, ExamListItem{
			Exam:          exams[i],
			DurationLabel: exams[i].DurationLabel(),
			ExamTypeLabel: exams[i].ExamType.Label(),
		})
	}
	return out, nil
}

// EligibleQuestions lists the questions exams can be built from, narrowed
// to those an exam of examType admits when examType is set.
func (s *ExamService) EligibleQuestions(ctx context.Context, sess *session.Data, examType model.ExamType) ([]model.EligibleQuestion, error) {
	qs, err := s.api.WithCredentials(sess.Credentials).ListEligibleQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list eligible questions: %w", err)
	}
	if examType == "" {
		return qs, nil
	}
	out := qs[:0]
	for _, q := range qs {
		if examType.Admits(q.QuestionType) {
			out = append(out, q)
		}
	}
	return out, nil
}

// Create validates the selection against the live catalog and stores a new exam.
func (s *ExamService) Create(ctx context.Context, sess *session.Data, req model.ExamRequest) (string, error) {
	return s.save(ctx, sess, 0, req)
}

// Update validates and replaces exam id.
func (s *ExamService) Update(ctx context.Context, sess *session.Data, id model.ID, req model.ExamRequest) (string, error) {
	return s.save(ctx, sess, id, req)
}

// Delete removes exam id.
func (s *ExamService) Delete(ctx context.Context, sess *session.Data, id model.ID) (string, error) {
	msg, err := s.api.WithCredentials(sess.Credentials).DeleteExam(ctx, id)
	if err != nil {
		return "", fmt.Errorf("delete exam %d: %w", id, err)
	}
	return msg, nil
}

func (s *ExamService) save(ctx context.Context, sess *session.Data, id model.ID, req model.ExamRequest) (string, error) {
	api := s.api.WithCredentials(sess.Credentials)

	catalog, err := s.catalog(ctx, api)
	if err != nil {
		return "", err
	}
	b, dropped := builder.FromState(catalog, builder.State{
		ExamType: req.ExamType,
		Limit:    req.NumberOfQuestions,
		Selected: req.SelectedQuestions,
	})
	if len(dropped) > 0 {
		return "", model.FieldErrors{
			"selectedQuestions": fmt.Sprintf("questions %v are not eligible for a %s exam", dropped, req.ExamType.Label()),
		}
	}
	if err := b.Validate(); err != nil {
		return "", model.FieldErrors{"selectedQuestions": err.Error()}
	}

	payload := buildExamPayload(id, req.Name, req.Description, req.Duration, req.TotalMarks, b)
	if id == 0 {
		msg, err := api.CreateExam(ctx, payload)
		if err != nil {
			return "", fmt.Errorf("create exam: %w", err)
		}
		return msg, nil
	}
	msg, err := api.UpdateExam(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("update exam %d: %w", id, err)
	}
	return msg, nil
}

func buildExamPayload(id model.ID, name, description string, duration, totalMarks int, b *builder.Builder) model.ExamUpstreamPayload {
	mcq, voice := b.Counts()
	var desc *string
	if d := strings.TrimSpace(description); d != "" {
		desc = &d
	}
	return model.ExamUpstreamPayload{
		ID:                id,
		ExamName:          strings.TrimSpace(name),
		Description:       desc,
		ExamType:          b.ExamType(),
		Duration:          duration,
		NumberOfQuestions: b.Limit(),
		TotalMarks:        totalMarks,
		EligibilityType:   EligibilityBatch,
		SelectedBatch:     PracticeBatch,
		SelectedStudents:  []model.ID{},
		SelectedQuestions: b.Selected(),
		MCQCount:          mcq,
		VoiceCount:        voice,
	}
}

func (s *ExamService) catalog(ctx context.Context, api *phpapi.Client) (builder.Catalog, error) {
	qs, err := api.ListEligibleQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list eligible questions: %w", err)
	}
	return builder.NewCatalog(qs), nil
}

// ─── Drafts ───────────────────────────────────────────────────────────

// CreateDraft starts a builder draft, blank or seeded from an existing exam.
func (s *ExamService) CreateDraft(ctx context.Context, sess *session.Data, req model.ExamDraftCreateRequest) (*DraftView, error) {
	d := &model.ExamDraft{
		ID:                uuid.NewString(),
		OwnerID:           sess.User.ID,
		ExamType:          req.ExamType,
		NumberOfQuestions: req.NumberOfQuestions,
		SelectedQuestions: []model.ID{},
	}
	if d.ExamType == "" {
		d.ExamType = model.ExamTypeBoth
	}
	if d.NumberOfQuestions == 0 {
		d.NumberOfQuestions = defaultDraftLimit
	}

	if req.FromExamID != 0 {
		exams, err := s.api.WithCredentials(sess.Credentials).ListExams(ctx)
		if err != nil {
			return nil, fmt.Errorf("list exams: %w", err)
		}
		found := false
		for _, e := range exams {
			if e.ID == req.FromExamID {
				d.ExamID = e.ID
				d.ExamType = e.ExamType
				d.NumberOfQuestions = e.NumberOfQuestions
				d.SelectedQuestions = e.SelectedQuestions
				found = true
				break
			}
		}
		if !found {
			return nil, ErrExamNotFound
		}
	}

	return s.mutateDraft(ctx, sess, d, func(*builder.Builder) error { return nil })
}

// GetDraft returns the caller's draft id.
func (s *ExamService) GetDraft(ctx context.Context, sess *session.Data, id string) (*DraftView, error) {
	d, err := s.loadDraft(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	return s.mutateDraft(ctx, sess, d, func(*builder.Builder) error { return nil })
}

// PatchDraft changes a draft's exam type or question cap. Changing the type
// drops selected questions the new type excludes.
func (s *ExamService) PatchDraft(ctx context.Context, sess *session.Data, id string, p model.ExamDraftSettings) (*DraftView, error) {
	d, err := s.loadDraft(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	return s.mutateDraft(ctx, sess, d, func(b *builder.Builder) error {
		if p.ExamType != nil {
			b.SetExamType(*p.ExamType)
		}
		if p.NumberOfQuestions != nil {
			b.SetLimit(*p.NumberOfQuestions)
		}
		return nil
	})
}

// ToggleDraftQuestion adds or removes one question.
func (s *ExamService) ToggleDraftQuestion(ctx context.Context, sess *session.Data, id string, questionID model.ID) (*DraftView, error) {
	d, err := s.loadDraft(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	return s.mutateDraft(ctx, sess, d, func(b *builder.Builder) error {
		_, err := b.Toggle(questionID)
		return err
	})
}

// SubmitDraft saves the draft as an exam (new, or the one it was seeded
// from) and discards it.
func (s *ExamService) SubmitDraft(ctx context.Context, sess *session.Data, id string, req model.ExamDraftSubmitRequest) (string, error) {
	d, err := s.loadDraft(ctx, sess, id)
	if err != nil {
		return "", err
	}
	msg, err := s.save(ctx, sess, d.ExamID, model.ExamRequest{
		Name:              req.Name,
		Description:       req.Description,
		ExamType:          d.ExamType,
		Duration:          req.Duration,
		NumberOfQuestions: d.NumberOfQuestions,
		TotalMarks:        req.TotalMarks,
		SelectedQuestions: d.SelectedQuestions,
	})
	if err != nil {
		return "", err
	}
	_ = s.drafts.Delete(ctx, id)
	return msg, nil
}

// DiscardDraft deletes the caller's draft.
func (s *ExamService) DiscardDraft(ctx context.Context, sess *session.Data, id string) error {
	if _, err := s.loadDraft(ctx, sess, id); err != nil {
		return err
	}
	return s.drafts.Delete(ctx, id)
}

func (s *ExamService) loadDraft(ctx context.Context, sess *session.Data, id string) (*model.ExamDraft, error) {
	d, err := s.drafts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != sess.User.ID {
		return nil, repository.ErrDraftNotFound
	}
	return d, nil
}

// mutateDraft rebuilds the draft against the live catalog, applies fn and
// stores the result. A failing fn leaves the stored draft untouched.
func (s *ExamService) mutateDraft(ctx context.Context, sess *session.Data, d *model.ExamDraft, fn func(*builder.Builder) error) (*DraftView, error) {
	qs, err := s.api.WithCredentials(sess.Credentials).ListEligibleQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list eligible questions: %w", err)
	}
	b, dropped := builder.FromState(builder.NewCatalog(qs), builder.State{
		ExamType: d.ExamType,
		Limit:    d.NumberOfQuestions,
		Selected: d.SelectedQuestions,
	})
	if err := fn(b); err != nil {
		return nil, err
	}

	st := b.State()
	d.ExamType = st.ExamType
	d.NumberOfQuestions = st.Limit
	d.SelectedQuestions = st.Selected
	d.UpdatedAt = s.now().UTC()
	if err := s.drafts.Save(ctx, d); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}

	selected := make(map[model.ID]bool, len(st.Selected))
	for _, id := range st.Selected {
		selected[id] = true
	}
	mcq, voice := b.Counts()
	v := &DraftView{
		ExamDraft:  *d,
		MCQCount:   mcq,
		VoiceCount: voice,
		Dropped:    dropped,
		Questions:  make([]DraftQuestion, 0, len(qs)),
	}
	for _, q := range qs {
		if !d.ExamType.Admits(q.QuestionType) {
			continue
		}
		v.Questions = append(v.Questions, DraftQuestion{
			EligibleQuestion: q,
			Selected:         selected[q.ID],
			CanAdd:           !selected[q.ID] && b.CanAdd(q.ID),
		})
	}
	return v, nil
}
