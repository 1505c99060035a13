package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/korenlms/portal/internal/attempt"
	"github.com/korenlms/portal/internal/model"
	"github.com/korenlms/portal/internal/phpapi"
	"github.com/korenlms/portal/internal/repository"
	"github.com/korenlms/portal/internal/session"
	"github.com/rs/zerolog"
)

const (
	submitLockTTL = 30 * time.Second
	// saveRetries bounds re-read/re-apply rounds after a conflicting write.
	saveRetries = 3
)

var (
	// ErrSubmitInProgress is returned while another submission of the same
	// attempt is in flight.
	ErrSubmitInProgress = errors.New("submission already in progress")

	errSubmitInterrupted = errors.New("previous submission was interrupted")
)

// AttemptStore persists in-flight attempts and their submit locks.
type AttemptStore interface {
	// Save is a compare-and-set on a.Version. It returns
	// repository.ErrAttemptConflict when the stored attempt is newer and
	// bumps a.Version on success.
	Save(ctx context.Context, a *attempt.Attempt) error
	Get(ctx context.Context, id string) (*attempt.Attempt, error)
	AcquireSubmitLock(ctx context.Context, id string, ttl time.Duration) (bool, error)
	ReleaseSubmitLock(ctx context.Context, id string) error
}

// ResultQueue hands graded attempts to the persistence worker.
type ResultQueue interface {
	Enqueue(ctx context.Context, res model.ExamResult) error
}

// AttemptService runs practice exams: it draws questions through
// takeExam.php, keeps the attempt server-side and submits it for grading.
type AttemptService struct {
	api      *phpapi.Client
	attempts AttemptStore
	results  ResultQueue
	log      zerolog.Logger
	now      func() time.Time
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(api *phpapi.Client, attempts AttemptStore, results ResultQueue, log zerolog.Logger) *AttemptService {
	return &AttemptService{api: api, attempts: attempts, results: results, log: log, now: time.Now}
}

// Start draws a new exam and stores the attempt for the session's user.
func (s *AttemptService) Start(ctx context.Context, sess *session.Data, req model.StartExamRequest) (*attempt.Attempt, error) {
	a := attempt.New(uuid.New().String(), sess.User.ID)

	exam, err := s.api.WithCredentials(sess.Credentials).StartExam(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("start exam: %w", err)
	}
	if exam.ExamType == "" {
		exam.ExamType = req.ExamType
	}
	if exam.NumberOfQuestions == 0 {
		exam.NumberOfQuestions = req.NumberOfQuestions
	}
	if err := a.Begin(exam, s.now()); err != nil {
		return nil, err
	}

	if err := s.attempts.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save attempt: %w", err)
	}
	return a, nil
}

// Get loads an attempt owned by the session's user.
func (s *AttemptService) Get(ctx context.Context, sess *session.Data, id string) (*attempt.Attempt, error) {
	a, err := s.attempts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != sess.User.ID {
		return nil, repository.ErrAttemptNotFound
	}
	return a, nil
}

// Select records an answer.
func (s *AttemptService) Select(ctx context.Context, sess *session.Data, id string, questionID model.ID, option int) (*attempt.Attempt, error) {
	return s.apply(ctx, sess, id, func(a *attempt.Attempt) error {
		return a.SelectAnswer(questionID, option)
	})
}

// Next moves to the following question; at the last question it does nothing.
func (s *AttemptService) Next(ctx context.Context, sess *session.Data, id string) (*attempt.Attempt, error) {
	return s.apply(ctx, sess, id, (*attempt.Attempt).Next)
}

// Previous moves to the preceding question; at the first question it does nothing.
func (s *AttemptService) Previous(ctx context.Context, sess *session.Data, id string) (*attempt.Attempt, error) {
	return s.apply(ctx, sess, id, (*attempt.Attempt).Previous)
}

// Jump moves to question index i.
func (s *AttemptService) Jump(ctx context.Context, sess *session.Data, id string, i int) (*attempt.Attempt, error) {
	return s.apply(ctx, sess, id, func(a *attempt.Attempt) error {
		return a.Jump(i)
	})
}

func (s *AttemptService) apply(ctx context.Context, sess *session.Data, id string, fn func(*attempt.Attempt) error) (*attempt.Attempt, error) {
	a, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if a.Status == attempt.StatusSubmitting {
		if err := s.recoverAbandoned(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.update(ctx, id, fn)
}

// recoverAbandoned returns a submitting attempt to progress when no
// submission holds its lock any more. A live submission is left alone.
func (s *AttemptService) recoverAbandoned(ctx context.Context, id string) error {
	locked, err := s.attempts.AcquireSubmitLock(ctx, id, submitLockTTL)
	if err != nil {
		return fmt.Errorf("acquire submit lock: %w", err)
	}
	if !locked {
		return nil
	}
	defer s.releaseSubmitLock(ctx, id)

	s.log.Warn().Str("attempt_id", id).Msg("Recovering interrupted submission")
	_, err = s.update(ctx, id, recoverSubmit)
	return err
}

func (s *AttemptService) releaseSubmitLock(ctx context.Context, id string) {
	if err := s.attempts.ReleaseSubmitLock(context.WithoutCancel(ctx), id); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", id).Msg("Failed to release submit lock")
	}
}

// update applies fn to the stored attempt and saves it. When another writer
// got there first the attempt is re-read and fn applied again, so fn always
// sees the latest status.
func (s *AttemptService) update(ctx context.Context, id string, fn func(*attempt.Attempt) error) (*attempt.Attempt, error) {
	for i := 1; ; i++ {
		a, err := s.attempts.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(a); err != nil {
			return nil, err
		}
		err = s.attempts.Save(ctx, a)
		if err == nil {
			return a, nil
		}
		if !errors.Is(err, repository.ErrAttemptConflict) || i == saveRetries {
			return nil, fmt.Errorf("save attempt: %w", err)
		}
	}
}

// Submit sends a complete attempt for grading. Only one submission per
// attempt runs at a time. When grading fails the attempt is back in
// progress with its answers, and the returned attempt carries the error.
func (s *AttemptService) Submit(ctx context.Context, sess *session.Data, id string) (*attempt.Attempt, error) {
	if _, err := s.Get(ctx, sess, id); err != nil {
		return nil, err
	}

	locked, err := s.attempts.AcquireSubmitLock(ctx, id, submitLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire submit lock: %w", err)
	}
	if !locked {
		return nil, ErrSubmitInProgress
	}
	defer s.releaseSubmitLock(ctx, id)

	// Holding the lock, a submitting attempt belongs to a submission that
	// died before recording its outcome. Put it back in progress first so it
	// is usable even if this submission stops early too.
	a, err := s.attempts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == attempt.StatusSubmitting {
		s.log.Warn().Str("attempt_id", id).Msg("Recovering interrupted submission")
		if _, err := s.update(ctx, id, recoverSubmit); err != nil {
			return nil, err
		}
	}

	var answers []model.SubmittedAnswer
	a, err = s.update(ctx, id, func(a *attempt.Attempt) (err error) {
		answers, err = a.BeginSubmit()
		return err
	})
	if err != nil {
		return nil, err
	}

	res, submitErr := s.api.WithCredentials(sess.Credentials).SubmitAnswers(ctx, a.Token, answers)
	store := context.WithoutCancel(ctx)
	if submitErr != nil {
		if err := a.FailSubmit(submitErr); err != nil {
			s.log.Error().Err(err).Str("attempt_id", id).Msg("Cannot return attempt to progress")
		} else if err := s.attempts.Save(store, a); err != nil {
			s.log.Error().Err(err).Str("attempt_id", id).Msg("Failed to save attempt after failed submit")
		}
		return a, fmt.Errorf("submit answers: %w", submitErr)
	}

	if err := a.Finish(res, s.now()); err != nil {
		return nil, err
	}
	if err := s.attempts.Save(store, a); err != nil {
		return nil, fmt.Errorf("save attempt: %w", err)
	}

	if err := s.results.Enqueue(store, resultRow(a)); err != nil {
		s.log.Error().Err(err).Str("attempt_id", id).Msg("Failed to queue exam result")
	}
	return a, nil
}

func recoverSubmit(a *attempt.Attempt) error {
	if a.Status != attempt.StatusSubmitting {
		return nil
	}
	return a.FailSubmit(errSubmitInterrupted)
}

// Export returns the result document of a completed attempt.
func (s *AttemptService) Export(ctx context.Context, sess *session.Data, id string) (*model.ResultExport, error) {
	a, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	return a.Export(s.now())
}

func resultRow(a *attempt.Attempt) model.ExamResult {
	sum := a.Result.Summary
	row := model.ExamResult{
		AttemptID:        a.ID,
		UserID:           a.UserID,
		ExamType:         a.ExamType,
		Total:            sum.Total,
		Correct:          sum.Correct,
		Incorrect:        sum.Incorrect,
		Percentage:       sum.Percentage,
		UpstreamResultID: a.Result.ExamResultID,
	}
	if a.CompletedAt != nil {
		row.SubmittedAt = *a.CompletedAt
	}
	return row
}
