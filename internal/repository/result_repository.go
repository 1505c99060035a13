package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/korenlms/portal/internal/model"
)

// ResultRepository handles the local exam result history.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// BulkInsert writes a batch of results with one UNNEST insert. Attempts
// already recorded are skipped.
func (r *ResultRepository) BulkInsert(ctx context.Context, results []model.ExamResult) error {
	n := len(results)
	if n == 0 {
		return nil
	}

	attemptIDs := make([]string, 0, n)
	userIDs := make([]int64, 0, n)
	examTypes := make([]string, 0, n)
	totals := make([]int32, 0, n)
	corrects := make([]int32, 0, n)
	incorrects := make([]int32, 0, n)
	percentages := make([]float64, 0, n)
	upstreamIDs := make([]*int64, 0, n)
	submittedAts := make([]time.Time, 0, n)

	for _, res := range results {
		attemptIDs = append(attemptIDs, res.AttemptID)
		userIDs = append(userIDs, int64(res.UserID))
		examTypes = append(examTypes, string(res.ExamType))
		totals = append(totals, int32(res.Total))
		corrects = append(corrects, int32(res.Correct))
		incorrects = append(incorrects, int32(res.Incorrect))
		percentages = append(percentages, res.Percentage)
		var up *int64
		if res.UpstreamResultID != nil {
			v := int64(*res.UpstreamResultID)
			up = &v
		}
		upstreamIDs = append(upstreamIDs, up)
		submittedAts = append(submittedAts, res.SubmittedAt)
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO exam_results
			(attempt_id, user_id, exam_type, total, correct, incorrect, percentage, upstream_result_id, submitted_at)
		SELECT * FROM UNNEST(
			$1::text[], $2::bigint[], $3::text[], $4::int[], $5::int[], $6::int[],
			$7::float8[], $8::bigint[], $9::timestamptz[]
		)
		ON CONFLICT (attempt_id) DO NOTHING`,
		attemptIDs, userIDs, examTypes, totals, corrects, incorrects, percentages, upstreamIDs, submittedAts,
	)
	if err != nil {
		return fmt.Errorf("bulk insert results: %w", err)
	}
	return nil
}

// Insert writes a single result.
func (r *ResultRepository) Insert(ctx context.Context, res model.ExamResult) error {
	var up *int64
	if res.UpstreamResultID != nil {
		v := int64(*res.UpstreamResultID)
		up = &v
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exam_results
			(attempt_id, user_id, exam_type, total, correct, incorrect, percentage, upstream_result_id, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (attempt_id) DO NOTHING`,
		res.AttemptID, int64(res.UserID), string(res.ExamType), res.Total, res.Correct,
		res.Incorrect, res.Percentage, up, res.SubmittedAt,
	)
	return err
}

// ListByUser returns one user's results, newest first.
func (r *ResultRepository) ListByUser(ctx context.Context, userID model.ID, page, perPage int) ([]model.ExamResult, int64, error) {
	return r.list(ctx, "WHERE user_id = $1", []interface{}{int64(userID)}, page, perPage)
}

// ListAll returns every stored result, newest first.
func (r *ResultRepository) ListAll(ctx context.Context, page, perPage int) ([]model.ExamResult, int64, error) {
	return r.list(ctx, "", nil, page, perPage)
}

func (r *ResultRepository) list(ctx context.Context, where string, args []interface{}, page, perPage int) ([]model.ExamResult, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exam_results `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count results: %w", err)
	}

	offset := (page - 1) * perPage
	n := len(args)
	query := fmt.Sprintf(`
		SELECT id, attempt_id, user_id, exam_type, total, correct, incorrect, percentage, upstream_result_id, submitted_at
		FROM exam_results %s
		ORDER BY submitted_at DESC, id DESC
		LIMIT $%d OFFSET $%d`, where, n+1, n+2)

	rows, err := r.pool.Query(ctx, query, append(args, perPage, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	results := make([]model.ExamResult, 0, perPage)
	for rows.Next() {
		var res model.ExamResult
		var userID int64
		var examType string
		var up *int64
		if err := rows.Scan(&res.ID, &res.AttemptID, &userID, &examType, &res.Total, &res.Correct,
			&res.Incorrect, &res.Percentage, &up, &res.SubmittedAt); err != nil {
			return nil, 0, fmt.Errorf("scan result: %w", err)
		}
		res.UserID = model.ID(userID)
		res.ExamType = model.ExamType(examType)
		if up != nil {
			id := model.ID(*up)
			res.UpstreamResultID = &id
		}
		results = append(results, res)
	}
	return results, total, rows.Err()
}
