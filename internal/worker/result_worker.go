package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/korenlms/portal/internal/config"
	"github.com/korenlms/portal/internal/logger"
	"github.com/korenlms/portal/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultWriter persists graded attempts.
type ResultWriter interface {
	BulkInsert(ctx context.Context, results []model.ExamResult) error
	Insert(ctx context.Context, res model.ExamResult) error
}

// ResultWorker drains the results queue into the exam_results table.
type ResultWorker struct {
	rdb    *redis.Client
	writer ResultWriter
	log    zerolog.Logger
}

func NewResultWorker(rdb *redis.Client, writer ResultWriter, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		rdb:    rdb,
		writer: writer,
		log:    logger.Component(log, "result_worker"),
	}
}

// Start blocks until ctx is cancelled, batching results by size or age.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]model.ExamResult, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {
			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			var res model.ExamResult
			if err := json.Unmarshal([]byte(item[1]), &res); err != nil {
				w.log.Error().Err(err).Msg("Undecodable result, moving to dead letter")
				w.deadLetter(ctx, item[1])
				continue
			}
			batch = append(batch, res)
		}
	}
}

// flushSafe writes the batch in one statement and falls back to row-by-row
// inserts. Rows that still fail go back on the queue.
func (w *ResultWorker) flushSafe(ctx context.Context, batch []model.ExamResult) {
	if len(batch) == 0 {
		return
	}

	err := w.writer.BulkInsert(ctx, batch)
	if err == nil {
		w.log.Debug().Int("count", len(batch)).Msg("Persisted exam results")
		return
	}
	w.log.Warn().Err(err).Msg("bulk result insert failed, using fallback")

	for _, res := range batch {
		if err := w.writer.Insert(ctx, res); err != nil {
			w.log.Error().Err(err).Str("attempt_id", res.AttemptID).Msg("Insert failed, requeueing")
			w.requeue(ctx, res)
		}
	}
}

func (w *ResultWorker) requeue(ctx context.Context, res model.ExamResult) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err(); err != nil {
		w.log.Error().Err(err).Str("attempt_id", res.AttemptID).Msg("Requeue failed, result dropped")
	}
}

func (w *ResultWorker) deadLetter(ctx context.Context, raw string) {
	if err := w.rdb.RPush(ctx, config.WorkerKey.ResultsDeadLetter, raw).Err(); err != nil {
		w.log.Error().Err(err).Msg("Dead letter push failed, payload dropped")
	}
}
