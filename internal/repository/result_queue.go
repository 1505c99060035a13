package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/korenlms/portal/internal/config"
	"github.com/korenlms/portal/internal/model"
	"github.com/redis/go-redis/v9"
)

// ResultQueue hands graded results to the persistence worker.
type ResultQueue struct {
	rdb *redis.Client
}

// NewResultQueue creates a new ResultQueue.
func NewResultQueue(rdb *redis.Client) *ResultQueue {
	return &ResultQueue{rdb: rdb}
}

// Enqueue pushes one result onto the persist queue.
func (q *ResultQueue) Enqueue(ctx context.Context, res model.ExamResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err()
}
