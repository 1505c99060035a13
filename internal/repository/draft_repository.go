package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/korenlms/portal/internal/config"
	"github.com/korenlms/portal/internal/model"
	"github.com/redis/go-redis/v9"
)

// ErrDraftNotFound is returned when a draft expired or never existed.
var ErrDraftNotFound = errors.New("exam draft not found")

// DraftRepository keeps exam-builder drafts in Redis.
type DraftRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDraftRepository creates a new DraftRepository.
func NewDraftRepository(rdb *redis.Client, ttl time.Duration) *DraftRepository {
	return &DraftRepository{rdb: rdb, ttl: ttl}
}

func (r *DraftRepository) Save(ctx context.Context, d *model.ExamDraft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	return r.rdb.Set(ctx, config.CacheKey.ExamDraftKey(d.ID), raw, r.ttl).Err()
}

func (r *DraftRepository) Get(ctx context.Context, id string) (*model.ExamDraft, error) {
	raw, err := r.rdb.Get(ctx, config.CacheKey.ExamDraftKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	var d model.ExamDraft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &d, nil
}

func (r *DraftRepository) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, config.CacheKey.ExamDraftKey(id)).Err()
}
