package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/korenlms/portal/internal/attempt"
	"github.com/korenlms/portal/internal/config"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrAttemptNotFound is returned when no attempt is stored under an id.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAttemptConflict is returned by Save when the stored attempt has
	// moved past the revision the caller read.
	ErrAttemptConflict = errors.New("attempt was modified concurrently")
)

// AttemptRepository keeps in-flight exam attempts in Redis.
type AttemptRepository struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(rdb *redis.Client, ttl time.Duration) *AttemptRepository {
	return &AttemptRepository{rdb: rdb, ttl: ttl}
}

// Save stores the attempt if the stored revision still equals a.Version,
// then bumps a.Version. A brand-new attempt (Version 0) may only be created.
// The check and the write run in one WATCH/MULTI transaction.
func (r *AttemptRepository) Save(ctx context.Context, a *attempt.Attempt) error {
	key := config.CacheKey.AttemptKey(a.ID)

	next := *a
	next.Version = a.Version + 1
	raw, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}

	err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if stored != a.Version {
			return ErrAttemptConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, r.ttl)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrAttemptConflict
	}
	if err != nil {
		return err
	}
	a.Version = next.Version
	return nil
}

// storedVersion reads the revision under key; a missing key is revision 0.
func storedVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	raw, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load attempt: %w", err)
	}
	var head struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return 0, fmt.Errorf("decode attempt: %w", err)
	}
	return head.Version, nil
}

// Get loads an attempt snapshot.
func (r *AttemptRepository) Get(ctx context.Context, id string) (*attempt.Attempt, error) {
	raw, err := r.rdb.Get(ctx, config.CacheKey.AttemptKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	var a attempt.Attempt
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode attempt: %w", err)
	}
	return &a, nil
}

// AcquireSubmitLock takes the per-attempt submit lock. It reports false
// while another submission holds it.
func (r *AttemptRepository) AcquireSubmitLock(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	return r.rdb.SetNX(ctx, config.CacheKey.AttemptSubmitLockKey(id), time.Now().Unix(), ttl).Result()
}

// ReleaseSubmitLock drops the submit lock.
func (r *AttemptRepository) ReleaseSubmitLock(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, config.CacheKey.AttemptSubmitLockKey(id)).Err()
}
