package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/korenlms/portal/internal/config"
	"github.com/redis/go-redis/v9"
)

// Scope is where a login is kept. Durable logins survive browser restarts
// ("remember me"); session logins expire after a period of inactivity.
type Scope string

const (
	ScopeDurable Scope = "durable"
	ScopeSession Scope = "session"
)

// ErrNotFound is returned when no login exists under an id.
var ErrNotFound = errors.New("session not found")

// Store persists encoded session data per scope.
type Store interface {
	Put(ctx context.Context, scope Scope, id string, data []byte, ttl time.Duration) error
	// Replace overwrites an existing entry and keeps its remaining TTL.
	Replace(ctx context.Context, scope Scope, id string, data []byte) error
	Get(ctx context.Context, scope Scope, id string) ([]byte, error)
	Touch(ctx context.Context, scope Scope, id string, ttl time.Duration) error
	Delete(ctx context.Context, scope Scope, id string) error
}

// ─── Redis ────────────────────────────────────────────────────────────

// RedisStore keeps sessions under session:<scope>:<id>.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Put(ctx context.Context, scope Scope, id string, data []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, config.CacheKey.SessionKey(string(scope), id), data, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *RedisStore) Replace(ctx context.Context, scope Scope, id string, data []byte) error {
	ok, err := s.rdb.SetArgs(ctx, config.CacheKey.SessionKey(string(scope), id), data, redis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Result()
	if errors.Is(err, redis.Nil) || (err == nil && ok != "OK") {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("replace session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, scope Scope, id string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, config.CacheKey.SessionKey(string(scope), id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return b, nil
}

func (s *RedisStore) Touch(ctx context.Context, scope Scope, id string, ttl time.Duration) error {
	return s.rdb.Expire(ctx, config.CacheKey.SessionKey(string(scope), id), ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, scope Scope, id string) error {
	return s.rdb.Del(ctx, config.CacheKey.SessionKey(string(scope), id)).Err()
}

// ─── Memory ───────────────────────────────────────────────────────────

type memEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStore is an in-process Store used by tests and the CLI.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memEntry), now: time.Now}
}

func memKey(scope Scope, id string) string {
	return config.CacheKey.SessionKey(string(scope), id)
}

func (s *MemoryStore) Put(_ context.Context, scope Scope, id string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memEntry{data: append([]byte(nil), data...)}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.entries[memKey(scope, id)] = e
	return nil
}

func (s *MemoryStore) Replace(_ context.Context, scope Scope, id string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(memKey(scope, id))
	if !ok {
		return ErrNotFound
	}
	e.data = append([]byte(nil), data...)
	s.entries[memKey(scope, id)] = e
	return nil
}

func (s *MemoryStore) Get(_ context.Context, scope Scope, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(memKey(scope, id))
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.data...), nil
}

func (s *MemoryStore) Touch(_ context.Context, scope Scope, id string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memKey(scope, id)
	e, ok := s.live(key)
	if !ok {
		return nil
	}
	e.expires = s.now().Add(ttl)
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, scope Scope, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, memKey(scope, id))
	return nil
}

// live must be called with mu held.
func (s *MemoryStore) live(key string) (memEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memEntry{}, false
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.entries, key)
		return memEntry{}, false
	}
	return e, true
}
