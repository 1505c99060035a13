package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionKey returns the cache key for a login stored in the given scope
// ("durable" or "session").
func (r *CacheKeyStruct) SessionKey(scope, sessionID string) string {
	return fmt.Sprintf("session:%s:%s", scope, sessionID)
}

// AttemptKey returns the cache key for an exam attempt snapshot.
func (r *CacheKeyStruct) AttemptKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s", attemptID)
}

// AttemptSubmitLockKey guards an attempt against concurrent submissions.
func (r *CacheKeyStruct) AttemptSubmitLockKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:submit_lock", attemptID)
}

// ExamDraftKey returns the cache key for an exam-builder working set.
func (r *CacheKeyStruct) ExamDraftKey(draftID string) string {
	return fmt.Sprintf("exam_draft:%s", draftID)
}

// SignInRateKey returns the fixed-window counter key for sign-in attempts by IP.
func (r *CacheKeyStruct) SignInRateKey(ip string, window int64) string {
	return fmt.Sprintf("ratelimit:signin:%s:%d", ip, window)
}

var CacheKey = NewCacheKeyStruct()
