package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/korenlms/portal/internal/config"
	"github.com/korenlms/portal/internal/response"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RateCounter counts hits in a fixed window.
type RateCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisRateCounter shares windows between portal instances.
type RedisRateCounter struct {
	rdb *redis.Client
}

func NewRedisRateCounter(rdb *redis.Client) *RedisRateCounter {
	return &RedisRateCounter{rdb: rdb}
}

func (r *RedisRateCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RateLimiter allows rate requests per client IP in each fixed window.
type RateLimiter struct {
	counter  RateCounter
	rate     int64
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewRateLimiter creates a RateLimiter (e.g., 10 sign-ins per minute).
func NewRateLimiter(counter RateCounter, rate int, interval time.Duration, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		counter:  counter,
		rate:     int64(rate),
		interval: interval,
		log:      log.With().Str("component", "rate_limiter").Logger(),
		now:      time.Now,
	}
}

// Middleware returns a Gin middleware that rate-limits requests by IP.
// When the counter is unreachable requests are let through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		window := rl.now().UnixNano() / int64(rl.interval)

		n, err := rl.counter.Incr(c.Request.Context(), config.CacheKey.SignInRateKey(ip, window), rl.interval)
		if err != nil {
			rl.log.Warn().Err(err).Str("ip", ip).Msg("Rate counter unavailable")
			c.Next()
			return
		}
		if n > rl.rate {
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}
