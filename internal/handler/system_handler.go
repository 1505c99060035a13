package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/korenlms/portal/internal/config"
	"github.com/korenlms/portal/internal/logger"
	"github.com/korenlms/portal/internal/response"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const pingTimeout = 2 * time.Second

// SystemHandler reports liveness and runtime status.
type SystemHandler struct {
	rdb        *redis.Client
	pool       *pgxpool.Pool
	phpBaseURL string
	startTime  time.Time
	log        zerolog.Logger
}

func NewSystemHandler(rdb *redis.Client, pool *pgxpool.Pool, phpBaseURL string, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		rdb:        rdb,
		pool:       pool,
		phpBaseURL: phpBaseURL,
		startTime:  time.Now(),
		log:        logger.Component(log, "system_handler"),
	}
}

// Health godoc
// GET /health
// Pings Redis and PostgreSQL.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	checks := gin.H{"redis": "ok", "postgres": "ok"}
	healthy := true
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		h.log.Warn().Err(err).Msg("Redis health check failed")
		checks["redis"] = "down"
		healthy = false
	}
	if err := h.pool.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("PostgreSQL health check failed")
		checks["postgres"] = "down"
		healthy = false
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
}

type systemStatus struct {
	Timestamp    int64  `json:"timestamp"`
	Uptime       string `json:"uptime"`
	PHPAPI       string `json:"php_api"`
	Goroutines   int    `json:"goroutines"`
	HeapAlloc    uint64 `json:"heap_alloc"`
	HeapSys      uint64 `json:"heap_sys"`
	NumGC        uint32 `json:"num_gc"`
	GoVersion    string `json:"go_version"`
	QueueResults int64  `json:"queue_results"`
	DeadResults  int64  `json:"dead_results"`
	DBConns      int32  `json:"db_conns"`
}

// Status godoc
// GET /api/v1/admin/system/status
// Returns runtime figures and the backlog of results awaiting persistence.
func (h *SystemHandler) Status(c *gin.Context) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	s := systemStatus{
		Timestamp:  time.Now().Unix(),
		Uptime:     formatDuration(time.Since(h.startTime)),
		PHPAPI:     h.phpBaseURL,
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  ms.HeapAlloc,
		HeapSys:    ms.Sys,
		NumGC:      ms.NumGC,
		GoVersion:  runtime.Version(),
		DBConns:    h.pool.Stat().TotalConns(),
	}
	ctx := c.Request.Context()
	pipe := h.rdb.Pipeline()
	queued := pipe.LLen(ctx, config.WorkerKey.PersistResultsQueue)
	dead := pipe.LLen(ctx, config.WorkerKey.ResultsDeadLetter)
	if _, err := pipe.Exec(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Queue length unavailable")
	}
	s.QueueResults = queued.Val()
	s.DeadResults = dead.Val()

	response.Success(c, http.StatusOK, s)
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
