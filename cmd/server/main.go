package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/korenlms/portal/internal/config"
	"github.com/korenlms/portal/internal/database"
	"github.com/korenlms/portal/internal/handler"
	"github.com/korenlms/portal/internal/logger"
	"github.com/korenlms/portal/internal/middleware"
	"github.com/korenlms/portal/internal/phpapi"
	"github.com/korenlms/portal/internal/repository"
	"github.com/korenlms/portal/internal/router"
	"github.com/korenlms/portal/internal/service"
	"github.com/korenlms/portal/internal/session"
	"github.com/korenlms/portal/internal/storage"
	"github.com/korenlms/portal/internal/validator"
	"github.com/korenlms/portal/internal/worker"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("php_api", cfg.PHPBaseURL).
		Str("media_backend", cfg.MediaBackend).
		Msg("Starting Koren LMS portal")

	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Media Storage ─────────────────────────────────────────────────
	var store storage.Storage
	switch cfg.MediaBackend {
	case "minio":
		m, err := storage.NewMinio(ctx, cfg.Minio)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to MinIO")
		}
		store = m
	default:
		store = storage.NewLocal(cfg.UploadDir)
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	api := phpapi.New(cfg.PHPBaseURL, cfg.PHPTimeout, log)
	sessions := session.NewManager(session.NewRedisStore(rdb), cfg.SessionIdleTTL, cfg.RememberMeTTL)
	draftRepo := repository.NewDraftRepository(rdb, cfg.DraftTTL)
	attemptRepo := repository.NewAttemptRepository(rdb, cfg.AttemptTTL)
	resultQueue := repository.NewResultQueue(rdb)
	resultRepo := repository.NewResultRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, api, sessions, log)
	questionService := service.NewQuestionService(api)
	examService := service.NewExamService(api, draftRepo)
	studentService := service.NewStudentService(api)
	attemptService := service.NewAttemptService(api, attemptRepo, resultQueue, log)
	resultService := service.NewResultService(resultRepo)
	mediaService := service.NewMediaService(store, cfg.MaxUploadBytes)
	dashboardService := service.NewDashboardService(api)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService, sessions, log),
		Question:  handler.NewQuestionHandler(questionService, sessions, log),
		Exam:      handler.NewExamHandler(examService, sessions, log),
		Student:   handler.NewStudentHandler(studentService, sessions, log),
		Attempt:   handler.NewAttemptHandler(attemptService, sessions, log),
		Result:    handler.NewResultHandler(resultService, log),
		Media:     handler.NewMediaHandler(mediaService, log),
		Dashboard: handler.NewDashboardHandler(dashboardService, sessions, log),
		WS:        handler.NewWSHandler(attemptService, studentService, sessions, cfg.SearchDebounce, log, cfg.AllowedOrigins),
		System:    handler.NewSystemHandler(rdb, pool, cfg.PHPBaseURL, log),
	}

	signInLimiter := middleware.NewRateLimiter(middleware.NewRedisRateCounter(rdb), cfg.SignInRate, cfg.SignInWindow, log)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, signInLimiter, cfg, log)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Run Server and Worker ─────────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var g errgroup.Group
	g.Go(func() error {
		worker.NewResultWorker(rdb, resultRepo, log).Start(workerCtx)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the result worker; it flushes its pending batch on the way out.
	workerCancel()
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
