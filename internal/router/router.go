package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/korenlms/portal/internal/config"
	"github.com/korenlms/portal/internal/handler"
	"github.com/korenlms/portal/internal/middleware"
	"github.com/korenlms/portal/internal/response"
	"github.com/korenlms/portal/internal/service"
	"github.com/rs/zerolog"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Question  *handler.QuestionHandler
	Exam      *handler.ExamHandler
	Student   *handler.StudentHandler
	Attempt   *handler.AttemptHandler
	Result    *handler.ResultHandler
	Media     *handler.MediaHandler
	Dashboard *handler.DashboardHandler
	WS        *handler.WSHandler
	System    *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	signInLimiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// The session cookie only travels with credentialed requests, which
	// rule out the wildcard origin.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())

	// Local media backend only; MinIO serves its own objects.
	if cfg.MediaBackend != "minio" {
		uploadsGroup := router.Group("/uploads")
		uploadsGroup.Use(middleware.CacheControl(31536000))
		{
			uploadsGroup.Static("/", cfg.UploadDir)
		}
	}

	router.GET("/health", handlers.System.Health)

	requireSession := middleware.RequireSession(authService)
	requireAdmin := middleware.RequireAdmin(authService, log)

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.NoStore())
	{
		auth.POST("/signup", handlers.Auth.SignUp)
		auth.POST("/signin", signInLimiter.Middleware(), handlers.Auth.SignIn)

		auth.POST("/logout", requireSession, handlers.Auth.Logout)
		auth.GET("/session", requireSession, handlers.Auth.Session)
		auth.GET("/profile", requireSession, handlers.Auth.GetProfile)
		auth.PUT("/profile", requireSession, handlers.Auth.UpdateProfile)
	}

	// ─── 2. Student Group (any signed-in user) ─────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(requireSession, middleware.NoStore())
	{
		attempts := studentAPI.Group("/attempts")
		{
			attempts.POST("", handlers.Attempt.StartAttempt)
			attempts.GET("/:id", handlers.Attempt.GetAttempt)
			attempts.PUT("/:id/answers", handlers.Attempt.SelectAnswer)
			attempts.POST("/:id/next", handlers.Attempt.Next)
			attempts.POST("/:id/previous", handlers.Attempt.Previous)
			attempts.POST("/:id/jump", handlers.Attempt.Jump)
			attempts.POST("/:id/submit", handlers.Attempt.Submit)
			attempts.GET("/:id/export", handlers.Attempt.Export)
		}

		studentAPI.GET("/results", handlers.Result.ListMyResults)
	}

	// ─── 3. WebSocket Group ────────────────────────────────────────────
	// Browsers cannot set headers on upgrades; the cookie or ?token= is used.
	ws := router.Group("/ws/v1")
	ws.Use(requireSession)
	{
		ws.GET("/student/attempts/:id/stream", handlers.WS.AttemptStream)
		ws.GET("/admin/students/search", requireAdmin, handlers.WS.StudentSearchStream)
	}

	// ─── 4. Admin Group (session + server-confirmed role) ──────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(requireSession, requireAdmin, middleware.NoStore())
	{
		adminAPI.GET("/dashboard", handlers.Dashboard.GetDashboardData)
		adminAPI.GET("/system/status", handlers.System.Status)
		adminAPI.POST("/media/upload", handlers.Media.UploadMedia)
		adminAPI.GET("/results", handlers.Result.ListAllResults)

		questions := adminAPI.Group("/questions")
		{
			questions.GET("", handlers.Question.ListQuestions)
			questions.POST("", handlers.Question.CreateQuestion)
			questions.GET("/:id", handlers.Question.GetQuestion)
			questions.PUT("/:id", handlers.Question.UpdateQuestion)
			questions.DELETE("/:id", handlers.Question.DeleteQuestion)
			questions.PATCH("/:id/correct-answers", handlers.Question.ToggleCorrectAnswer)
		}

		exams := adminAPI.Group("/exams")
		{
			exams.GET("", handlers.Exam.ListExams)
			exams.GET("/eligible-questions", handlers.Exam.ListEligibleQuestions)
			exams.POST("", handlers.Exam.CreateExam)
			exams.PUT("/:id", handlers.Exam.UpdateExam)
			exams.DELETE("/:id", handlers.Exam.DeleteExam)
		}

		drafts := adminAPI.Group("/exam-drafts")
		{
			drafts.POST("", handlers.Exam.CreateDraft)
			drafts.GET("/:id", handlers.Exam.GetDraft)
			drafts.PATCH("/:id", handlers.Exam.PatchDraft)
			drafts.POST("/:id/toggle", handlers.Exam.ToggleDraftQuestion)
			drafts.POST("/:id/submit", handlers.Exam.SubmitDraft)
			drafts.DELETE("/:id", handlers.Exam.DiscardDraft)
		}

		students := adminAPI.Group("/students")
		{
			students.GET("", handlers.Student.ListStudents)
			students.POST("", handlers.Student.CreateStudent)
			students.PUT("/:id", handlers.Student.UpdateStudent)
			students.DELETE("/:id", handlers.Student.DeleteStudent)
		}
	}

	return router
}
