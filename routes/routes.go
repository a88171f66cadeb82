package routes

import (
	"fmt"
	"net/http"
	"time"

	"paper-submission-api/controllers"
	"paper-submission-api/middleware"
	"paper-submission-api/models"
	"paper-submission-api/monitor"

	"github.com/gin-gonic/gin"
)

// Dependencies carries everything SetupRoutes mounts.
type Dependencies struct {
	Auth        *controllers.AuthController
	Submissions *controllers.SubmissionController
	Admin       *controllers.AdminController
	Dashboard   *controllers.DashboardController

	JWTSecret string
	Resolve   middleware.PrincipalResolver

	Limiter         middleware.Limiter
	LoginRateLimit  int
	LoginRateWindow time.Duration

	// LogFile is served to admins at /api/v1/admin/logs.
	LogFile string
	// FilesDir is served at /files when documents are stored locally.
	FilesDir string
}

// NewEngine returns a bare engine that only reads X-Forwarded-For and
// X-Real-IP from the listed proxies. With none listed, ClientIP is the TCP
// peer, which keeps per-IP rate limits from being chosen by the caller.
func NewEngine(trustedProxies []string) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	return router, nil
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	monitor.RegisterMetrics(router)

	if deps.FilesDir != "" {
		router.Static("/files", deps.FilesDir)
	}

	loginLimit := middleware.RateLimit(deps.Limiter, "login", deps.LoginRateLimit, deps.LoginRateWindow)
	submitLimit := middleware.RateLimit(deps.Limiter, "submit", deps.LoginRateLimit, deps.LoginRateWindow)

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.POST("/login", loginLimit, deps.Auth.Login)

			public.POST("/submissions", submitLimit, deps.Submissions.CreateSubmission)
			public.POST("/submissions/base64", submitLimit, deps.Submissions.CreateSubmissionBase64)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{
					"status":  "ok",
					"message": "Paper Submission API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTSecret, deps.Resolve))
		{
			protected.GET("/profile", deps.Auth.GetProfile)

			// Admins see everything, reviewers only what is assigned to them
			submissions := protected.Group("/submissions")
			{
				submissions.GET("", deps.Submissions.ListSubmissions)
				submissions.GET("/:id", deps.Submissions.GetSubmission)
				submissions.GET("/:id/history", deps.Submissions.GetSubmissionHistory)
				submissions.PUT("/:id/status", deps.Submissions.UpdateSubmissionStatus)
			}

			protected.GET("/dashboard/stats", deps.Dashboard.GetDashboardStats)

			admin := protected.Group("/admin")
			admin.Use(middleware.RequireRole(models.RoleSuperAdmin))
			{
				admin.POST("/submissions/:id/assign", deps.Admin.AssignReviewer)

				reviewers := admin.Group("/reviewers")
				{
					reviewers.GET("", deps.Admin.ListReviewers)
					reviewers.GET("/assignable", deps.Admin.ListAssignableReviewers)
					reviewers.POST("", deps.Admin.CreateReviewer)
					reviewers.PUT("/:id", deps.Admin.UpdateReviewer)
					reviewers.POST("/:id/toggle-active", deps.Admin.ToggleReviewerActive)
				}

				admin.GET("/notifications", deps.Admin.ListNotifications)
				if deps.LogFile != "" {
					admin.GET("/logs", monitor.LogsHandler(deps.LogFile))
				}
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})
}
