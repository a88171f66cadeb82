package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"paper-submission-api/config"
	"paper-submission-api/controllers"
	"paper-submission-api/middleware"
	"paper-submission-api/models"
	"paper-submission-api/monitor"
	"paper-submission-api/routes"
	"paper-submission-api/services"
	"paper-submission-api/storage"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := config.InitLogger(settings)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := run(settings, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(settings *config.Settings, logger *zap.Logger) error {
	ctx := context.Background()

	repo, err := openRepository(settings, logger)
	if err != nil {
		return err
	}

	store, filesDir, err := openDocumentStore(ctx, settings)
	if err != nil {
		return err
	}
	logger.Info("document store ready", zap.String("backend", settings.StorageBackend))

	limiter, closeLimiter := openLimiter(ctx, settings, logger)
	defer closeLimiter()

	baseURL := strings.TrimRight(settings.AppBaseURL, "/")
	notifier := services.NewNotificationService(config.NewMailer(settings), repo, logger)

	var policy services.TransitionPolicy = services.PermissivePolicy{}
	if settings.StrictTransitions {
		policy = services.StrictPolicy{}
	}
	workflow := services.NewWorkflowService(repo, notifier, services.WorkflowOptions{
		Policy:       policy,
		DashboardURL: baseURL + "/dashboard",
		Logger:       logger.Named("workflow"),
	})
	intake := services.NewSubmissionService(repo, store, notifier, services.SubmissionOptions{
		MaxUploadBytes: settings.MaxUploadBytes(),
		AdminEmail:     settings.AdminNotifyEmail,
		DashboardURL:   baseURL + "/admin",
		Logger:         logger.Named("intake"),
	})
	reviewers := services.NewReviewerService(repo, notifier, baseURL+"/login", logger.Named("reviewers"))
	auth := services.NewAuthService(repo, logger.Named("auth"))

	gauge, err := monitor.StartGaugeRefresher(settings.MetricsRefreshCron, workflow.CountByBucket, logger.Named("metrics"))
	if err != nil {
		return err
	}
	defer gauge.Stop()

	if settings.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := routes.NewEngine(settings.TrustedProxyList())
	if err != nil {
		return err
	}
	router.MaxMultipartMemory = settings.MaxUploadBytes() + (1 << 20)
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})
	router.Use(middleware.CORSMiddleware(settings.AllowedOrigins()))

	routes.SetupRoutes(router, routes.Dependencies{
		Auth:        controllers.NewAuthController(auth, settings.JWTSecret, time.Duration(settings.JWTExpireHours)*time.Hour),
		Submissions: controllers.NewSubmissionController(intake, workflow, settings.MaxUploadBytes()),
		Admin:       controllers.NewAdminController(workflow, reviewers, notifier),
		Dashboard:   controllers.NewDashboardController(workflow),
		JWTSecret:   settings.JWTSecret,
		Resolve: func(ctx context.Context, p services.Principal) error {
			_, err := auth.Resolve(ctx, p)
			return err
		},
		Limiter:         limiter,
		LoginRateLimit:  settings.LoginRateLimit,
		LoginRateWindow: settings.LoginRateWindow,
		LogFile:         config.LogFilePath(settings),
		FilesDir:        filesDir,
	})

	srv := &http.Server{
		Addr:              ":" + settings.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("port", settings.ServerPort),
			zap.String("environment", settings.Environment),
			zap.String("db_driver", settings.DBDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openRepository(settings *config.Settings, logger *zap.Logger) (services.Repository, error) {
	if settings.DBDriver == "memory" {
		logger.Warn("using in-memory repository; data is lost on restart")
		return services.NewMemoryRepository(), nil
	}

	db, err := config.InitDB(settings, logger)
	if err != nil {
		return nil, err
	}
	if settings.DBAutoMigrate {
		if err := models.AutoMigrate(db); err != nil {
			return nil, err
		}
		logger.Info("database schema migrated")
	}
	return services.NewGormRepository(db), nil
}

// openDocumentStore returns the configured backend and, for the local
// backend, the directory to serve at /files.
func openDocumentStore(ctx context.Context, settings *config.Settings) (storage.DocumentStore, string, error) {
	switch settings.StorageBackend {
	case "s3":
		opts := storage.S3Options{
			Bucket:    settings.S3Bucket,
			Region:    settings.S3Region,
			Endpoint:  settings.S3Endpoint,
			AccessKey: settings.S3AccessKey,
			SecretKey: settings.S3SecretKey,
			PublicURL: settings.S3PublicURL,
		}
		client, err := storage.NewS3Client(ctx, opts)
		if err != nil {
			return nil, "", err
		}
		store, err := storage.NewS3Store(client, opts)
		return store, "", err
	case "local", "":
		store, err := storage.NewLocalStore(settings.UploadPath, settings.PublicBaseURL)
		if err != nil {
			return nil, "", err
		}
		return store, store.Root(), nil
	}
	return nil, "", errors.New("unsupported STORAGE_BACKEND " + settings.StorageBackend)
}

func openLimiter(ctx context.Context, settings *config.Settings, logger *zap.Logger) (middleware.Limiter, func()) {
	if settings.RedisURL == "" {
		return middleware.NewMemoryLimiter(), func() {}
	}
	opts, err := redis.ParseURL(settings.RedisURL)
	if err != nil {
		logger.Warn("invalid REDIS_URL, falling back to in-memory rate limiting", zap.Error(err))
		return middleware.NewMemoryLimiter(), func() {}
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, rate limiter will fail open", zap.Error(err))
	}
	return middleware.NewRedisLimiter(client), func() { _ = client.Close() }
}
