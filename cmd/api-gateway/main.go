package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/BladexZN/dashboard-c/api/swagger"
	"github.com/BladexZN/dashboard-c/internal/handler"
	internalmiddleware "github.com/BladexZN/dashboard-c/internal/middleware"
	"github.com/BladexZN/dashboard-c/internal/repository"
	"github.com/BladexZN/dashboard-c/internal/service"
	"github.com/BladexZN/dashboard-c/pkg/cache"
	"github.com/BladexZN/dashboard-c/pkg/config"
	"github.com/BladexZN/dashboard-c/pkg/crosssystem"
	"github.com/BladexZN/dashboard-c/pkg/database"
	"github.com/BladexZN/dashboard-c/pkg/jobs"
	"github.com/BladexZN/dashboard-c/pkg/logger"
	corsmiddleware "github.com/BladexZN/dashboard-c/pkg/middleware/cors"
	reqidmiddleware "github.com/BladexZN/dashboard-c/pkg/middleware/requestid"
	"github.com/BladexZN/dashboard-c/pkg/storage"
)

// @title Design Dashboard API
// @version 1.0.0
// @description Production tracking for design requests: board, status changes, notifications and reports
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg.Env, cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, settings cache disabled", zap.Error(err))
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	requestRepo := repository.NewRequestRepository(db)
	eventRepo := repository.NewStatusEventRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheService := service.NewCacheService(cacheRepo, metrics, cfg.Settings.CacheTTL, logr, redisClient != nil)

	objects, err := storage.NewLocalStorage(cfg.Storage.Dir, cfg.Storage.PublicPrefix)
	if err != nil {
		logr.Fatal("failed to init attachment storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)

	settingsService := service.NewSettingsService(settingsRepo, cacheService, logr, service.SettingsServiceConfig{
		CacheTTL:                cfg.Settings.CacheTTL,
		DefaultNotifyProduction: cfg.Settings.DefaultNotifyProduction,
		DefaultNotifyAdvisor:    cfg.Settings.DefaultNotifyAdvisor,
	})

	dispatcher := service.NewNotificationDispatcher(service.NotificationDispatcherParams{
		Notifications: notificationRepo,
		Users:         userRepo,
		Settings:      settingsService,
		CrossSystem: crosssystem.NewClient(crosssystem.Config{
			URL:           cfg.Notifications.CrossSystemURL,
			Token:         cfg.Notifications.CrossSystemToken,
			Timeout:       cfg.Notifications.Timeout,
			RatePerSecond: cfg.Notifications.RatePerSecond,
			Burst:         cfg.Notifications.Burst,
		}, nil),
		Metrics:   metrics,
		Logger:    logr,
		OriginTag: cfg.Notifications.OriginTag,
	})
	crossQueue := jobs.NewQueue("cross-system", dispatcher.DeliverCrossSystem, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.Retries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
		OnGiveUp:   dispatcher.CrossSystemGaveUp,
	})
	crossQueue.Start(ctx)
	defer crossQueue.Stop()
	dispatcher.UseQueue(crossQueue)

	requestService := service.NewRequestService(service.RequestServiceParams{
		Requests:     requestRepo,
		Events:       eventRepo,
		Objects:      objects,
		Signer:       signer,
		Validator:    validate,
		Logger:       logr,
		MaxFileSize:  cfg.Storage.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Storage.AllowedMIMEs,
	})
	transitionService := service.NewTransitionService(service.TransitionServiceParams{
		Requests:   requestRepo,
		Events:     eventRepo,
		Dispatcher: dispatcher,
		Validator:  validate,
		Metrics:    metrics,
		Logger:     logr,
	})
	coordinators := service.NewRefreshCoordinators(service.RefreshCoordinatorParams{
		Requests:   requestRepo,
		Events:     eventRepo,
		Users:      userRepo,
		AuditLimit: cfg.Refresh.AuditLimit,
		IdleTTL:    cfg.Refresh.SessionIdleTTL,
		Metrics:    metrics,
		Logger:     logr,
	})
	reportService := service.NewReportService(service.ReportServiceParams{
		Requests: requestRepo,
		Events:   eventRepo,
		Users:    userRepo,
		Logger:   logr,
	})
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		CrossLoginSecret:  cfg.JWT.CrossLoginSecret,
	})

	userService := service.NewUserService(userRepo, validate, logr)
	userService.OnDeactivate(coordinators.Forget)

	sessions := handler.NewSessionLookup(coordinators)
	handlers := routeHandlers{
		auth:          handler.NewAuthHandler(authService),
		board:         handler.NewBoardHandler(sessions),
		requests:      handler.NewRequestHandler(requestService, transitionService, sessions),
		attachments:   handler.NewAttachmentHandler(requestService, objects, cfg.APIPrefix+"/attachments/download"),
		audit:         handler.NewAuditHandler(service.NewAuditService(eventRepo, logr)),
		notifications: handler.NewNotificationHandler(service.NewInboxService(notificationRepo, logr)),
		settings:      handler.NewSettingsHandler(settingsService),
		reports:       handler.NewReportHandler(reportService, cfg.Reports.Enabled),
		users:         handler.NewUserHandler(userService),
		archive: handler.NewArchiveHandler(service.NewArchiveService(requestRepo, logr, service.ArchiveServiceConfig{
			Retention: cfg.Archive.Retention,
		})),
		metrics: handler.NewMetricsHandler(metrics, map[string]handler.ReadinessCheck{
			"database": db.PingContext,
			"redis": func(ctx context.Context) error {
				if redisClient == nil {
					return errors.New("not connected")
				}
				return redisClient.Ping(ctx).Err()
			},
		}),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	registerRoutes(r, cfg.APIPrefix, handlers, authService)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
