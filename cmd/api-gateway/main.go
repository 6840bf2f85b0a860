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
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/or-scheduler-api/api/swagger"
	"github.com/noah-isme/or-scheduler-api/internal/handler"
	internalmiddleware "github.com/noah-isme/or-scheduler-api/internal/middleware"
	"github.com/noah-isme/or-scheduler-api/internal/models"
	"github.com/noah-isme/or-scheduler-api/internal/predictor"
	"github.com/noah-isme/or-scheduler-api/internal/repository"
	"github.com/noah-isme/or-scheduler-api/internal/scheduler"
	"github.com/noah-isme/or-scheduler-api/internal/service"
	"github.com/noah-isme/or-scheduler-api/pkg/cache"
	"github.com/noah-isme/or-scheduler-api/pkg/config"
	"github.com/noah-isme/or-scheduler-api/pkg/database"
	"github.com/noah-isme/or-scheduler-api/pkg/jobs"
	"github.com/noah-isme/or-scheduler-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/or-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/or-scheduler-api/pkg/middleware/requestid"
)

// @title OR Scheduler API
// @version 1.0.0
// @description Weekly operating-room slot allocation with duration and delay-risk prediction
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defaults, err := scheduler.FromSettings(cfg.Scheduler)
	if err != nil {
		logr.Sugar().Fatalw("invalid operating-room configuration", "error", err)
	}

	metricsSvc := service.NewMetricsService()
	validate := validator.New()
	checks := map[string]handler.Pinger{}

	var predictionCache predictor.Cache
	if cfg.Predictor.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("prediction cache disabled, redis unreachable", "error", err)
		} else {
			defer client.Close() //nolint:errcheck
			cacheRepo := repository.NewCacheRepository(client, "or-scheduler", logr)
			cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Predictor.CacheTTL, logr, true)
			predictionCache = cacheSvc
			checks["cache"] = cacheSvc
		}
	}

	pred, err := predictor.New(cfg.Predictor, predictionCache, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init predictor", "error", err)
	}
	builder := scheduler.NewBuilder(pred, logr)

	svcCfg := service.SurgeryScheduleConfig{
		Defaults:  defaults,
		Timeout:   cfg.Scheduler.Timeout,
		ResultTTL: cfg.Scheduler.ResultTTL,
	}

	var (
		scheduleSvc *service.SurgeryScheduleService
		queue       *jobs.Queue
	)
	if cfg.Persistence.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect database", "error", err)
		}
		defer db.Close() //nolint:errcheck
		if err := database.EnsureSchema(ctx, db); err != nil {
			logr.Sugar().Fatalw("failed to prepare schema", "error", err)
		}
		checks["database"] = handler.PingFunc(db.PingContext)

		scheduleSvc, queue = persistentScheduleService(db, builder, metricsSvc, validate, logr, svcCfg, cfg.Persistence)
		queue.Start(context.Background())
	} else {
		scheduleSvc = service.NewSurgeryScheduleService(builder, nil, nil, nil, metricsSvc, validate, logr, svcCfg)
	}

	predictionSvc := service.NewPredictionService(pred, validate, defaults.Location, logr)
	importSvc := service.NewImportService(scheduleSvc, defaults.Location, logr)

	var tokens internalmiddleware.TokenValidator
	if cfg.JWT.AuthEnabled {
		tokenSvc, err := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer)
		if err != nil {
			logr.Sugar().Fatalw("failed to init token validation", "error", err)
		}
		tokens = tokenSvc
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	if tokens != nil {
		r.Use(internalmiddleware.OptionalJWT(tokens))
	}

	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	scheduleHandler := handler.NewSurgeryScheduleHandler(scheduleSvc, logr)
	predictionHandler := handler.NewPredictionHandler(predictionSvc)
	importHandler := handler.NewImportHandler(importSvc)
	writers := internalmiddleware.Guard(cfg.JWT.AuthEnabled, tokens, models.RoleScheduler, models.RoleAdmin)

	api := r.Group(cfg.APIPrefix)
	api.POST("/schedule", append(writers, scheduleHandler.Generate)...)
	api.GET("/schedules", scheduleHandler.List)
	api.GET("/schedules/:id", scheduleHandler.Get)
	api.GET("/schedules/:id/export", scheduleHandler.Export)
	api.POST("/predict", predictionHandler.Predict)
	api.POST("/batch-import", append(writers, importHandler.BatchImport)...)
	api.GET("/template", importHandler.Template)
	api.GET("/metrics/summary", metricsHandler.Summary)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "predictor", cfg.Predictor.Mode, "persistence", cfg.Persistence.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("server shutdown incomplete", zap.Error(err))
	}
	if queue != nil {
		queue.Stop()
	}
}

func persistentScheduleService(
	db *sqlx.DB,
	builder *scheduler.Builder,
	metrics *service.MetricsService,
	validate *validator.Validate,
	logr *zap.Logger,
	svcCfg service.SurgeryScheduleConfig,
	persist config.PersistenceConfig,
) (*service.SurgeryScheduleService, *jobs.Queue) {
	runRepo := repository.NewScheduleRunRepository(db)
	assignmentRepo := repository.NewScheduleAssignmentRepository(db)
	worker := service.NewScheduleRunWorker(runRepo, assignmentRepo, db, metrics, logr)

	queue := jobs.NewQueue("schedule-persist", worker.Handle, jobs.QueueConfig{
		Workers:      persist.Workers,
		MaxRetries:   persist.Retries,
		RetryDelay:   time.Second,
		DrainTimeout: shutdownTimeout,
		Logger:       logr,
		OnGiveUp:     worker.GiveUp,
	})
	svc := service.NewSurgeryScheduleService(builder, runRepo, assignmentRepo, queue, metrics, validate, logr, svcCfg)
	return svc, queue
}
