package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-academic-api/api/swagger"
	"github.com/noah-isme/sma-academic-api/internal/grading"
	"github.com/noah-isme/sma-academic-api/internal/handler"
	"github.com/noah-isme/sma-academic-api/internal/middleware"
	"github.com/noah-isme/sma-academic-api/internal/repository"
	"github.com/noah-isme/sma-academic-api/internal/service"
	"github.com/noah-isme/sma-academic-api/pkg/cache"
	"github.com/noah-isme/sma-academic-api/pkg/config"
	"github.com/noah-isme/sma-academic-api/pkg/database"
	"github.com/noah-isme/sma-academic-api/pkg/logger"
	reqidmiddleware "github.com/noah-isme/sma-academic-api/pkg/middleware/requestid"
)

// @title SMA Academic API
// @version 1.0.0
// @description Weighted grading and weekly timetable service for senior high school administration.
// @BasePath /api/v1
// @schemes http

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

	policy, err := grading.ParseMissingGradePolicy(cfg.Grading.MissingGradePolicy)
	if err != nil {
		logr.Fatal("invalid grading configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Stats.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, statistics cache disabled", zap.Error(err))
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	validate := validator.New()
	courses := repository.NewCourseRepository(db)
	rubricItems := repository.NewRubricItemRepository(db)
	timeSlots := repository.NewTimeSlotRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled && redisClient != nil)
	rubricSvc := service.NewRubricService(rubricItems, courses, cacheSvc, metricsSvc, validate, logr)
	gradeSvc := service.NewGradeService(
		repository.NewGradeEntryRepository(db),
		repository.NewEnrollmentRepository(db),
		rubricItems,
		courses,
		cacheSvc,
		metricsSvc,
		service.GradingOptions{PassThreshold: cfg.Grading.PassThreshold, Policy: policy},
		validate,
		logr,
	)
	if cacheSvc.Enabled() && cfg.Stats.WarmOnWrite {
		warmer := service.NewStatsWarmer(gradeSvc, logr)
		warmer.Start(ctx)
		defer warmer.Stop()
		cacheSvc.OnInvalidate(warmer.Warm)
	}
	reportSvc := service.NewReportService(gradeSvc, courses, metricsSvc, logr)
	scheduleSvc := service.NewScheduleService(timeSlots, cfg.Schedule.ConflictPolicy, metricsSvc, validate, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(cors.New(corsConfig(cfg.CORS.AllowedOrigins)))
	r.Use(middleware.Metrics(metricsSvc))

	registerRoutes(r, cfg, routeHandlers{
		rubric:   handler.NewRubricHandler(rubricSvc),
		grades:   handler.NewGradeHandler(gradeSvc),
		reports:  handler.NewReportHandler(reportSvc),
		schedule: handler.NewScheduleHandler(scheduleSvc),
		metrics:  handler.NewMetricsHandler(metricsSvc, db),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("missing_grade_policy", policy.String()),
			zap.String("conflict_policy", cfg.Schedule.ConflictPolicy))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", reqidmiddleware.HeaderKey},
		ExposeHeaders: []string{reqidmiddleware.HeaderKey, "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
