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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-dispatch/api/swagger"
	"github.com/noah-isme/sma-dispatch/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-dispatch/internal/middleware"
	"github.com/noah-isme/sma-dispatch/internal/pricing"
	"github.com/noah-isme/sma-dispatch/internal/repository"
	"github.com/noah-isme/sma-dispatch/internal/service"
	"github.com/noah-isme/sma-dispatch/pkg/cache"
	"github.com/noah-isme/sma-dispatch/pkg/config"
	"github.com/noah-isme/sma-dispatch/pkg/database"
	"github.com/noah-isme/sma-dispatch/pkg/jobs"
	"github.com/noah-isme/sma-dispatch/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-dispatch/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-dispatch/pkg/middleware/requestid"
)

// @title SMA Dispatch API
// @version 0.1.0
// @description Instructor matching, quoting and payout automation
// @BasePath /api/v1
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		// The cache is optional; pricing reads fall through to postgres.
		logr.Warn("redis unavailable, continuing without cache", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient), metrics, cfg.Pricing.RatesCacheTTL, logr, redisClient != nil)

	queue := jobs.NewQueue("notifications", jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	notifier := service.NewQueuedNotifier(queue, service.NewLogSink(logr.Named("notify")))
	queue.Start(context.Background())

	router := newRouter(cfg, logr, db, redisClient, metrics, cacheSvc, notifier)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
	}
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down", zap.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	// Requests are drained, so no stage can enqueue after this point.
	queue.Stop()
	logr.Info("server stopped")
}

func newRouter(
	cfg *config.Config,
	logr *zap.Logger,
	db *sqlx.DB,
	redisClient *redis.Client,
	metrics *service.MetricsService,
	cacheSvc *service.CacheService,
	notifier service.Notifier,
) *gin.Engine {
	jobRepo := repository.NewJobRepository(db)
	siteRepo := repository.NewSiteRepository(db)
	programRepo := repository.NewProgramRepository(db)
	workerRepo := repository.NewWorkerRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	quoteRepo := repository.NewQuoteRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	rateRepo := repository.NewRateSettingRepository(db)

	rates := service.NewRateTableService(rateRepo, cacheSvc, metrics, logr.Named("rates"), cfg.Pricing.RatesCacheTTL)
	matcher := service.NewInstructorMatcher(jobRepo, siteRepo, programRepo, workerRepo, assignmentRepo, rates, db, notifier,
		metrics, logr.Named("matcher"), service.MatcherConfig{})
	quotes := service.NewQuoteService(jobRepo, siteRepo, programRepo, quoteRepo, rates, db, notifier, logr.Named("quotes"),
		service.QuoteConfig{
			BaseLocation: pricing.Point{Lat: cfg.Pricing.BaseLatitude, Lng: cfg.Pricing.BaseLongitude},
			Validity:     cfg.Pricing.QuoteValidity,
		})
	payments := service.NewPaymentService(assignmentRepo, jobRepo, siteRepo, workerRepo, paymentRepo, rates, db, notifier, logr.Named("payments"))
	automation := service.NewAutomationService(quotes, matcher, payments, metrics, logr.Named("automation"))

	validate := validator.New()
	jobHandler := handler.NewJobHandler(matcher, quotes, automation, validate)
	assignmentHandler := handler.NewAssignmentHandler(payments, automation, validate)
	rateHandler := handler.NewRateHandler(rates, validate)

	checks := map[string]handler.HealthCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	metricsHandler := handler.NewMetricsHandler(metrics, checks)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics, "/metrics"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	jobsGroup := api.Group("/jobs/:id")
	jobsGroup.GET("/matches", jobHandler.Matches)
	jobsGroup.POST("/assign", jobHandler.Assign)
	jobsGroup.POST("/quote/preview", jobHandler.PreviewQuote)
	jobsGroup.GET("/quote", jobHandler.GetQuote)
	jobsGroup.POST("/quote", jobHandler.CreateQuote)
	jobsGroup.POST("/process", jobHandler.Process)

	assignments := api.Group("/assignments/:id")
	assignments.POST("/payment/preview", assignmentHandler.PreviewPayment)
	assignments.POST("/payment", assignmentHandler.CreatePayment)

	ratesGroup := api.Group("/rates")
	ratesGroup.GET("", rateHandler.Current)
	ratesGroup.PUT("", rateHandler.Update)
	ratesGroup.POST("/reload", rateHandler.Reload)

	return r
}
