package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	billingapp "github.com/huuphu310/rooms-management-sub003/internal/application/billing"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/auth"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/cache"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/config"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/event"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/logger"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/persistence"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/scheduler"
	"github.com/huuphu310/rooms-management-sub003/internal/infrastructure/telemetry"
	"github.com/huuphu310/rooms-management-sub003/internal/interfaces/http/handler"
	"github.com/huuphu310/rooms-management-sub003/internal/interfaces/http/middleware"
	"github.com/huuphu310/rooms-management-sub003/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting PMS Billing Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize OpenTelemetry tracing and metrics. Both return no-op
	// providers when disabled, so downstream wiring is unconditional.
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Tracer provider shutdown failed", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Meter provider shutdown failed", zap.Error(err))
		}
	}()

	// OTLP log export. When enabled, the zap logger is rebuilt to tee every
	// entry to both stdout and the collector.
	logsProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := logsProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Logger provider shutdown failed", zap.Error(err))
		}
	}()
	log = telemetry.AttachOTELBridge(log, logsProvider, cfg.Telemetry.ServiceName, cfg.Log.Level)

	// Continuous profiling (Pyroscope). Started before span profiles so the
	// profiler is running when the tracer provider gets wrapped.
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.ProfilingServerAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		ProfileCPU:        true,
		ProfileAllocSpace: true,
		ProfileInuseSpace: true,
		ProfileGoroutines: true,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Warn("Profiler stop failed", zap.Error(err))
		}
	}()
	if profiler.IsEnabled() && tracerProvider.IsEnabled() {
		if err := tracerProvider.EnableSpanProfiles(); err != nil {
			log.Warn("Failed to enable span profiles", zap.Error(err))
		}
	}

	// Database query tracing (otelgorm)
	if cfg.Telemetry.DBTraceEnabled {
		dbTracingCfg := telemetry.DefaultDBTracingConfig()
		dbTracingCfg.Enabled = true
		if err := telemetry.NewDBTracingPlugin(dbTracingCfg, log).RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Database query and pool metrics
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DefaultDBMetricsConfig(), log)
	if err != nil {
		log.Warn("Failed to register database metrics", zap.Error(err))
	} else if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(context.Background())
		defer dbMetrics.Stop()
	}

	// Initialize repositories
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	depositRuleRepo := persistence.NewGormDepositRuleRepository(db.DB)
	scheduleRepo := persistence.NewGormScheduleRepository(db.DB)
	folioRepo := persistence.NewGormFolioRepository(db.DB)
	qrPaymentRepo := persistence.NewGormQRPaymentRepository(db.DB)
	bankTransactionRepo := persistence.NewGormBankTransactionRepository(db.DB)
	bookingReader := persistence.NewGormBookingReader(db.DB)
	propertyProvider := persistence.NewGormPropertyProvider(db.DB)

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Idempotency store for bank transaction deduplication.
	// Redis when available, in-memory otherwise.
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	idempotencyCfg := shared.IdempotencyConfig{
		TTL:     cfg.Billing.IdempotencyTTL,
		Enabled: true,
	}

	// Initialize application services
	invoiceService := billingapp.NewInvoiceService(invoiceRepo, depositRuleRepo, folioRepo, bookingReader, eventBus, log)
	paymentService := billingapp.NewPaymentService(paymentRepo, invoiceRepo, folioRepo, eventBus, log)
	scheduleService := billingapp.NewScheduleService(scheduleRepo, invoiceRepo, bookingReader, log)
	folioService := billingapp.NewFolioService(folioRepo, invoiceRepo, paymentRepo, scheduleRepo, bookingReader, log)
	depositRuleService := billingapp.NewDepositRuleService(depositRuleRepo, log)
	qrService := billingapp.NewQRReconciliationService(
		qrPaymentRepo, bankTransactionRepo, invoiceRepo,
		paymentService, idempotencyStore, idempotencyCfg, log,
	)

	// Business metrics: invoice/payment/reconciliation counters plus a
	// periodic sweep of open folio and QR request gauges
	if meterProvider.IsEnabled() {
		businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:           meterProvider.Meter(cfg.Telemetry.ServiceName),
			Logger:          log,
			BillingProvider: telemetry.NewGormBillingMetricsProvider(db.DB),
		})
		if err != nil {
			log.Warn("Failed to initialize business metrics", zap.Error(err))
		} else {
			businessMetrics.StartPeriodicCollection(context.Background(), telemetry.NewGormPropertyProvider(db.DB), 5*time.Minute)
			defer businessMetrics.Stop()
			invoiceService.SetBusinessMetrics(businessMetrics)
			paymentService.SetBusinessMetrics(businessMetrics)
			qrService.SetBusinessMetrics(businessMetrics)
		}
	}

	// Background jobs: periodic QR expiry sweep and daily overdue scan
	var (
		billingScheduler *scheduler.Scheduler
		billingTrigger   *scheduler.BillingTrigger
	)
	if cfg.Scheduler.Enabled {
		schedulerCfg := scheduler.DefaultSchedulerConfig()
		schedulerCfg.JobTimeout = cfg.Scheduler.JobTimeout

		executor := scheduler.NewBillingJobExecutor(qrService, invoiceRepo, scheduleRepo, log)
		billingScheduler = scheduler.NewScheduler(schedulerCfg, executor, log)
		if err := billingScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}

		triggerCfg := scheduler.DefaultBillingTriggerConfig()
		triggerCfg.QRSweepInterval = cfg.Scheduler.QRSweepInterval
		triggerCfg.OverdueScanHour = cfg.Scheduler.OverdueScanHour
		triggerCfg.OverdueScanMinute = cfg.Scheduler.OverdueScanMinute

		billingTrigger = scheduler.NewBillingTrigger(triggerCfg, billingScheduler, propertyProvider, log)
		if err := billingTrigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start billing trigger", zap.Error(err))
		}
	}

	// JWT service for API authentication
	jwtService := auth.NewJWTService(cfg.JWT)

	// Initialize HTTP handlers
	qrPaymentHandler := handler.NewQRPaymentHandler(qrService, cfg.Billing)
	billingHandlers := router.BillingHandlers{
		Invoice:     handler.NewInvoiceHandler(invoiceService),
		Payment:     handler.NewPaymentHandler(paymentService),
		Schedule:    handler.NewScheduleHandler(scheduleService),
		Folio:       handler.NewFolioHandler(folioService),
		QRPayment:   qrPaymentHandler,
		DepositRule: handler.NewDepositRuleHandler(depositRuleService),
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing - Propagate trace context
	// 5. HTTPMetrics - Record request metrics
	// 6. Security - Add security headers
	// 7. CORS - Handle cross-origin requests
	// 8. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		ServiceName:   cfg.Telemetry.ServiceName,
		Enabled:       meterProvider.IsEnabled(),
	}))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Bank webhook endpoint (no authentication; verified by signature).
	// Rate limited independently since the bank gateway retries aggressively.
	webhookLimiter := middleware.NewRateLimiter(120, time.Minute)
	webhooks := engine.Group("/api/v1/webhooks")
	webhooks.Use(middleware.RateLimit(webhookLimiter))
	webhooks.POST("/bank-transactions", qrPaymentHandler.HandleBankTransaction)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	// Configure skip paths for public endpoints
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		SkipPathPrefixes: []string{
			"/api/v1/webhooks",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Property scoping: every billing route operates within one property
	propertyCfg := middleware.DefaultPropertyConfig()
	propertyCfg.SkipPaths = append(propertyCfg.SkipPaths,
		"/api/v1/ping",
		"/api/v1/system/ping",
		"/api/v1/system/info",
	)
	propertyCfg.Logger = log
	r.Use(middleware.PropertyMiddlewareWithConfig(propertyCfg))

	// Profiling labels go after auth so property_id is available
	if profiler.IsEnabled() {
		r.Use(middleware.ProfilingAttributeInjector())
	}

	// Register domain route groups
	r.Register(router.BillingRoutes(billingHandlers)).
		Register(router.SystemRoutes(handler.NewSystemHandler())).
		Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	// Stop background work after the HTTP surface is drained
	if billingTrigger != nil {
		if err := billingTrigger.Stop(ctx); err != nil {
			log.Warn("Billing trigger shutdown failed", zap.Error(err))
		}
	}
	if billingScheduler != nil {
		if err := billingScheduler.Stop(ctx); err != nil {
			log.Warn("Scheduler shutdown failed", zap.Error(err))
		}
	}
	if err := eventBus.Stop(ctx); err != nil {
		log.Warn("Event bus shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
