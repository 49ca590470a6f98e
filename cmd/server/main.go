package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	accountingapp "github.com/accountsync/backend/internal/application/accounting"
	bridgeapp "github.com/accountsync/backend/internal/application/bridge"
	"github.com/accountsync/backend/internal/infrastructure/auth"
	"github.com/accountsync/backend/internal/infrastructure/config"
	"github.com/accountsync/backend/internal/infrastructure/event"
	"github.com/accountsync/backend/internal/infrastructure/logger"
	"github.com/accountsync/backend/internal/infrastructure/persistence"
	"github.com/accountsync/backend/internal/infrastructure/scheduler"
	"github.com/accountsync/backend/internal/infrastructure/storage"
	"github.com/accountsync/backend/internal/infrastructure/telemetry"
	"github.com/accountsync/backend/internal/interfaces/http/handler"
	"github.com/accountsync/backend/internal/interfaces/http/middleware"
	"github.com/accountsync/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//	@title			Accounting-Engine Sync Bridge API
//	@version		1.0
//	@description	Cloud-side bridge that queues accounting vouchers for desktop engine agents.

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

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

	log.Info("Starting sync bridge server",
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

	// Initialize telemetry (tracing + metrics)
	rootCtx := context.Background()

	tracerProvider, err := telemetry.NewTracerProvider(rootCtx, telemetry.Config{
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
		if err := tracerProvider.Shutdown(rootCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(rootCtx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(rootCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Database instrumentation
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:          cfg.Telemetry.Enabled,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true,
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}
	if _, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DefaultDBMetricsConfig(), log); err != nil {
		log.Warn("Failed to register database metrics", zap.Error(err))
	}

	// Initialize repositories
	connectorRepo := persistence.NewGormConnectorRepository(db.DB)
	operationRepo := persistence.NewGormOperationRepository(db.DB)
	masterRepo := persistence.NewGormMasterRepository(db.DB)
	voucherRepo := persistence.NewGormVoucherRepository(db.DB)
	ledgerRepo := persistence.NewGormLedgerRepository(db.DB)

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(rootCtx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Bridge metrics: enqueue/complete counters plus a periodic queue depth gauge
	bridgeMetrics, err := telemetry.NewBridgeMetrics(telemetry.BridgeMetricsConfig{
		Meter:              meterProvider.Meter("bridge"),
		Logger:             log,
		QueueDepthProvider: operationRepo,
	})
	if err != nil {
		log.Fatal("Failed to initialize bridge metrics", zap.Error(err))
	}
	bridgeMetrics.StartPeriodicCollection(rootCtx, time.Minute)
	defer bridgeMetrics.Stop()

	// Initialize application services
	connectorService := bridgeapp.NewConnectorService(connectorRepo, operationRepo, eventBus, cfg.Bridge, log)
	connectorService.SetBridgeMetrics(bridgeMetrics)

	queueService := bridgeapp.NewQueueService(operationRepo, connectorRepo, voucherRepo, cfg.Bridge, log)
	queueService.SetBridgeMetrics(bridgeMetrics)

	voucherService := accountingapp.NewVoucherService(voucherRepo, ledgerRepo, log)

	engineClient := bridgeapp.NewDirectEngineClient(cfg.Bridge.DirectPushTimeout, log)
	pushService := bridgeapp.NewPushService(connectorService, queueService, voucherRepo, engineClient, cfg.Bridge, log)
	pushService.SetBridgeMetrics(bridgeMetrics)

	prober := bridgeapp.NewTallyProber(cfg.Bridge.EngineProbeTimeout, log)
	probeService := bridgeapp.NewProbeService(connectorService, masterRepo, ledgerRepo, prober, cfg.Bridge, log)

	healthService := bridgeapp.NewHealthService(connectorRepo, operationRepo, eventBus, cfg.Bridge, log)

	// Subscribe event handlers
	connectorAlertHandler := bridgeapp.NewConnectorAlertHandler(log)
	eventBus.Subscribe(connectorAlertHandler)

	// Artifact store for the archive-before-purge retention flow
	var artifactStore bridgeapp.ArtifactStore
	if cfg.Archive.Enabled {
		s3Store, err := storage.NewS3ArtifactStore(&cfg.Archive, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize archive store", zap.Error(err))
		}
		if err := s3Store.EnsureBucket(rootCtx); err != nil {
			log.Fatal("Failed to ensure archive bucket", zap.Error(err))
		}
		artifactStore = s3Store
		log.Info("Archive store ready", zap.String("bucket", s3Store.GetBucket()))
	} else {
		artifactStore = storage.NewMemoryArtifactStore()
		log.Warn("Archive disabled, expired operations are archived in memory only")
	}
	maintenanceService := bridgeapp.NewMaintenanceService(operationRepo, artifactStore, cfg.Bridge, log)

	// Background sweeps: stale operations, silent connectors, alerting
	sweeper := scheduler.NewSweeper(scheduler.DefaultSweeperConfig(), log)
	mustRegister := func(name string, run scheduler.TaskFunc) {
		if err := sweeper.Register(name, cfg.Bridge.SweepInterval, run); err != nil {
			log.Fatal("Failed to register sweep task", zap.String("task", name), zap.Error(err))
		}
	}
	mustRegister("stale_operations", func(ctx context.Context) error {
		_, err := queueService.SweepStale(ctx)
		return err
	})
	mustRegister("disconnected_connectors", func(ctx context.Context) error {
		_, err := healthService.SweepDisconnected(ctx)
		return err
	})
	mustRegister("silent_connector_alerts", func(ctx context.Context) error {
		_, err := healthService.SweepAlerts(ctx)
		return err
	})
	if err := sweeper.Start(rootCtx); err != nil {
		log.Fatal("Failed to start sweeper", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sweeper.Stop(stopCtx); err != nil {
			log.Error("Error stopping sweeper", zap.Error(err))
		}
	}()

	// Daily retention run
	purgeTrigger := scheduler.NewDailyTrigger(scheduler.DefaultDailyTriggerConfig(), "purge_expired_operations",
		func(ctx context.Context) error {
			_, err := maintenanceService.PurgeExpired(ctx)
			return err
		}, log)
	if err := purgeTrigger.Start(rootCtx); err != nil {
		log.Fatal("Failed to start purge trigger", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := purgeTrigger.Stop(stopCtx); err != nil {
			log.Error("Error stopping purge trigger", zap.Error(err))
		}
	}()

	// JWT auth for cloud-facing routes
	jwtService := auth.NewJWTService(cfg.JWT)
	var tokenBlacklist auth.TokenBlacklist
	redisBlacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, using in-memory token blacklist", zap.Error(err))
		tokenBlacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		tokenBlacklist = redisBlacklist
	}

	// Initialize HTTP handlers
	connectorHandler := handler.NewConnectorHandler(connectorService, queueService)
	gatewayHandler := handler.NewGatewayHandler(connectorService, queueService)
	voucherHandler := handler.NewVoucherHandler(voucherService, pushService)
	directHandler := handler.NewDirectHandler(probeService)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack in order: request id, panic recovery, request
	// logging, security headers, tracing/metrics, CORS, body limit,
	// rate limiting.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing())
		engine.Use(middleware.SpanErrorMarker())
		engine.Use(middleware.HTTPMetricsWithMeter(meterProvider.Meter("http.server"), true))
	}

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// JWT on cloud-facing routes; agent routes authenticate with the
	// api_key in the request body instead.
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: tokenBlacklist,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		SkipPathPrefixes: []string{
			"/api/v1/agent",
		},
		Logger: log,
	}
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Agent-facing gateway (api_key body credential)
	agentRoutes := router.NewDomainGroup("agent", "/agent")
	agentRoutes.POST("/heartbeat", gatewayHandler.Heartbeat)
	agentRoutes.POST("/operations/pending", gatewayHandler.PendingOperations)
	agentRoutes.POST("/operations/result", gatewayHandler.ReportResult)

	// Bridge management (connectors, queue, push, direct probe)
	bridgeRoutes := router.NewDomainGroup("bridge", "/bridge")
	bridgeRoutes.POST("/connectors", connectorHandler.Register)
	bridgeRoutes.GET("/connectors", connectorHandler.List)
	bridgeRoutes.GET("/connectors/:id", connectorHandler.Get)
	bridgeRoutes.DELETE("/connectors/:id", connectorHandler.Delete)
	bridgeRoutes.POST("/connectors/:id/regenerate-key", connectorHandler.RegenerateKey)
	bridgeRoutes.GET("/connectors/:id/operations", connectorHandler.ListOperations)
	bridgeRoutes.POST("/operations/:id/cancel", connectorHandler.CancelOperation)
	bridgeRoutes.POST("/push", voucherHandler.Push)
	bridgeRoutes.GET("/engine/status", directHandler.Status)
	bridgeRoutes.GET("/engine/companies", directHandler.Companies)
	bridgeRoutes.GET("/engine/ledgers", directHandler.Ledgers)
	bridgeRoutes.GET("/engine/voucher-types", directHandler.VoucherTypes)
	bridgeRoutes.POST("/engine/sync-ledgers", directHandler.SyncLedgers)

	// Accounting (cloud-side vouchers and ledgers)
	accountingRoutes := router.NewDomainGroup("accounting", "/accounting")
	accountingRoutes.POST("/vouchers", voucherHandler.Create)
	accountingRoutes.GET("/vouchers", voucherHandler.List)
	accountingRoutes.GET("/vouchers/:id", voucherHandler.Get)
	accountingRoutes.GET("/vouchers/:id/preview-xml", voucherHandler.PreviewXML)
	accountingRoutes.GET("/ledgers", voucherHandler.Ledgers)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	r.Register(agentRoutes).
		Register(bridgeRoutes).
		Register(accountingRoutes).
		Register(systemRoutes)

	r.Setup()

	// Simple ping at root API level for basic health checks
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
