package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neuronek/backend/internal/infrastructure/cache"
	"github.com/neuronek/backend/internal/infrastructure/config"
	"github.com/neuronek/backend/internal/infrastructure/logger"
	"github.com/neuronek/backend/internal/infrastructure/persistence"
	"github.com/neuronek/backend/internal/infrastructure/persistence/models"
	"github.com/neuronek/backend/internal/infrastructure/persistence/ownership"
	"github.com/neuronek/backend/internal/infrastructure/scheduler"
	"github.com/neuronek/backend/internal/infrastructure/telemetry"
	"github.com/neuronek/backend/internal/interfaces/http/handler"
	"github.com/neuronek/backend/internal/interfaces/http/middleware"
	"github.com/neuronek/backend/internal/interfaces/http/router"
	"go.uber.org/zap"

	_ "github.com/neuronek/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Neuronek API
//	@version		1.0
//	@description	Substance knowledge base, dosage classification and personal ingestion journal.

//	@contact.name	API Support
//	@contact.url	https://github.com/neuronek/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

const (
	shutdownTimeout = 30 * time.Second
	maxLoggedSQL    = 2048
)

// probeSkipPaths are not traced, profiled or counted
var probeSkipPaths = []string{"/health", "/health/ready", "/metrics"}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	base, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, base)
	if err != nil {
		base.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log := providers.Logs.Bridge(base)
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Neuronek backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := openDatabase(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := telemetry.InstrumentDB(db.DB, telemetry.DBConfig{
		TraceEnabled:       cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:         cfg.Telemetry.DBLogFullSQL,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:           dbSystem(db),
	}, providers.Meter.Meter("neuronek/db"), log); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}

	stores, err := cache.NewStores(ctx, cfg.Redis, cache.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to initialize cache", zap.Error(err))
	}
	defer stores.Close()

	metrics := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{RuntimeCollectors: true})
	ev := newEvents(cfg, db, metrics, log)

	svc, err := newServices(ctx, cfg, db, stores, ev, metrics, log)
	if err != nil {
		log.Fatal("Failed to initialize services", zap.Error(err))
	}
	if err := ev.start(ctx); err != nil {
		log.Fatal("Failed to start event pipeline", zap.Error(err))
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(cfg.Scheduler, log, metrics)
		if err := scheduler.RegisterJobs(sched, cfg.Scheduler.Jobs, svc.jobs(ev)); err != nil {
			log.Fatal("Failed to register scheduled jobs", zap.Error(err))
		}
		sched.Start()
	}

	engine, limiters := newEngine(cfg, db, stores, svc, providers, metrics, log)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	for _, l := range limiters {
		l.Stop()
	}
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Warn("Scheduler stop failed", zap.Error(err))
		}
	}
	ev.stop(shutdownCtx, log)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func openDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	opts := []logger.GormLoggerOption{
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithIgnoreRecordNotFoundError(true),
	}
	if !cfg.Telemetry.DBLogFullSQL {
		opts = append(opts, logger.WithMaxSQLLength(maxLoggedSQL))
	}
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), opts...)

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}
	// postgres schemas are owned by cmd/migrate; sqlite is created in place
	if cfg.Database.IsSQLite() {
		if err := db.DB.AutoMigrate(models.All()...); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := ownership.Enable(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func dbSystem(db *persistence.Database) string {
	if db.Dialect() == "postgres" {
		return "postgresql"
	}
	return db.Dialect()
}

// newEngine assembles the gin engine with the global middleware stack, the
// unversioned operational routes and the /api/v1 groups. The returned rate
// limiters must be stopped on shutdown.
func newEngine(
	cfg *config.Config,
	db *persistence.Database,
	stores *cache.Stores,
	svc *services,
	providers *telemetry.Providers,
	metrics *telemetry.BusinessMetrics,
	log *zap.Logger,
) (*gin.Engine, []*middleware.RateLimiter) {
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies, trusting none", zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     providers.Tracer.IsEnabled(),
		SkipPaths:   probeSkipPaths,
	}))
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: providers.Meter,
		Enabled:       providers.Meter.IsEnabled(),
		Logger:        log,
	}))
	engine.Use(middleware.SecureWithConfig(middleware.SecurityConfigFor(cfg.App)))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFromHTTP(cfg.HTTP)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	var limiters []*middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		limiters = append(limiters, limiter)
		engine.Use(middleware.RateLimit(limiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	jwtCfg := middleware.DefaultJWTConfig(svc.jwt)
	jwtCfg.TokenBlacklist = svc.blacklist
	jwtCfg.Logger = log
	jwtAuth := middleware.JWTAuthMiddlewareWithConfig(jwtCfg)

	checks := map[string]handler.HealthCheck{"database": db.Ping}
	if stores.Distributed() {
		checks["redis"] = func(ctx context.Context) error {
			return stores.Client.Ping(ctx).Err()
		}
	}
	system := handler.NewSystemHandler(telemetry.ServiceVersion, checks)

	root := router.RootRoutes{System: system, Metrics: metrics.Handler()}
	if cfg.Swagger.Enabled {
		root.Docs = ginSwagger.WrapHandler(swaggerFiles.Handler)
		root.DocsMW = middleware.SwaggerProtection(cfg.Swagger, jwtAuth)
	}
	root.RegisterRoutes(&engine.RouterGroup)

	guards := router.Guards{
		Permission: middleware.PermissionConfig{Logger: log},
		Idempotency: middleware.Idempotency(middleware.IdempotencyConfig{
			Store:  stores.Idempotency,
			Logger: log,
		}),
	}
	if cfg.HTTP.AuthRateLimitEnabled {
		guards.AuthLimiter = middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		limiters = append(limiters, guards.AuthLimiter)
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(
		jwtAuth,
		middleware.TracingAttributeInjector(),
		middleware.ProfilingWithConfig(middleware.ProfilingConfig{
			Enabled:   providers.Profiler.IsEnabled(),
			SkipPaths: probeSkipPaths,
		}),
	)
	for _, group := range router.APIGroups(svc.handlers(system), guards) {
		r.Register(group)
	}
	r.Setup()

	return engine, limiters
}
