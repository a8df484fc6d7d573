package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/wholesale/orderflow/docs"
	orderingapp "github.com/wholesale/orderflow/internal/application/ordering"
	"github.com/wholesale/orderflow/internal/domain/shared"
	"github.com/wholesale/orderflow/internal/infrastructure/auth"
	"github.com/wholesale/orderflow/internal/infrastructure/cache"
	"github.com/wholesale/orderflow/internal/infrastructure/config"
	"github.com/wholesale/orderflow/internal/infrastructure/event"
	"github.com/wholesale/orderflow/internal/infrastructure/logger"
	"github.com/wholesale/orderflow/internal/infrastructure/persistence"
	"github.com/wholesale/orderflow/internal/infrastructure/storage"
	"github.com/wholesale/orderflow/internal/infrastructure/telemetry"
	"github.com/wholesale/orderflow/internal/interfaces/http/handler"
	"github.com/wholesale/orderflow/internal/interfaces/http/middleware"
	"github.com/wholesale/orderflow/internal/interfaces/http/router"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Orderflow API
//	@version		1.0
//	@description	B2B order pricing negotiation and fulfillment workflow.

//	@contact.name	API Support
//	@contact.url	https://github.com/wholesale/orderflow

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting orderflow",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() { _ = providers.Shutdown(context.Background()) }()

	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry, cfg.Database.DBName, log); err != nil {
		log.Warn("Database tracing disabled", zap.Error(err))
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	coordination, err := cache.NewCoordination(cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() { _ = coordination.Close() }()

	// Events are written to the outbox inside each transaction, then handed to the bus
	serializer := event.NewOrderingSerializer()
	outboxPublisher := event.NewOutboxPublisher(serializer)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewIdempotentHandler(
		event.NewAuditLogHandler(log),
		coordination.Idempotency,
		shared.IdempotencyConfig{TTL: cfg.Event.IdempotencyTTL, Enabled: cfg.Event.IdempotencyEnabled, Scope: "audit"},
		log,
	))

	metrics, err := telemetry.NewWorkflowMetrics(providers.Meter())
	if err != nil {
		log.Fatal("Failed to create workflow metrics", zap.Error(err))
	}

	commissionRepo := persistence.NewGormCommissionRepository(db.DB, outboxPublisher)
	orderService := orderingapp.NewOrderService(orderingapp.OrderServiceDeps{
		Orders:      persistence.NewGormOrderRepository(db.DB, outboxPublisher),
		Commissions: commissionRepo,
		Products:    persistence.NewGormProductCatalog(db.DB),
		Dealers:     persistence.NewGormDealerDirectory(db.DB),
		Locker:      coordination.Locker,
		Outbox:      outboxRepo,
	}, orderingapp.LockSettings{TTL: cfg.Lock.TTL, KeyPrefix: cfg.Lock.KeyPrefix}, log)
	orderService.SetEventPublisher(eventBus)
	orderService.SetMetrics(metrics)

	if cfg.Storage.Enabled() {
		receipts, err := storage.NewS3ReceiptStorage(ctx, cfg.Storage, log)
		if err != nil {
			log.Fatal("Failed to initialize receipt storage", zap.Error(err))
		}
		orderService.SetReceiptStorage(receipts)
	} else {
		log.Warn("Receipt storage not configured, upload URLs are disabled")
	}

	commissionService := orderingapp.NewCommissionService(commissionRepo, outboxRepo, log)
	commissionService.SetEventPublisher(eventBus)
	commissionService.SetMetrics(metrics)

	var relay *event.OutboxProcessor
	if cfg.Event.RelayEnabled {
		relay = event.NewOutboxProcessor(outboxRepo, eventBus, serializer, event.OutboxProcessorConfig{
			BatchSize:    cfg.Event.RelayBatchSize,
			PollInterval: cfg.Event.RelayInterval,
			Grace:        cfg.Event.RelayGrace,
		}, log)
		relay.Start(ctx)
	}

	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validations", zap.Error(err))
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	httpMetrics, err := middleware.HTTPMetrics(providers.Meter())
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(httpMetrics)
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	checks := map[string]handler.Pinger{"database": pingFunc(db.Ping)}
	if coordination.Distributed() {
		checks["redis"] = pingFunc(coordination.Ping)
	}
	engine.GET("/health", handler.NewSystemHandler(cfg.App.Name, version, checks).Health)

	if cfg.Swagger.Enabled {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	jwtConfig := middleware.DefaultJWTConfig(auth.NewJWTService(cfg.JWT))
	jwtConfig.Logger = log

	apiMiddleware := []gin.HandlerFunc{
		middleware.JWTAuthMiddlewareWithConfig(jwtConfig),
		middleware.SpanActorAttributes(),
		middleware.SpanErrorMarker(),
	}
	if cfg.HTTP.RateLimitRequests > 0 {
		limiter := coordination.RateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(limiter, log))
		log.Info("API rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Use(apiMiddleware...).
		Register(
			router.OrderRoutes(handler.NewOrderHandler(orderService)),
			router.CommissionRoutes(handler.NewCommissionHandler(commissionService)),
		).
		Setup()

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if relay != nil {
		if err := relay.Stop(shutdownCtx); err != nil {
			log.Warn("Outbox processor did not stop in time", zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}

// pingFunc adapts a context-aware ping to handler.Pinger
type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }
