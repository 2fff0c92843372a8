package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ecotrace/collect-api/config"
	"github.com/ecotrace/collect-api/internal/handlers"
	"github.com/ecotrace/collect-api/pkg/database"
	"github.com/ecotrace/collect-api/pkg/events"
	"github.com/ecotrace/collect-api/pkg/health"
	"github.com/ecotrace/collect-api/pkg/kafka"
	"github.com/ecotrace/collect-api/pkg/lifecycle"
	"github.com/ecotrace/collect-api/pkg/middleware"
	"github.com/ecotrace/collect-api/pkg/redis"
	"github.com/ecotrace/collect-api/pkg/reference"
	"github.com/ecotrace/collect-api/pkg/repositories"
	"github.com/ecotrace/collect-api/pkg/scheduler"
	"github.com/ecotrace/collect-api/pkg/tracing"
	"github.com/ecotrace/collect-api/pkg/tracing/exporters"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	shutdownTracing, err := setupTracing(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer shutdownTracing()

	// Database
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
		cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)
	sqlxDB, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	db := database.NewDatabaseInstance(sqlxDB, logger)
	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
	defer db.Close()

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
	})
	if err := migrations.Migrate(cfg.DatabaseName, sqlxDB); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Redis accelerates reference allocation and gates the overdue sweep;
	// the API works without it.
	var redisClient *redis.Client
	if cfg.RedisEnabled {
		redisClient, err = redis.NewClient(redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	// Repositories
	requests := repositories.NewRequestRepository(db, logger)
	pickups := repositories.NewPickupRepository(db, logger)
	materials := repositories.NewMaterialRepository(db, logger)

	// Reference allocation
	allocatorOpts := []reference.Option{}
	if redisClient != nil {
		allocatorOpts = append(allocatorOpts, reference.WithSequencer(redis.NewSequencer(redisClient)))
	}
	allocator := reference.NewAllocator(
		logger,
		repositories.NewReferenceStore(requests, pickups),
		allocatorOpts...,
	)

	// Lifecycle events
	var publisher events.Publisher
	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(kafka.ParseConfig(cfg.KafkaBrokers, cfg.KafkaLifecycleTopic), logger)
		defer producer.Close()
		publisher = producer
	}
	emitter := events.NewEmitter(publisher, logger)

	coordinator := lifecycle.NewCoordinator(db, requests, pickups, materials, allocator, emitter, logger)

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second

	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	if cfg.AuthEnabled {
		e.Use(middleware.Authentication(logger, cfg.AuthIssuerURL, cfg.AuthClientID))
	}

	api := e.Group("/api/v1")
	if redisClient != nil && cfg.RateLimitRequests > 0 {
		limiter := redis.NewRateLimiter(redisClient, cfg.AppName+":ratelimit:")
		api.Use(middleware.RateLimit(limiter, int64(cfg.RateLimitRequests), cfg.RateLimitWindow, logger))
	}
	handlers.NewRequestHandler(coordinator, requests, logger).Register(api.Group("/requests"))
	handlers.NewPickupHandler(coordinator, pickups, logger).Register(api.Group("/pickups"))
	handlers.NewMaterialHandler(coordinator, materials, logger).Register(api.Group("/materials"))
	handlers.NewDashboardHandler(requests, pickups, materials, logger).Register(api.Group("/dashboard"))
	handlers.NewDropoffHandler().Register(api.Group("/dropoff-points"))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	checker := health.NewChecker(db, redisClient, version)
	checker.RegisterRoutes(e)

	// Overdue pickup sweep
	var sweep *scheduler.Sweep
	if cfg.SweepEnabled {
		var locker *redis.Locker
		if redisClient != nil {
			locker = redis.NewLocker(redisClient, cfg.AppName)
		}
		sweep = scheduler.NewSweep(pickups, emitter, locker, scheduler.Config{
			PollInterval: cfg.SweepPollInterval,
			LockTTL:      cfg.SweepLockTTL,
		}, logger)
		if err := sweep.Start(ctx); err != nil {
			log.Fatalf("failed to start sweep: %v", err)
		}
	}

	checker.SetReady(true)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Infof("Starting %s on %s", cfg.AppName, addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server stopped unexpectedly: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if sweep != nil {
		if err := sweep.Stop(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Sweep did not stop cleanly")
		}
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}

	logger.Info("Shutdown complete")
}

func newLogger(cfg *config.Config) ectologger.Logger {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	zapLogger, err := zapCfg.Build()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

// setupTracing installs the OTLP exporter when enabled. Without it spans are
// still created locally so log correlation keeps working.
func setupTracing(ctx context.Context, cfg *config.Config, logger ectologger.Logger) (func(), error) {
	res, err := sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.AppName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}

	if cfg.OTLPEnabled {
		exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.OTLPEndpoint,
			Protocol: cfg.OTLPProtocol,
			Insecure: cfg.OTLPInsecure,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
		logger.Infof("OTLP trace export enabled: %s (%s)", cfg.OTLPEndpoint, cfg.OTLPProtocol)
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Tracer provider shutdown failed")
		}
	}, nil
}
