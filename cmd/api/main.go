package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/outbound-fulfillment-service/internal/application"
	"github.com/wms-platform/outbound-fulfillment-service/internal/infrastructure/gateways"
	mongoRepo "github.com/wms-platform/outbound-fulfillment-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/cloudevents"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/kafka"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/logging"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/metrics"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/middleware"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/mongodb"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/outbox"
	outboxMongo "github.com/wms-platform/outbound-fulfillment-service/pkg/outbox/mongodb"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/tenant"
	"github.com/wms-platform/outbound-fulfillment-service/pkg/tracing"
)

const serviceName = "outbound-fulfillment-service"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting outbound-fulfillment-service API")

	config := loadConfig()
	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	tracingConfig.Environment = getEnv("ENVIRONMENT", "development")
	tracingConfig.Enabled = getEnv("TRACING_ENABLED", "true") == "true"

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint, "enabled", tracingConfig.Enabled)
	}

	m := metrics.New(metrics.DefaultConfig(serviceName))

	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	defer mongoClient.Close(context.Background())
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	clients := gateways.NewClients(config.Gateways, logger, m)

	// Tenant datastores resolve through tenant-service; the default database is the fallback
	settings := tenant.NewCachingSettingsProvider(clients.Tenants(), config.TenantSettingsTTL)
	router := tenant.NewRouter(mongoClient.Database(), settings, logger,
		tenant.WithPoolConfig(config.TenantPool),
		tenant.WithDrainGrace(config.TenantDrainGrace),
		tenant.WithMetrics(m),
	)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := router.Close(closeCtx); err != nil {
			logger.WithError(err).Warn("Failed to close tenant datastores")
		}
	}()

	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceOutboundFulfillment)
	fulfillmentRepo := mongoRepo.NewFulfillmentRepository(router, eventFactory, logger, m)
	sequenceRepo := mongoRepo.NewSequenceRepository(router, logger, m)

	producer := kafka.NewProducer(config.Kafka, m, logger)
	defer producer.Close()
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Every open datastore carries its own outbox
	outboxSource := func() []outbox.Repository {
		dbs := router.Databases()
		repos := make([]outbox.Repository, 0, len(dbs))
		for _, db := range dbs {
			repos = append(repos, outboxMongo.NewOutboxRepository(db))
		}
		return repos
	}
	outboxPublisher := outbox.NewPublisher(outboxSource, producer, logger, config.Outbox)
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		os.Exit(1)
	}
	defer outboxPublisher.Stop()
	logger.Info("Outbox publisher started")

	service := application.NewFulfillmentService(application.Dependencies{
		Repository: fulfillmentRepo,
		Inventory:  clients.Inventory(),
		Products:   clients.Products(),
		Tasks:      clients.Tasks(),
		Accounts:   clients.Accounts(),
		Shipping:   clients.Shipping(),
		Allocator:  sequenceRepo,
		Logger:     logger,
		Metrics:    m,
	})

	engine := gin.New()

	middlewareConfig := middleware.DefaultConfig(serviceName, logger)
	middlewareConfig.Metrics = m
	middlewareConfig.EnableTracing = tracingConfig.Enabled
	middlewareConfig.Tenant.Required = config.RequireTenant
	middleware.Setup(engine, middlewareConfig)

	engine.GET("/health", middleware.HealthCheck(serviceName))
	engine.GET("/ready", middleware.ReadinessCheck(serviceName,
		middleware.Dependency{Name: "mongodb", Check: mongoClient.HealthCheck},
		middleware.Dependency{Name: "outbox", Check: outboxPublisher.Healthy},
	))
	engine.GET("/metrics", middleware.MetricsEndpoint(m))
	engine.GET("/status/breakers", func(c *gin.Context) {
		c.JSON(http.StatusOK, clients.BreakerStatus())
	})
	engine.GET("/status/outbox", func(c *gin.Context) {
		c.JSON(http.StatusOK, outboxPublisher.Stats())
	})

	registerRoutes(engine.Group("/api/v1"), service, logger)

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Server error")
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}
