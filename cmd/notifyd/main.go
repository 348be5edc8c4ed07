package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/pulsedesk/notifyq/internal/api/handler"
	"github.com/pulsedesk/notifyq/internal/api/router"
	"github.com/pulsedesk/notifyq/internal/cache"
	"github.com/pulsedesk/notifyq/internal/config"
	"github.com/pulsedesk/notifyq/internal/delivery"
	"github.com/pulsedesk/notifyq/internal/scheduler"
	"github.com/pulsedesk/notifyq/internal/service"
	"github.com/pulsedesk/notifyq/internal/storage"
	"github.com/pulsedesk/notifyq/shared/logger"
	"github.com/pulsedesk/notifyq/shared/postgresql"
	"github.com/pulsedesk/notifyq/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("NOTIFYD_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/notifyd/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting notification scheduler",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	// Initialize the job store and make sure the schema exists
	store := storage.NewStorage(dbClient, appLogger.Logger)

	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = store.EnsureSchema(schemaCtx)
	schemaCancel()
	if err != nil {
		dbClient.Close()
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	// Initialize RabbitMQ client for the push gateway
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		dbClient.Close()
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	// Initialize the optional job status cache
	var statusCache *cache.StatusCache
	if cfg.Redis.Enabled {
		statusCache, err = cache.New(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		}, appLogger.Logger)
		if err != nil {
			appLogger.Warn("Status cache unavailable, continuing without it",
				slog.Any("error", err),
			)
			statusCache = nil
		} else {
			appLogger.Info("Status cache connected",
				slog.String("addr", cfg.Redis.Addr),
			)
		}
	}

	// Initialize the processor and janitor
	deliverer := delivery.NewAMQPDeliverer(rabbitClient, appLogger.Logger)

	processor := scheduler.NewProcessor(&scheduler.Config{
		Logger:             appLogger.Logger,
		Store:              store,
		Deliverer:          deliverer,
		PollInterval:       cfg.Scheduler.PollInterval,
		BatchSize:          cfg.Scheduler.BatchSize,
		IdleTicksThreshold: cfg.Scheduler.IdleTicksThreshold,
	})

	janitor := scheduler.NewJanitor(appLogger.Logger, store, cfg.Janitor.Interval, cfg.Janitor.RetentionDays)

	svc := service.New(&service.Config{
		Logger:             appLogger.Logger,
		Store:              store,
		Cache:              statusCache,
		Processor:          processor,
		StartOnDemand:      cfg.Scheduler.StartOnDemand,
		DefaultMaxAttempts: cfg.Scheduler.DefaultMaxAttempts,
	})

	processor.Start()
	janitor.Start()

	// Initialize router
	r := initRouter(cfg.App.Environment, appLogger.Logger, svc)

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("poll_interval", cfg.Scheduler.PollInterval),
		slog.Int("batch_size", cfg.Scheduler.BatchSize),
	)

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Notification scheduler is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")

	// Stop background workers before closing their dependencies
	janitor.Stop()
	processor.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)

	cleanup := func() {
		cancel()
		if statusCache != nil {
			if err := statusCache.Close(); err != nil {
				appLogger.Warn("Failed to close status cache", slog.Any("error", err))
			}
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
		if dbClient != nil {
			dbClient.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, logger *slog.Logger, svc handler.NotificationService) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	handlerDeps := &handler.Dependencies{
		Logger:  logger,
		Service: svc,
	}

	return router.SetupRouter(handlerDeps)
}
