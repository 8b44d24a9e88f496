package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/pocketbus/internal/application/publisher"
	"github.com/aescanero/pocketbus/internal/application/workers"
	"github.com/aescanero/pocketbus/internal/config"
	"github.com/aescanero/pocketbus/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/pocketbus/pkg/api/http"
	"github.com/aescanero/pocketbus/pkg/api/websocket"
	"github.com/aescanero/pocketbus/pkg/bus"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.EffectiveLogLevel())
	defer logger.Sync()

	bus.SetDebug(cfg.Debug)

	logger.Info("starting PocketBus",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.Bool("debug", cfg.Debug))

	metricsCollector := prometheus.NewCollector(nil)

	// Subscribers the bus can register by target
	registry := bus.NewTypeRegistry()
	publisher.BindAuditor(registry)

	// Main thread mode deliveries run on this goroutine
	mainLoop := workers.NewLoop("main", logger)

	eventBus, err := bus.New(
		bus.WithLogger(logger),
		bus.WithMetrics(metricsCollector),
		bus.WithRegistry(registry),
		bus.WithMainExecutor(mainLoop),
		bus.WithBackgroundPoolSize(cfg.Bus.BackgroundPoolSize),
		bus.WithCleanupCount(cfg.Bus.CleanupCount),
		bus.WithHealthCheckInterval(cfg.Bus.HealthCheckInterval),
	)
	if err != nil {
		logger.Fatal("failed to create event bus", zap.Error(err))
	}
	bus.SetDefault(eventBus)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize application components
	publisherMgr := publisher.NewManager(
		eventBus,
		publisher.NewValidator(),
		metricsCollector,
		logger,
		cfg.Publisher.HeartbeatInterval,
	)
	if err := publisherMgr.Start(ctx); err != nil {
		logger.Fatal("failed to start publisher", zap.Error(err))
	}

	// Initialize API server
	httpServer := http.NewServer(&http.Config{
		Addr:      cfg.GetHTTPAddr(),
		Bus:       eventBus,
		Publisher: publisherMgr,
		Logger:    logger,
	})

	// Add WebSocket handler to HTTP server
	wsHandler := websocket.NewHandler(eventBus, metricsCollector, logger)
	httpServer.SetupWebSocket(wsHandler)

	// Start server
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	logger.Info("PocketBus started",
		zap.String("bus_id", eventBus.ID()),
		zap.String("http_addr", cfg.GetHTTPAddr()),
		zap.Int("background_pool_size", cfg.Bus.BackgroundPoolSize),
		zap.Int("cleanup_count", cfg.Bus.CleanupCount))

	// Run the main loop until an interrupt signal
	if err := mainLoop.Run(ctx); err != nil {
		logger.Fatal("main loop failed", zap.Error(err))
	}

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	// Shutdown components
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := publisherMgr.Shutdown(shutdownCtx); err != nil {
		logger.Error("publisher shutdown error", zap.Error(err))
	}

	if err := eventBus.Close(shutdownCtx); err != nil {
		logger.Error("event bus shutdown error", zap.Error(err))
	}

	logger.Info("PocketBus shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
