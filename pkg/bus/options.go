package bus

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBackgroundPoolSize is the number of background workers when none is configured
	DefaultBackgroundPoolSize = 2

	// DefaultCleanupCount is the number of posts between two sweeps
	DefaultCleanupCount = 100

	// DefaultHealthCheckInterval is how often the owned background pool reports its status
	DefaultHealthCheckInterval = 30 * time.Second
)

// options holds the configuration assembled by New
type options struct {
	mainExecutor        Executor
	currentExecutor     Executor
	backgroundExecutor  Executor
	backgroundPoolSize  int
	cleanupCount        int
	healthCheckInterval time.Duration
	registry            Registry
	logger              *zap.Logger
	metrics             MetricsCollector
}

func defaultOptions() options {
	return options{
		backgroundPoolSize:  DefaultBackgroundPoolSize,
		cleanupCount:        DefaultCleanupCount,
		healthCheckInterval: DefaultHealthCheckInterval,
		logger:              zap.NewNop(),
		metrics:             nopMetrics{},
	}
}

// Option configures a Bus
type Option func(*options) error

// WithMainExecutor sets the executor for the Main thread mode.
// The default is a loop started on its own goroutine and stopped by Close.
func WithMainExecutor(executor Executor) Option {
	return func(o *options) error {
		o.mainExecutor = executor
		return nil
	}
}

// WithCurrentExecutor sets the executor for the Current thread mode. The default is Immediate.
func WithCurrentExecutor(executor Executor) Option {
	return func(o *options) error {
		o.currentExecutor = executor
		return nil
	}
}

// WithBackgroundExecutor sets the executor for the Background thread mode.
// The default is a worker pool of WithBackgroundPoolSize workers stopped by Close.
func WithBackgroundExecutor(executor Executor) Option {
	return func(o *options) error {
		o.backgroundExecutor = executor
		return nil
	}
}

// WithBackgroundPoolSize sets the number of workers of the default background pool
func WithBackgroundPoolSize(size int) Option {
	return func(o *options) error {
		if size < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidPoolSize, size)
		}
		o.backgroundPoolSize = size
		return nil
	}
}

// WithCleanupCount sets the number of posts between sweeps of dead subscriptions
func WithCleanupCount(count int) Option {
	return func(o *options) error {
		if count < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidCleanupCount, count)
		}
		o.cleanupCount = count
		return nil
	}
}

// WithHealthCheckInterval sets how often the default background pool reports its status.
// A non-positive interval disables the report.
func WithHealthCheckInterval(interval time.Duration) Option {
	return func(o *options) error {
		o.healthCheckInterval = interval
		return nil
	}
}

// WithRegistry sets the registry used by RegisterTarget and UnregisterTarget
func WithRegistry(registry Registry) Option {
	return func(o *options) error {
		o.registry = registry
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) error {
		if logger != nil {
			o.logger = logger
		}
		return nil
	}
}

// WithMetrics sets the metrics collector. If it also implements
// workers.StatusRecorder it receives the default background pool status.
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *options) error {
		if metrics != nil {
			o.metrics = metrics
		}
		return nil
	}
}
