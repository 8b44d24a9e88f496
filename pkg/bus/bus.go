package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/aescanero/pocketbus/internal/application/workers"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Bus routes posted events to registered subscriptions
type Bus struct {
	id           string
	logger       *zap.Logger
	metrics      MetricsCollector
	executors    [numThreadModes]Executor
	owned        []shutdowner
	cleanupCount int64

	subscriptions *subscriptionRegistry
	sticky        *stickyStore
	postCounter   atomic.Int64

	registryMu sync.RWMutex
	registry   Registry

	closed atomic.Bool
}

// Stats is a point-in-time view of the bus contents
type Stats struct {
	ID              string         `json:"id"`
	Subscriptions   map[string]int `json:"subscriptions"`
	EventClasses    map[string]int `json:"event_classes"`
	StickyEvents    int            `json:"sticky_events"`
	PostsSinceSweep int64          `json:"posts_since_sweep"`
	CleanupCount    int64          `json:"cleanup_count"`
}

// New creates a bus. Executors that are not configured are created and
// owned by the bus, and stopped by Close.
func New(opts ...Option) (*Bus, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, fmt.Errorf("invalid bus configuration: %w", err)
		}
	}

	b := &Bus{
		id:            uuid.New().String(),
		metrics:       o.metrics,
		cleanupCount:  int64(o.cleanupCount),
		subscriptions: newSubscriptionRegistry(),
		sticky:        newStickyStore(),
		registry:      o.registry,
	}
	b.logger = o.logger.With(zap.String("bus_id", b.id))

	current := o.currentExecutor
	if current == nil {
		current = Immediate
	}

	background := o.backgroundExecutor
	if background == nil {
		recorder, _ := o.metrics.(workers.StatusRecorder)
		pool := workers.NewPool(o.backgroundPoolSize, b.logger, recorder, o.healthCheckInterval)
		if err := pool.Start(); err != nil {
			return nil, fmt.Errorf("failed to start background pool: %w", err)
		}
		b.owned = append(b.owned, pool)
		background = pool
	}

	mainExecutor := o.mainExecutor
	if mainExecutor == nil {
		loop := workers.NewLoop("main", b.logger)
		if err := loop.Start(); err != nil {
			return nil, fmt.Errorf("failed to start main loop: %w", err)
		}
		// Stop the main loop before the pool so removals it schedules still run
		b.owned = append([]shutdowner{loop}, b.owned...)
		mainExecutor = loop
	}

	b.executors[Current] = current
	b.executors[Main] = mainExecutor
	b.executors[Background] = background

	b.logger.Debug("bus created",
		zap.Int64("cleanup_count", b.cleanupCount),
		zap.Int("background_pool_size", o.backgroundPoolSize))

	return b, nil
}

// ID returns the unique id of this bus instance
func (b *Bus) ID() string {
	return b.id
}

// SetRegistry replaces the registry used by RegisterTarget and UnregisterTarget
func (b *Bus) SetRegistry(registry Registry) {
	b.registryMu.Lock()
	defer b.registryMu.Unlock()

	b.registry = registry
}

// Register adds a subscription and replays matching sticky events to it
// before returning. Replay goes through the subscription's thread mode, so
// Main and Background subscriptions receive it asynchronously.
func (b *Bus) Register(sub Subscription) error {
	if err := validateSubscription(sub); err != nil {
		return fmt.Errorf("register failed: %w", err)
	}
	if b.closed.Load() {
		return ErrClosed
	}

	b.subscriptions.insert(sub)
	b.debugLog("registered subscription",
		zap.Stringer("event_class", sub.EventClass()),
		zap.Stringer("thread_mode", sub.ThreadMode()))

	b.replaySticky(sub)
	b.recordSizes()
	return nil
}

// RegisterAll adds every subscription of a registration atomically, then
// replays sticky events to each of them in registration order. Nothing is
// registered if any subscription is invalid.
func (b *Bus) RegisterAll(registration SubscriptionRegistration) error {
	if isEmpty(registration) {
		return fmt.Errorf("register failed: %w: registration is nil", ErrInvalidSubscription)
	}
	if b.closed.Load() {
		return ErrClosed
	}

	subs := registration.Subscriptions()
	for i, sub := range subs {
		if err := validateSubscription(sub); err != nil {
			return fmt.Errorf("register failed for subscription %d: %w", i, err)
		}
	}

	b.subscriptions.insert(subs...)
	b.debugLog("registered subscriptions", zap.Int("count", len(subs)))

	for _, sub := range subs {
		b.replaySticky(sub)
	}
	b.recordSizes()
	return nil
}

// Unregister removes a subscription. Subscriptions with the same live
// target, and subscriptions whose target is gone, are removed from the same
// event class list. Unregistering an unknown subscription is a no-op.
func (b *Bus) Unregister(sub Subscription) error {
	if err := validateSubscription(sub); err != nil {
		return fmt.Errorf("unregister failed: %w", err)
	}

	removed := b.subscriptions.remove(sub)
	b.afterRemoval(sub.ThreadMode(), ReasonUnregister, removed)
	b.debugLog("unregistered subscription",
		zap.Stringer("event_class", sub.EventClass()),
		zap.Stringer("thread_mode", sub.ThreadMode()),
		zap.Int("removed", removed))

	b.recordSizes()
	return nil
}

// UnregisterAll removes every subscription of a registration
func (b *Bus) UnregisterAll(registration SubscriptionRegistration) error {
	if isEmpty(registration) {
		return fmt.Errorf("unregister failed: %w: registration is nil", ErrInvalidSubscription)
	}

	subs := registration.Subscriptions()
	for i, sub := range subs {
		if err := validateSubscription(sub); err != nil {
			return fmt.Errorf("unregister failed for subscription %d: %w", i, err)
		}
	}

	for _, sub := range subs {
		removed := b.subscriptions.remove(sub)
		b.afterRemoval(sub.ThreadMode(), ReasonUnregister, removed)
	}
	b.debugLog("unregistered subscriptions", zap.Int("count", len(subs)))

	b.recordSizes()
	return nil
}

// RegisterTarget registers the subscriptions the registry declares for target
func (b *Bus) RegisterTarget(target any) error {
	registration, err := b.lookup(target)
	if err != nil {
		return fmt.Errorf("register failed: %w", err)
	}
	return b.RegisterAll(registration)
}

// UnregisterTarget unregisters the subscriptions the registry declares for target
func (b *Bus) UnregisterTarget(target any) error {
	registration, err := b.lookup(target)
	if err != nil {
		return fmt.Errorf("unregister failed: %w", err)
	}
	return b.UnregisterAll(registration)
}

// lookup resolves the registration for target
func (b *Bus) lookup(target any) (SubscriptionRegistration, error) {
	b.registryMu.RLock()
	registry := b.registry
	b.registryMu.RUnlock()

	if isEmpty(registry) {
		return nil, fmt.Errorf("%w for %T: no registry configured", ErrRegistrationNotFound, target)
	}

	registration, ok := registry.Lookup(target)
	if !ok || isEmpty(registration) {
		return nil, fmt.Errorf("%w for %T: check your registry", ErrRegistrationNotFound, target)
	}
	return registration, nil
}

// Stats returns the current subscription and sticky event counts
func (b *Bus) Stats() Stats {
	subs, classes := b.subscriptions.sizes()

	stats := Stats{
		ID:              b.id,
		Subscriptions:   make(map[string]int, numThreadModes),
		EventClasses:    make(map[string]int, numThreadModes),
		StickyEvents:    b.sticky.len(),
		PostsSinceSweep: b.postCounter.Load(),
		CleanupCount:    b.cleanupCount,
	}
	for _, mode := range threadModes {
		stats.Subscriptions[mode.String()] = subs[mode]
		stats.EventClasses[mode.String()] = classes[mode]
	}
	return stats
}

// Close stops the executors owned by the bus. Registration and posting
// fail with ErrClosed afterwards.
func (b *Bus) Close(ctx context.Context) error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.logger.Debug("closing bus")

	var errs []error
	for _, executor := range b.owned {
		if err := executor.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Closed reports whether Close has been called
func (b *Bus) Closed() bool {
	return b.closed.Load()
}

// recordSizes publishes subscription and sticky gauges
func (b *Bus) recordSizes() {
	subs, _ := b.subscriptions.sizes()
	for _, mode := range threadModes {
		b.metrics.SetSubscriptions(mode.String(), subs[mode])
	}
	b.metrics.SetStickyEvents(b.sticky.len())
}

// afterRemoval records removed subscriptions
func (b *Bus) afterRemoval(mode ThreadMode, reason string, removed int) {
	if removed > 0 {
		b.metrics.RecordRemoval(mode.String(), reason, removed)
	}
}

// debugLog logs at debug level when debug logging is enabled
func (b *Bus) debugLog(msg string, fields ...zap.Field) {
	if DebugEnabled() {
		b.logger.Debug(msg, fields...)
	}
}

// typeName renders an event class for logs and stats
func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
