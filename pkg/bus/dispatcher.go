package bus

import (
	"fmt"
	"reflect"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
)

// Post delivers event to every subscription whose event class accepts the
// event's dynamic type. Matching lists are snapshotted under the registry
// lock and handed to their thread mode executor after the lock is
// released; Post returns once every snapshot is scheduled.
func (b *Bus) Post(event any) error {
	if isEmpty(event) {
		return ErrNilEvent
	}
	if b.closed.Load() {
		return ErrClosed
	}

	eventType := reflect.TypeOf(event)
	deliveries := b.subscriptions.match(eventType)

	for _, d := range deliveries {
		b.schedule(event, d)
		b.debugLog("event posted",
			zap.Stringer("event_type", eventType),
			zap.Stringer("event_class", d.class),
			zap.Stringer("thread_mode", d.mode),
			zap.Int("subscriptions", len(d.subs)))
	}

	b.metrics.RecordPost(len(deliveries))
	b.countPost()
	return nil
}

// schedule hands a snapshot to the executor of its thread mode
func (b *Bus) schedule(event any, d delivery) {
	b.executors[d.mode].Execute(func() {
		b.deliver(event, d)
	})
}

// deliver invokes each subscription of the snapshot in order. Declined and
// dead subscriptions are removed by a task on the background executor,
// never from inside the delivery.
func (b *Bus) deliver(event any, d delivery) {
	mode := d.mode.String()

	for _, sub := range d.subs {
		if !alive(sub) {
			b.metrics.RecordDelivery(mode, OutcomeDead, 0)
			b.scheduleRemoval(sub, ReasonDead)
			continue
		}

		start := time.Now()
		keep, err := b.invoke(sub, event)
		duration := time.Since(start)

		switch {
		case err != nil:
			b.metrics.RecordDelivery(mode, OutcomePanic, duration)
			b.logger.Error("subscription panicked",
				zap.Stringer("event_type", reflect.TypeOf(event)),
				zap.Stringer("event_class", d.class),
				zap.String("thread_mode", mode),
				zap.Error(err))
		case !keep:
			b.metrics.RecordDelivery(mode, OutcomeDeclined, duration)
			b.scheduleRemoval(sub, ReasonDeclined)
		default:
			b.metrics.RecordDelivery(mode, OutcomeDelivered, duration)
		}
	}
}

// invoke calls Handle, converting a panic into an error. A subscription
// that panics stays registered.
func (b *Bus) invoke(sub Subscription, event any) (keep bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			keep = true
			err = fmt.Errorf("panic in subscription handler: %v", r)
			b.debugLog("subscription panic stack", zap.ByteString("stack", debug.Stack()))
		}
	}()

	return sub.Handle(event), nil
}

// scheduleRemoval removes sub from the registry on the background executor
func (b *Bus) scheduleRemoval(sub Subscription, reason string) {
	b.executors[Background].Execute(func() {
		removed := b.subscriptions.remove(sub)
		b.afterRemoval(sub.ThreadMode(), reason, removed)
		if removed > 0 {
			b.recordSizes()
		}
		b.debugLog("removed subscription",
			zap.String("reason", reason),
			zap.Stringer("event_class", sub.EventClass()),
			zap.Stringer("thread_mode", sub.ThreadMode()),
			zap.Int("removed", removed))
	})
}

// countPost advances the post counter and schedules a sweep on the
// background executor every cleanupCount posts
func (b *Bus) countPost() {
	n := b.postCounter.Add(1)
	b.debugLog("post counted", zap.Int64("counter", n))

	if n < b.cleanupCount || !b.postCounter.CompareAndSwap(n, 0) {
		return
	}
	b.executors[Background].Execute(func() {
		b.Sweep()
	})
}
