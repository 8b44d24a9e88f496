package bus

import (
	"time"

	"go.uber.org/zap"
)

// Sweep removes every subscription whose target is gone, across all thread
// modes, and returns how many were removed. It runs automatically on the
// background executor every CleanupCount posts. Handle return values play
// no part here: only liveness is checked.
func (b *Bus) Sweep() int {
	start := time.Now()
	removed := b.subscriptions.sweep()
	duration := time.Since(start)

	total := 0
	for _, mode := range threadModes {
		total += removed[mode]
		b.afterRemoval(mode, ReasonSweep, removed[mode])
		b.debugLog("cleanup references",
			zap.Stringer("thread_mode", mode),
			zap.Int("removed", removed[mode]))
	}

	b.metrics.RecordSweep(total, duration)
	b.recordSizes()

	if total > 0 {
		b.logger.Debug("swept dead subscriptions",
			zap.Int("removed", total),
			zap.Duration("duration", duration))
	}
	return total
}
