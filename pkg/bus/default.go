package bus

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// defaultHolder guards the process-wide default bus
var defaultHolder struct {
	mu  sync.Mutex
	bus *Bus
}

// debugEnabled toggles verbose logging for every bus in the process
var debugEnabled atomic.Bool

// Default returns the process-wide bus, creating it with default options on first use
func Default() *Bus {
	defaultHolder.mu.Lock()
	defer defaultHolder.mu.Unlock()

	if defaultHolder.bus == nil {
		b, err := New()
		if err != nil {
			panic(fmt.Sprintf("failed to create default bus: %v", err))
		}
		defaultHolder.bus = b
	}
	return defaultHolder.bus
}

// SetDefault replaces the process-wide bus. The previous bus is not closed.
func SetDefault(b *Bus) {
	defaultHolder.mu.Lock()
	defer defaultHolder.mu.Unlock()

	defaultHolder.bus = b
}

// SetDebug enables or disables debug logging
func SetDebug(enable bool) {
	debugEnabled.Store(enable)
}

// DebugEnabled reports whether debug logging is enabled
func DebugEnabled() bool {
	return debugEnabled.Load()
}
