package bus

import (
	"fmt"
	"strings"
)

// ThreadMode selects the execution context a subscription is delivered on
type ThreadMode int

const (
	// Current runs the subscription on the goroutine that posts the event
	Current ThreadMode = iota
	// Main runs the subscription on the single designated main goroutine
	Main
	// Background runs the subscription on the background worker pool
	Background
)

// numThreadModes is the size of the per-mode arrays held by the bus
const numThreadModes = 3

// threadModes lists the modes in dispatch order
var threadModes = [numThreadModes]ThreadMode{Current, Main, Background}

// String returns the lower-case name of the thread mode
func (m ThreadMode) String() string {
	switch m {
	case Current:
		return "current"
	case Main:
		return "main"
	case Background:
		return "background"
	default:
		return fmt.Sprintf("ThreadMode(%d)", int(m))
	}
}

// Valid reports whether m is one of the defined thread modes
func (m ThreadMode) Valid() bool {
	return m >= Current && m <= Background
}

// ParseThreadMode parses a thread mode name, ignoring case
func ParseThreadMode(s string) (ThreadMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "current":
		return Current, nil
	case "main":
		return Main, nil
	case "background":
		return Background, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidThreadMode, s)
	}
}
