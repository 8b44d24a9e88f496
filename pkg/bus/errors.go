package bus

import "errors"

var (
	// ErrInvalidSubscription is returned for a nil subscription or one whose EventClass is nil
	ErrInvalidSubscription = errors.New("invalid subscription")

	// ErrInvalidThreadMode is returned for a thread mode outside Current, Main and Background
	ErrInvalidThreadMode = errors.New("invalid thread mode")

	// ErrNilEvent is returned when posting a nil event
	ErrNilEvent = errors.New("event cannot be nil")

	// ErrInvalidPoolSize is returned when the background pool size is less than 1
	ErrInvalidPoolSize = errors.New("background pool size must be at least 1")

	// ErrInvalidCleanupCount is returned when the cleanup count is less than 1
	ErrInvalidCleanupCount = errors.New("cleanup count must be at least 1")

	// ErrRegistrationNotFound is returned when the registry has no registration for a target
	ErrRegistrationNotFound = errors.New("subscription registration not found")

	// ErrClosed is returned by operations on a closed bus
	ErrClosed = errors.New("bus is closed")
)
