package bus

import (
	"fmt"
	"reflect"
	"weak"
)

// ownedSubscription delivers events of type E to a handler bound to a weakly
// referenced owner of type T
type ownedSubscription[T, E any] struct {
	owner   weak.Pointer[T]
	mode    ThreadMode
	handler func(owner *T, event E) bool
}

// NewSubscription creates a subscription for events of type E owned by target.
//
// The bus holds target through a weak pointer: once target is garbage
// collected the subscription reports an empty Target and is reclaimed.
// The handler receives the owner as an argument and must not capture it,
// otherwise the owner stays reachable for as long as the subscription is
// registered. Returning false from the handler removes the subscription.
//
// T must not be a zero-size type: distinct zero-size values may share an
// address, so they can neither be told apart nor collected. NewSubscription
// panics when given one.
func NewSubscription[T, E any](target *T, mode ThreadMode, handler func(owner *T, event E) bool) Subscription {
	if t := reflect.TypeFor[T](); t.Size() == 0 {
		panic(fmt.Sprintf("bus: subscription owner %s has zero size", reflect.PointerTo(t)))
	}
	return &ownedSubscription[T, E]{
		owner:   weak.Make(target),
		mode:    mode,
		handler: handler,
	}
}

// Handle delivers the event to the handler if the owner is still alive
func (s *ownedSubscription[T, E]) Handle(event any) bool {
	owner := s.owner.Value()
	if owner == nil {
		return false
	}
	e, ok := event.(E)
	if !ok {
		return true
	}
	return s.handler(owner, e)
}

// EventClass returns the type E
func (s *ownedSubscription[T, E]) EventClass() reflect.Type {
	return ClassOf[E]()
}

// ThreadMode returns the thread mode given at construction
func (s *ownedSubscription[T, E]) ThreadMode() ThreadMode {
	return s.mode
}

// Target returns the owner, or nil once it has been collected
func (s *ownedSubscription[T, E]) Target() any {
	if owner := s.owner.Value(); owner != nil {
		return owner
	}
	return nil
}

// funcSubscription is a subscription with no separate owner; it is its own target
type funcSubscription[E any] struct {
	mode    ThreadMode
	handler func(event E) bool
}

// NewFuncSubscription creates a subscription for events of type E that stays
// registered until it is unregistered or the handler returns false.
func NewFuncSubscription[E any](mode ThreadMode, handler func(event E) bool) Subscription {
	return &funcSubscription[E]{mode: mode, handler: handler}
}

// Handle delivers the event to the handler
func (s *funcSubscription[E]) Handle(event any) bool {
	e, ok := event.(E)
	if !ok {
		return true
	}
	return s.handler(e)
}

// EventClass returns the type E
func (s *funcSubscription[E]) EventClass() reflect.Type {
	return ClassOf[E]()
}

// ThreadMode returns the thread mode given at construction
func (s *funcSubscription[E]) ThreadMode() ThreadMode {
	return s.mode
}

// Target returns the subscription itself
func (s *funcSubscription[E]) Target() any {
	return s
}
