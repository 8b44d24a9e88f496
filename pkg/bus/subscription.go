package bus

import (
	"fmt"
	"reflect"
)

// Subscription is a handler bound to an event class and a thread mode.
//
// Implementations are usually produced by a registrar for a target object.
// Target returns nil once the owner is gone; the bus never inspects how the
// owner is referenced, only whether Target is empty.
type Subscription interface {
	// Handle delivers an event. Returning false asks the bus to remove the subscription.
	Handle(event any) bool

	// EventClass returns the type of event this subscription handles. It must not be nil.
	EventClass() reflect.Type

	// ThreadMode returns the execution context the subscription runs on.
	ThreadMode() ThreadMode

	// Target returns the owner of the subscription, or nil once the owner is gone.
	Target() any
}

// SubscriptionRegistration is the ordered set of subscriptions produced for one target
type SubscriptionRegistration interface {
	Subscriptions() []Subscription
}

// Registration is a SubscriptionRegistration backed by a slice
type Registration []Subscription

// Subscriptions returns the subscriptions in registration order
func (r Registration) Subscriptions() []Subscription {
	return r
}

// ClassOf returns the event class for E. Interface types are preserved, so
// ClassOf[error]() matches every event implementing error.
func ClassOf[E any]() reflect.Type {
	return reflect.TypeFor[E]()
}

// matches reports whether an event of eventType is delivered to a subscription for class
func matches(class, eventType reflect.Type) bool {
	return eventType.AssignableTo(class)
}

// validateSubscription checks the contract every registered subscription must honor
func validateSubscription(sub Subscription) error {
	if isEmpty(sub) {
		return fmt.Errorf("%w: subscription is nil", ErrInvalidSubscription)
	}
	if sub.EventClass() == nil {
		return fmt.Errorf("%w: EventClass() cannot be nil", ErrInvalidSubscription)
	}
	if mode := sub.ThreadMode(); !mode.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidThreadMode, mode)
	}
	return nil
}

// isEmpty reports whether v is nil or a typed nil reference
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map,
		reflect.Pointer, reflect.Slice, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}

// alive reports whether the subscription owner is still reachable
func alive(sub Subscription) bool {
	return !isEmpty(sub.Target())
}

// sameValue compares a and b with == when both hold comparable values
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return false
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if !reflect.ValueOf(a).Comparable() || !reflect.ValueOf(b).Comparable() {
		return false
	}
	return a == b
}

// sameSubscriber reports whether candidate should be removed when sub is
// unregistered: it is the same subscription, or both share a live target.
func sameSubscriber(candidate, sub Subscription) bool {
	if sameValue(candidate, sub) {
		return true
	}
	target := sub.Target()
	if isEmpty(target) {
		return false
	}
	return sameValue(candidate.Target(), target)
}
