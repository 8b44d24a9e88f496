package bus

import (
	"reflect"
	"sync"
)

// Registry resolves the subscriptions declared by a target object
type Registry interface {
	// Lookup returns the registration for target, or false if its type is unknown.
	Lookup(target any) (SubscriptionRegistration, bool)
}

// RegistrationFactory builds the registration for one target instance
type RegistrationFactory func(target any) SubscriptionRegistration

// TypeRegistry is a Registry keyed by the runtime type of the target.
// It is safe for concurrent use.
type TypeRegistry struct {
	mu        sync.RWMutex
	factories map[reflect.Type]RegistrationFactory
}

// NewTypeRegistry creates an empty type registry
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		factories: make(map[reflect.Type]RegistrationFactory),
	}
}

// Bind associates targetType with a registration factory, replacing any previous binding
func (r *TypeRegistry) Bind(targetType reflect.Type, factory RegistrationFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[targetType] = factory
}

// Lookup builds the registration for target
func (r *TypeRegistry) Lookup(target any) (SubscriptionRegistration, bool) {
	if isEmpty(target) {
		return nil, false
	}

	r.mu.RLock()
	factory, ok := r.factories[reflect.TypeOf(target)]
	r.mu.RUnlock()

	if !ok {
		return nil, false
	}

	registration := factory(target)
	if registration == nil {
		return nil, false
	}
	return registration, true
}

// Bind registers a typed factory for targets of type *T
func Bind[T any](r *TypeRegistry, factory func(target *T) SubscriptionRegistration) {
	r.Bind(reflect.TypeFor[*T](), func(target any) SubscriptionRegistration {
		return factory(target.(*T))
	})
}
