package bus

import (
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// stickyStore keeps the last event posted per concrete type, in the order
// the types were first stored
type stickyStore struct {
	mu     sync.Mutex
	order  []reflect.Type
	events map[reflect.Type]any
}

func newStickyStore() *stickyStore {
	return &stickyStore{
		events: make(map[reflect.Type]any),
	}
}

// put stores event under its dynamic type, replacing any previous value
func (s *stickyStore) put(event any) {
	class := reflect.TypeOf(event)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[class]; !ok {
		s.order = append(s.order, class)
	}
	s.events[class] = event
}

// remove deletes the event stored for class
func (s *stickyStore) remove(class reflect.Type) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[class]; !ok {
		return false
	}
	delete(s.events, class)
	for i, c := range s.order {
		if c == class {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// get returns the event stored for class
func (s *stickyStore) get(class reflect.Type) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[class]
	return event, ok
}

// matching returns the stored events a subscription for class would receive
func (s *stickyStore) matching(class reflect.Type) []any {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []any
	for _, stored := range s.order {
		if matches(class, stored) {
			out = append(out, s.events[stored])
		}
	}
	return out
}

// classes returns the stored types in insertion order
func (s *stickyStore) classes() []reflect.Type {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]reflect.Type, len(s.order))
	copy(out, s.order)
	return out
}

// len returns the number of stored events
func (s *stickyStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.events)
}

// PostSticky stores event as the sticky event for its concrete type,
// replacing the previous one, then posts it
func (b *Bus) PostSticky(event any) error {
	if isEmpty(event) {
		return ErrNilEvent
	}
	if b.closed.Load() {
		return ErrClosed
	}

	b.sticky.put(event)
	b.metrics.SetStickyEvents(b.sticky.len())
	b.debugLog("sticky event stored", zap.Stringer("event_type", reflect.TypeOf(event)))

	return b.Post(event)
}

// RemoveSticky removes the sticky event stored for class and reports whether one existed
func (b *Bus) RemoveSticky(class reflect.Type) bool {
	if class == nil {
		return false
	}
	removed := b.sticky.remove(class)
	if removed {
		b.metrics.SetStickyEvents(b.sticky.len())
		b.debugLog("sticky event removed", zap.Stringer("event_type", class))
	}
	return removed
}

// Sticky returns the sticky event stored for class
func (b *Bus) Sticky(class reflect.Type) (any, bool) {
	if class == nil {
		return nil, false
	}
	return b.sticky.get(class)
}

// StickyClasses returns the names of the types with a stored sticky event
func (b *Bus) StickyClasses() []string {
	classes := b.sticky.classes()
	names := make([]string, len(classes))
	for i, class := range classes {
		names[i] = typeName(class)
	}
	return names
}

// StickyOf returns the sticky event stored for type E
func StickyOf[E any](b *Bus) (E, bool) {
	var zero E
	event, ok := b.Sticky(ClassOf[E]())
	if !ok {
		return zero, false
	}
	typed, ok := event.(E)
	return typed, ok
}

// RemoveStickyOf removes the sticky event stored for type E
func RemoveStickyOf[E any](b *Bus) bool {
	return b.RemoveSticky(ClassOf[E]())
}

// replaySticky schedules every stored event the subscription accepts on its
// thread mode executor. Events are collected under the sticky lock and
// scheduled after it is released.
func (b *Bus) replaySticky(sub Subscription) {
	class := sub.EventClass()
	mode := sub.ThreadMode()

	for _, event := range b.sticky.matching(class) {
		b.schedule(event, delivery{mode: mode, class: class, subs: []Subscription{sub}})
		b.debugLog("sticky event replayed",
			zap.Stringer("event_type", reflect.TypeOf(event)),
			zap.Stringer("event_class", class),
			zap.Stringer("thread_mode", mode))
	}
}
