package bus

import (
	"reflect"
	"sync"
)

// subscriberList holds the subscriptions for one event class in registration order
type subscriberList struct {
	class reflect.Type
	subs  []Subscription
}

// subscriberMap maps event classes to subscriber lists, preserving the
// order in which classes were first registered
type subscriberMap struct {
	lists []*subscriberList
	index map[reflect.Type]*subscriberList
}

// delivery is a snapshot of the subscriptions of one class scheduled for an event
type delivery struct {
	mode  ThreadMode
	class reflect.Type
	subs  []Subscription
}

func newSubscriberMap() *subscriberMap {
	return &subscriberMap{
		index: make(map[reflect.Type]*subscriberList),
	}
}

// add appends sub to the list for its class, creating the list if absent
func (m *subscriberMap) add(sub Subscription) {
	class := sub.EventClass()
	list, ok := m.index[class]
	if !ok {
		list = &subscriberList{class: class}
		m.index[class] = list
		m.lists = append(m.lists, list)
	}
	list.subs = append(list.subs, sub)
}

// remove drops every entry of the class list matching sub, along with
// entries whose target is gone, and returns how many were removed
func (m *subscriberMap) remove(sub Subscription) int {
	list, ok := m.index[sub.EventClass()]
	if !ok {
		return 0
	}
	removed := list.filter(func(candidate Subscription) bool {
		return !alive(candidate) || sameSubscriber(candidate, sub)
	})
	if len(list.subs) == 0 {
		m.drop(list.class)
	}
	return removed
}

// sweep drops every subscription whose target is gone
func (m *subscriberMap) sweep() int {
	removed := 0
	for _, list := range append([]*subscriberList(nil), m.lists...) {
		removed += list.filter(func(candidate Subscription) bool {
			return !alive(candidate)
		})
		if len(list.subs) == 0 {
			m.drop(list.class)
		}
	}
	return removed
}

// match copies the lists whose class accepts eventType
func (m *subscriberMap) match(mode ThreadMode, eventType reflect.Type) []delivery {
	var out []delivery
	for _, list := range m.lists {
		if !matches(list.class, eventType) {
			continue
		}
		snapshot := make([]Subscription, len(list.subs))
		copy(snapshot, list.subs)
		out = append(out, delivery{mode: mode, class: list.class, subs: snapshot})
	}
	return out
}

// size returns the number of subscriptions and classes
func (m *subscriberMap) size() (subs, classes int) {
	for _, list := range m.lists {
		subs += len(list.subs)
	}
	return subs, len(m.lists)
}

// drop removes the list for class
func (m *subscriberMap) drop(class reflect.Type) {
	delete(m.index, class)
	for i, list := range m.lists {
		if list.class == class {
			m.lists = append(m.lists[:i], m.lists[i+1:]...)
			return
		}
	}
}

// filter removes the entries for which reject returns true, keeping order
func (l *subscriberList) filter(reject func(Subscription) bool) int {
	kept := l.subs[:0]
	for _, sub := range l.subs {
		if !reject(sub) {
			kept = append(kept, sub)
		}
	}
	removed := len(l.subs) - len(kept)
	clear(l.subs[len(kept):])
	l.subs = kept
	return removed
}

// subscriptionRegistry holds one subscriber map per thread mode behind a
// single lock, so a subscription moves between states atomically with
// respect to concurrent posts
type subscriptionRegistry struct {
	mu    sync.RWMutex
	modes [numThreadModes]*subscriberMap
}

func newSubscriptionRegistry() *subscriptionRegistry {
	r := &subscriptionRegistry{}
	for _, mode := range threadModes {
		r.modes[mode] = newSubscriberMap()
	}
	return r
}

// insert adds all subscriptions under one lock acquisition
func (r *subscriptionRegistry) insert(subs ...Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, sub := range subs {
		r.modes[sub.ThreadMode()].add(sub)
	}
}

// remove unregisters sub from its thread mode map
func (r *subscriptionRegistry) remove(sub Subscription) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.modes[sub.ThreadMode()].remove(sub)
}

// match snapshots the matching lists of every mode in dispatch order
func (r *subscriptionRegistry) match(eventType reflect.Type) []delivery {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []delivery
	for _, mode := range threadModes {
		out = append(out, r.modes[mode].match(mode, eventType)...)
	}
	return out
}

// sweep removes dead subscriptions from every mode and reports the count per mode
func (r *subscriptionRegistry) sweep() [numThreadModes]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed [numThreadModes]int
	for _, mode := range threadModes {
		removed[mode] = r.modes[mode].sweep()
	}
	return removed
}

// sizes returns subscription and class counts per mode
func (r *subscriptionRegistry) sizes() (subs, classes [numThreadModes]int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, mode := range threadModes {
		subs[mode], classes[mode] = r.modes[mode].size()
	}
	return subs, classes
}
