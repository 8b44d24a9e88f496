package publisher

import (
	"maps"
	"sync"

	"github.com/aescanero/pocketbus/pkg/bus"
)

// Auditor counts the catalog events delivered by the bus
type Auditor struct {
	mu            sync.Mutex
	notices       map[string]int
	heartbeats    int
	lastNotice    *Notice
	lastHeartbeat *Heartbeat
}

// AuditSnapshot is a copy of the auditor counters
type AuditSnapshot struct {
	Notices       map[string]int `json:"notices"`
	Heartbeats    int            `json:"heartbeats"`
	LastNotice    *Notice        `json:"last_notice,omitempty"`
	LastHeartbeat *Heartbeat     `json:"last_heartbeat,omitempty"`
}

// NewAuditor creates an auditor with empty counters
func NewAuditor() *Auditor {
	return &Auditor{
		notices: make(map[string]int),
	}
}

// BindAuditor declares the auditor subscriptions in r so that
// Bus.RegisterTarget can register an *Auditor
func BindAuditor(r *bus.TypeRegistry) {
	bus.Bind(r, auditorRegistration)
}

func auditorRegistration(a *Auditor) bus.SubscriptionRegistration {
	return bus.Registration{
		bus.NewSubscription(a, bus.Background, (*Auditor).onNotice),
		bus.NewSubscription(a, bus.Main, (*Auditor).onHeartbeat),
	}
}

func (a *Auditor) onNotice(n Notice) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.notices[n.Level]++
	a.lastNotice = &n
	return true
}

func (a *Auditor) onHeartbeat(h Heartbeat) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.heartbeats++
	a.lastHeartbeat = &h
	return true
}

// Snapshot returns a copy of the counters
func (a *Auditor) Snapshot() AuditSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snapshot := AuditSnapshot{
		Notices:    maps.Clone(a.notices),
		Heartbeats: a.heartbeats,
	}
	if a.lastNotice != nil {
		n := *a.lastNotice
		snapshot.LastNotice = &n
	}
	if a.lastHeartbeat != nil {
		h := *a.lastHeartbeat
		snapshot.LastHeartbeat = &h
	}
	return snapshot
}
