package publisher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aescanero/pocketbus/pkg/bus"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Submission outcomes reported to the MetricsCollector
const (
	StatusPosted   = "posted"
	StatusSticky   = "sticky"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

// MetricsCollector receives publisher instrumentation
type MetricsCollector interface {
	RecordEventSubmitted(kind, status string)
}

type nopMetrics struct{}

func (nopMetrics) RecordEventSubmitted(string, string) {}

// Receipt describes a published event
type Receipt struct {
	ID       string    `json:"id"`
	Kind     string    `json:"kind"`
	Type     string    `json:"type"`
	Sticky   bool      `json:"sticky"`
	PostedAt time.Time `json:"posted_at"`
}

// Manager coordinates event submission and the heartbeat
type Manager struct {
	bus       *bus.Bus
	validator *Validator
	metrics   MetricsCollector
	auditor   *Auditor
	logger    *zap.Logger

	heartbeatInterval time.Duration
	sequence          atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a new publisher manager. A non-positive heartbeat
// interval disables the heartbeat.
func NewManager(
	b *bus.Bus,
	validator *Validator,
	metrics MetricsCollector,
	logger *zap.Logger,
	heartbeatInterval time.Duration,
) *Manager {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		bus:               b,
		validator:         validator,
		metrics:           metrics,
		auditor:           NewAuditor(),
		logger:            logger,
		heartbeatInterval: heartbeatInterval,
	}
}

// Start registers the auditor and starts the heartbeat. The bus must have
// a registry the auditor is bound in (see BindAuditor).
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return fmt.Errorf("publisher manager already started")
	}

	if err := m.bus.RegisterTarget(m.auditor); err != nil {
		return fmt.Errorf("failed to register auditor: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	if m.heartbeatInterval <= 0 {
		close(m.done)
		m.logger.Info("publisher manager started", zap.Bool("heartbeat", false))
		return nil
	}

	m.beat()
	go m.runHeartbeat(ctx, m.done)

	m.logger.Info("publisher manager started",
		zap.Bool("heartbeat", true),
		zap.Duration("heartbeat_interval", m.heartbeatInterval))
	return nil
}

// Submit validates, decodes and posts a submission. Sticky submissions
// replace the stored sticky event of their kind.
func (m *Manager) Submit(ctx context.Context, s *Submission) (*Receipt, error) {
	if err := m.validator.Validate(s); err != nil {
		m.metrics.RecordEventSubmitted(kindLabel(s), StatusRejected)
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	k, _ := lookupKind(s.Kind)
	event, err := k.decode(s.Data)
	if err != nil {
		m.metrics.RecordEventSubmitted(k.name, StatusRejected)
		return nil, fmt.Errorf("validation failed: %w: %v", ErrInvalidEvent, err)
	}

	event, id := prepare(event)
	if err := m.validator.ValidateEvent(event); err != nil {
		m.metrics.RecordEventSubmitted(k.name, StatusRejected)
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	post, status := m.bus.Post, StatusPosted
	if s.Sticky {
		post, status = m.bus.PostSticky, StatusSticky
	}
	if err := post(event); err != nil {
		m.metrics.RecordEventSubmitted(k.name, StatusFailed)
		m.logger.Error("failed to post event",
			zap.String("kind", k.name),
			zap.String("event_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to post event: %w", err)
	}

	m.metrics.RecordEventSubmitted(k.name, status)
	m.logger.Debug("event submitted",
		zap.String("kind", k.name),
		zap.String("event_id", id),
		zap.Bool("sticky", s.Sticky))

	return &Receipt{
		ID:       id,
		Kind:     k.name,
		Type:     k.class.String(),
		Sticky:   s.Sticky,
		PostedAt: time.Now(),
	}, nil
}

// RemoveSticky removes the sticky event stored for kind
func (m *Manager) RemoveSticky(kind string) (bool, error) {
	k, ok := lookupKind(kind)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}

	removed := m.bus.RemoveSticky(k.class)
	if removed {
		m.logger.Info("sticky event removed", zap.String("kind", kind))
	}
	return removed, nil
}

// StickyKinds returns the catalog kinds with a stored sticky event
func (m *Manager) StickyKinds() []string {
	var kinds []string
	for _, k := range catalog {
		if _, ok := m.bus.Sticky(k.class); ok {
			kinds = append(kinds, k.name)
		}
	}
	return kinds
}

// LastHeartbeat returns the sticky heartbeat
func (m *Manager) LastHeartbeat() (Heartbeat, bool) {
	return bus.StickyOf[Heartbeat](m.bus)
}

// Audit returns the counters of the events delivered to the auditor
func (m *Manager) Audit() AuditSnapshot {
	return m.auditor.Snapshot()
}

// runHeartbeat posts a heartbeat on every tick until ctx is cancelled
func (m *Manager) runHeartbeat(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.beat()
		}
	}
}

// beat stores a new sticky heartbeat
func (m *Manager) beat() {
	heartbeat := Heartbeat{
		Source:    m.bus.ID(),
		Sequence:  m.sequence.Add(1),
		Timestamp: time.Now(),
	}

	if err := m.bus.PostSticky(heartbeat); err != nil {
		m.logger.Warn("failed to post heartbeat",
			zap.Uint64("sequence", heartbeat.Sequence),
			zap.Error(err))
		return
	}
	m.metrics.RecordEventSubmitted(KindHeartbeat, StatusSticky)
}

// Shutdown stops the heartbeat and unregisters the auditor
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("shutting down publisher manager")

	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("publisher shutdown timeout: %w", ctx.Err())
	}

	if err := m.bus.UnregisterTarget(m.auditor); err != nil {
		return fmt.Errorf("failed to unregister auditor: %w", err)
	}

	m.logger.Info("publisher manager shut down complete")
	return nil
}

// prepare fills in generated fields and returns the event id
func prepare(event any) (any, string) {
	now := time.Now()

	switch e := event.(type) {
	case Notice:
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if e.Level == "" {
			e.Level = LevelInfo
		}
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
		return e, e.ID
	case Heartbeat:
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
		return e, uuid.New().String()
	default:
		return event, uuid.New().String()
	}
}

// kindLabel bounds the kind metric label to catalog names
func kindLabel(s *Submission) string {
	if s == nil {
		return "unknown"
	}
	if _, ok := lookupKind(s.Kind); !ok {
		return "unknown"
	}
	return s.Kind
}
