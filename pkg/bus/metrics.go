package bus

import "time"

// Delivery outcomes reported to the MetricsCollector
const (
	OutcomeDelivered = "delivered"
	OutcomeDeclined  = "declined"
	OutcomeDead      = "dead"
	OutcomePanic     = "panic"
)

// Removal reasons reported to the MetricsCollector
const (
	ReasonUnregister = "unregister"
	ReasonDeclined   = "declined"
	ReasonDead       = "dead"
	ReasonSweep      = "sweep"
)

// MetricsCollector receives bus instrumentation
type MetricsCollector interface {
	RecordPost(matched int)
	RecordDelivery(mode string, outcome string, duration time.Duration)
	RecordRemoval(mode string, reason string, count int)
	RecordSweep(removed int, duration time.Duration)
	SetSubscriptions(mode string, count int)
	SetStickyEvents(count int)
}

// nopMetrics discards all measurements
type nopMetrics struct{}

func (nopMetrics) RecordPost(int) {}
func (nopMetrics) RecordDelivery(string, string, time.Duration) {}
func (nopMetrics) RecordRemoval(string, string, int) {}
func (nopMetrics) RecordSweep(int, time.Duration) {}
func (nopMetrics) SetSubscriptions(string, int) {}
func (nopMetrics) SetStickyEvents(int) {}
