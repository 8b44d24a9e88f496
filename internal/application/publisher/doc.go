// Package publisher feeds externally submitted events into the bus.
//
// The publisher manager coordinates event submission by:
//   - Decoding submissions against a catalog of known event kinds
//   - Validating the decoded events
//   - Posting them, or storing them as sticky events
//   - Posting a sticky Heartbeat on an interval
//
// An Auditor subscribes to every catalog event through a type registry and
// keeps counts that the admin API reports.
package publisher
