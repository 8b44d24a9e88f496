package publisher

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownKind is returned for a submission whose kind is not in the catalog
	ErrUnknownKind = errors.New("unknown event kind")

	// ErrInvalidEvent is returned for a submission that fails validation
	ErrInvalidEvent = errors.New("invalid event")
)

// Submission is an event submitted for publishing
type Submission struct {
	Kind   string          `json:"kind"`
	Sticky bool            `json:"sticky"`
	Data   json.RawMessage `json:"data"`
}

// Validator validates submissions and decoded events
type Validator struct{}

// NewValidator creates a new submission validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks a submission before it is decoded
func (v *Validator) Validate(s *Submission) error {
	if s == nil {
		return fmt.Errorf("%w: submission is nil", ErrInvalidEvent)
	}

	if s.Kind == "" {
		return fmt.Errorf("%w: kind is required", ErrInvalidEvent)
	}

	if _, ok := lookupKind(s.Kind); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, s.Kind)
	}

	if len(s.Data) == 0 {
		return fmt.Errorf("%w: data is required", ErrInvalidEvent)
	}

	return nil
}

// ValidateEvent checks a decoded event
func (v *Validator) ValidateEvent(event any) error {
	switch e := event.(type) {
	case Notice:
		return v.validateNotice(e)
	case Heartbeat:
		if e.Source == "" {
			return fmt.Errorf("%w: heartbeat source is required", ErrInvalidEvent)
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnknownKind, event)
	}
}

// validateNotice validates a single notice
func (v *Validator) validateNotice(n Notice) error {
	if n.Topic == "" {
		return fmt.Errorf("%w: notice topic is required", ErrInvalidEvent)
	}

	if n.Message == "" {
		return fmt.Errorf("%w: notice message is required", ErrInvalidEvent)
	}

	switch n.Level {
	case LevelInfo, LevelWarn, LevelError:
		return nil
	default:
		return fmt.Errorf("%w: notice level %q (must be info, warn, or error)", ErrInvalidEvent, n.Level)
	}
}
