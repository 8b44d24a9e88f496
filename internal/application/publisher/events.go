package publisher

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/aescanero/pocketbus/pkg/bus"
)

// Notice is a message broadcast to every subscriber of a topic
type Notice struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Message   string    `json:"message"`
	Level     string    `json:"level"`
	Timestamp time.Time `json:"timestamp"`
}

// Heartbeat signals that a source is alive. The publisher keeps the latest
// one as a sticky event.
type Heartbeat struct {
	Source    string    `json:"source"`
	Sequence  uint64    `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
}

// Event kinds accepted by the publisher
const (
	KindNotice    = "notice"
	KindHeartbeat = "heartbeat"
)

// Notice levels
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// kind describes how to decode one catalog entry
type kind struct {
	name   string
	class  reflect.Type
	decode func(data json.RawMessage) (any, error)
}

// catalog lists the event kinds in a stable order
var catalog = []kind{
	{name: KindNotice, class: bus.ClassOf[Notice](), decode: decodeAs[Notice]},
	{name: KindHeartbeat, class: bus.ClassOf[Heartbeat](), decode: decodeAs[Heartbeat]},
}

// lookupKind returns the catalog entry for name
func lookupKind(name string) (kind, bool) {
	for _, k := range catalog {
		if k.name == name {
			return k, true
		}
	}
	return kind{}, false
}

// Kinds returns the names of the event kinds the publisher accepts
func Kinds() []string {
	names := make([]string, len(catalog))
	for i, k := range catalog {
		names[i] = k.name
	}
	return names
}

func decodeAs[E any](data json.RawMessage) (any, error) {
	var event E
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("failed to decode %T: %w", event, err)
	}
	return event, nil
}
