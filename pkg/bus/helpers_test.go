package bus

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// Foo is the event type used across the bus tests
type Foo struct {
	Value string
}

// Bar is a second, unrelated event type
type Bar struct {
	N int
}

// Named is implemented by Foo to exercise interface matching
type Named interface {
	Name() string
}

func (f Foo) Name() string { return f.Value }

// owner stands in for the object a generated registrar binds subscriptions to
type owner struct {
	name string
}

// recorder is a Subscription that records every event it handles
type recorder struct {
	class   reflect.Type
	mode    ThreadMode
	target  *owner
	decline bool
	onEvent func(event any)

	dead atomic.Bool

	mu     sync.Mutex
	events []any
}

func newRecorder(class reflect.Type, mode ThreadMode) *recorder {
	return &recorder{class: class, mode: mode, target: &owner{name: mode.String()}}
}

func (r *recorder) Handle(event any) bool {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()

	if r.onEvent != nil {
		r.onEvent(event)
	}
	return !r.decline
}

func (r *recorder) EventClass() reflect.Type { return r.class }

func (r *recorder) ThreadMode() ThreadMode { return r.mode }

func (r *recorder) Target() any {
	if r.dead.Load() {
		return nil
	}
	return r.target
}

func (r *recorder) received() []any {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]any, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.events)
}

// newSyncBus builds a bus whose three thread modes all run inline
func newSyncBus(t *testing.T, opts ...Option) *Bus {
	t.Helper()

	base := []Option{
		WithLogger(zaptest.NewLogger(t)),
		WithCurrentExecutor(Immediate),
		WithMainExecutor(Immediate),
		WithBackgroundExecutor(Immediate),
	}
	b, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, b.Close(context.Background()))
	})
	return b
}
