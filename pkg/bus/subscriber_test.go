package bus

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type screen struct {
	title string
	shown []string
}

func TestNewSubscription(t *testing.T) {
	b := newSyncBus(t)
	s := &screen{title: "home"}

	sub := NewSubscription(s, Current, func(owner *screen, e Foo) bool {
		owner.shown = append(owner.shown, e.Value)
		return e.Value != "last"
	})

	assert.Equal(t, ClassOf[Foo](), sub.EventClass())
	assert.Equal(t, Current, sub.ThreadMode())
	assert.Same(t, s, sub.Target())

	require.NoError(t, b.Register(sub))
	require.NoError(t, b.Post(Foo{Value: "first"}))
	require.NoError(t, b.Post(Foo{Value: "last"}))
	require.NoError(t, b.Post(Foo{Value: "ignored"}))

	assert.Equal(t, []string{"first", "last"}, s.shown)
	runtime.KeepAlive(s)
}

func TestNewSubscriptionInterfaceClass(t *testing.T) {
	b := newSyncBus(t)
	s := &screen{}

	require.NoError(t, b.Register(NewSubscription(s, Current, func(owner *screen, e Named) bool {
		owner.shown = append(owner.shown, e.Name())
		return true
	})))
	require.NoError(t, b.Post(Foo{Value: "named"}))
	require.NoError(t, b.Post(Bar{N: 1}))

	assert.Equal(t, []string{"named"}, s.shown)
	runtime.KeepAlive(s)
}

func TestNewSubscriptionIgnoresOtherTypes(t *testing.T) {
	s := &screen{}
	sub := NewSubscription(s, Current, func(owner *screen, e Foo) bool {
		owner.shown = append(owner.shown, e.Value)
		return false
	})

	assert.True(t, sub.Handle(Bar{N: 1}))
	assert.Empty(t, s.shown)
	runtime.KeepAlive(s)
}

//go:noinline
func newCollectableSubscription() Subscription {
	s := &screen{title: "transient", shown: make([]string, 0, 8)}
	return NewSubscription(s, Background, func(owner *screen, e Foo) bool {
		owner.shown = append(owner.shown, e.Value)
		return true
	})
}

func TestNewSubscriptionTargetCollected(t *testing.T) {
	sub := newCollectableSubscription()

	require.Eventually(t, func() bool {
		runtime.GC()
		return sub.Target() == nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.False(t, sub.Handle(Foo{}))
}

func TestSweepReclaimsCollectedTargets(t *testing.T) {
	b := newSyncBus(t)

	require.NoError(t, b.Register(newCollectableSubscription()))
	kept := &screen{}
	require.NoError(t, b.Register(NewSubscription(kept, Background, func(*screen, Foo) bool { return true })))

	removed := 0
	require.Eventually(t, func() bool {
		runtime.GC()
		removed += b.Sweep()
		return removed == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, b.Stats().Subscriptions["background"])
	runtime.KeepAlive(kept)
}

func TestNewFuncSubscription(t *testing.T) {
	b := newSyncBus(t)

	var got []int
	sub := NewFuncSubscription(Current, func(e Bar) bool {
		got = append(got, e.N)
		return true
	})
	assert.Same(t, sub, sub.Target())

	require.NoError(t, b.Register(sub))
	require.NoError(t, b.Post(Bar{N: 1}))
	require.NoError(t, b.Unregister(sub))
	require.NoError(t, b.Post(Bar{N: 2}))

	assert.Equal(t, []int{1}, got)
}

func TestNewFuncSubscriptionDeclines(t *testing.T) {
	b := newSyncBus(t)

	calls := 0
	require.NoError(t, b.Register(NewFuncSubscription(Current, func(Foo) bool {
		calls++
		return false
	})))

	require.NoError(t, b.Post(Foo{}))
	require.NoError(t, b.Post(Foo{}))

	assert.Equal(t, 1, calls)
}

type marker struct{}

func TestNewSubscriptionRejectsZeroSizeOwner(t *testing.T) {
	assert.PanicsWithValue(t, "bus: subscription owner *bus.marker has zero size", func() {
		NewSubscription(&marker{}, Current, func(*marker, Foo) bool { return true })
	})
}

func TestUnregisterKeepsOtherTargetsOfSameType(t *testing.T) {
	b := newSyncBus(t)
	first, second := &screen{}, &screen{}

	record := func(owner *screen, e Foo) bool {
		owner.shown = append(owner.shown, e.Value)
		return true
	}
	require.NoError(t, b.Register(NewSubscription(first, Current, record)))
	require.NoError(t, b.Register(NewSubscription(second, Current, record)))

	require.NoError(t, b.Unregister(NewSubscription(first, Current, record)))
	require.NoError(t, b.Post(Foo{Value: "after"}))

	assert.Empty(t, first.shown)
	assert.Equal(t, []string{"after"}, second.shown)
	assert.Equal(t, 1, b.Stats().Subscriptions["current"])
	runtime.KeepAlive(first)
	runtime.KeepAlive(second)
}
