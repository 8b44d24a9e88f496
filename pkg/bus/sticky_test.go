package bus

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queuedExecutor holds tasks until run is called
type queuedExecutor struct {
	mu    sync.Mutex
	tasks []func()
}

func (q *queuedExecutor) Execute(task func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
}

func (q *queuedExecutor) run() int {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	for _, task := range tasks {
		task()
	}
	return len(tasks)
}

func TestStickyEventReplayedOnRegister(t *testing.T) {
	b := newSyncBus(t)

	require.NoError(t, b.PostSticky(0))

	first := newRecorder(ClassOf[int](), Current)
	require.NoError(t, b.Register(first))
	assert.Equal(t, []any{0}, first.received())

	assert.True(t, b.RemoveSticky(ClassOf[int]()))
	assert.False(t, b.RemoveSticky(ClassOf[int]()))

	_, ok := b.Sticky(ClassOf[int]())
	assert.False(t, ok)

	second := newRecorder(ClassOf[int](), Current)
	require.NoError(t, b.Register(second))
	assert.Zero(t, second.count())
	assert.Equal(t, 1, first.count())
}

func TestPostStickyDeliversToExistingSubscriptions(t *testing.T) {
	b := newSyncBus(t)

	r := newRecorder(ClassOf[Foo](), Current)
	require.NoError(t, b.Register(r))

	require.NoError(t, b.PostSticky(Foo{Value: "now"}))
	assert.Equal(t, []any{Foo{Value: "now"}}, r.received())
}

func TestStickyKeepsLastEventPerType(t *testing.T) {
	b := newSyncBus(t)

	require.NoError(t, b.PostSticky(Foo{Value: "old"}))
	require.NoError(t, b.PostSticky(Bar{N: 1}))
	require.NoError(t, b.PostSticky(Foo{Value: "new"}))

	foo, ok := StickyOf[Foo](b)
	require.True(t, ok)
	assert.Equal(t, "new", foo.Value)

	assert.Equal(t, []string{"bus.Foo", "bus.Bar"}, b.StickyClasses())

	r := newRecorder(ClassOf[Foo](), Current)
	require.NoError(t, b.Register(r))
	assert.Equal(t, []any{Foo{Value: "new"}}, r.received())
}

func TestStickyReplayMatchesAssignableClasses(t *testing.T) {
	b := newSyncBus(t)

	require.NoError(t, b.PostSticky(Foo{Value: "a"}))
	require.NoError(t, b.PostSticky(Bar{N: 1}))

	named := newRecorder(ClassOf[Named](), Current)
	require.NoError(t, b.Register(named))
	assert.Equal(t, []any{Foo{Value: "a"}}, named.received())

	everything := newRecorder(ClassOf[any](), Current)
	require.NoError(t, b.Register(everything))
	assert.Equal(t, []any{Foo{Value: "a"}, Bar{N: 1}}, everything.received())

	strings := newRecorder(ClassOf[string](), Current)
	require.NoError(t, b.Register(strings))
	assert.Zero(t, strings.count())
}

func TestStickyReplayUsesThreadMode(t *testing.T) {
	main := &queuedExecutor{}
	b := newSyncBus(t, WithMainExecutor(main))

	require.NoError(t, b.PostSticky(Foo{Value: "sticky"}))

	r := newRecorder(ClassOf[Foo](), Main)
	require.NoError(t, b.Register(r))
	assert.Zero(t, r.count())

	assert.Equal(t, 1, main.run())
	assert.Equal(t, []any{Foo{Value: "sticky"}}, r.received())
}

func TestRemoveStickyOf(t *testing.T) {
	b := newSyncBus(t)

	assert.False(t, RemoveStickyOf[Bar](b))

	require.NoError(t, b.PostSticky(Bar{N: 3}))
	assert.Equal(t, 1, b.Stats().StickyEvents)

	assert.True(t, RemoveStickyOf[Bar](b))
	assert.Empty(t, b.StickyClasses())

	_, ok := StickyOf[Bar](b)
	assert.False(t, ok)
	assert.False(t, b.RemoveSticky(nil))
}

func TestRegistrationBatchWithStickyEvent(t *testing.T) {
	b := newSyncBus(t)

	require.NoError(t, b.PostSticky(Foo{Value: "sticky"}))

	shared := &owner{name: "screen"}
	registration := Registration{
		newRecorder(ClassOf[Foo](), Main),
		newRecorder(ClassOf[Foo](), Background),
		newRecorder(ClassOf[Foo](), Current),
	}
	for _, sub := range registration {
		sub.(*recorder).target = shared
	}

	require.NoError(t, b.RegisterAll(registration))

	for _, sub := range registration {
		r := sub.(*recorder)
		assert.Equal(t, []any{Foo{Value: "sticky"}}, r.received(), "mode %s", r.mode)
	}
}

func TestRegisterAllIsAtomicForConcurrentPosts(t *testing.T) {
	for round := 0; round < 50; round++ {
		b := newSyncBus(t)
		require.NoError(t, b.PostSticky(Bar{N: 0}))

		registration := Registration{
			newRecorder(ClassOf[Bar](), Main),
			newRecorder(ClassOf[Bar](), Background),
			newRecorder(ClassOf[Bar](), Current),
		}

		var stop atomic.Bool
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 1; !stop.Load(); n++ {
				assert.NoError(t, b.Post(Bar{N: n}))
			}
		}()

		require.NoError(t, b.RegisterAll(registration))
		stop.Store(true)
		wg.Wait()

		seen := make(map[int]int)
		for _, sub := range registration {
			stickyCount := 0
			for _, event := range sub.(*recorder).received() {
				n := event.(Bar).N
				if n == 0 {
					stickyCount++
					continue
				}
				seen[n]++
			}
			assert.Equal(t, 1, stickyCount, "sticky replayed once per subscription")
		}
		for n, count := range seen {
			assert.Equal(t, len(registration), count, "event %d reached a partial registration", n)
		}
	}
}
