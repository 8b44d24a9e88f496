package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type statusRecorder struct {
	mu    sync.Mutex
	calls [][3]int
}

func (r *statusRecorder) RecordWorkerPoolStatus(idle, busy, stopped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, [3]int{idle, busy, stopped})
}

func (r *statusRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestPoolRunsTasks(t *testing.T) {
	pool := NewPool(3, zaptest.NewLogger(t), nil, 0)
	require.NoError(t, pool.Start())

	var done atomic.Int32
	for i := 0; i < 100; i++ {
		pool.Execute(func() { done.Add(1) })
	}

	require.NoError(t, pool.Shutdown(context.Background()))
	assert.Equal(t, int32(100), done.Load())
	assert.Zero(t, pool.Pending())
}

func TestPoolStartValidation(t *testing.T) {
	assert.Error(t, NewPool(0, nil, nil, 0).Start())

	pool := NewPool(1, zaptest.NewLogger(t), nil, 0)
	require.NoError(t, pool.Start())
	assert.Error(t, pool.Start())
	require.NoError(t, pool.Shutdown(context.Background()))
}

func TestPoolTaskMaySubmitTasks(t *testing.T) {
	pool := NewPool(1, zaptest.NewLogger(t), nil, 0)
	require.NoError(t, pool.Start())
	defer func() { require.NoError(t, pool.Shutdown(context.Background())) }()

	// A single worker queueing work for itself must not block
	var inner atomic.Bool
	pool.Execute(func() {
		pool.Execute(func() { inner.Store(true) })
	})

	require.Eventually(t, inner.Load, time.Second, 5*time.Millisecond)
}

func TestPoolSurvivesPanics(t *testing.T) {
	pool := NewPool(1, zaptest.NewLogger(t), nil, 0)
	require.NoError(t, pool.Start())

	var ran atomic.Bool
	pool.Execute(func() { panic("boom") })
	pool.Execute(func() { ran.Store(true) })

	require.NoError(t, pool.Shutdown(context.Background()))
	assert.True(t, ran.Load())
}

func TestPoolDropsTasksAfterShutdown(t *testing.T) {
	pool := NewPool(2, zaptest.NewLogger(t), nil, 0)
	require.NoError(t, pool.Start())
	require.NoError(t, pool.Shutdown(context.Background()))

	var ran atomic.Bool
	pool.Execute(func() { ran.Store(true) })

	time.Sleep(10 * time.Millisecond)
	assert.False(t, ran.Load())
	for _, status := range pool.GetStatus() {
		assert.Equal(t, WorkerStatusStopped, status)
	}
}

func TestPoolShutdownTimeout(t *testing.T) {
	pool := NewPool(1, zaptest.NewLogger(t), nil, 0)
	require.NoError(t, pool.Start())

	release := make(chan struct{})
	started := make(chan struct{})
	pool.Execute(func() {
		close(started)
		<-release
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := pool.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
}

func TestHealthMonitor(t *testing.T) {
	recorder := &statusRecorder{}
	pool := NewPool(2, zaptest.NewLogger(t), recorder, 5*time.Millisecond)
	require.NoError(t, pool.Start())

	require.Eventually(t, func() bool { return recorder.count() > 0 }, time.Second, 5*time.Millisecond)

	status := pool.Health().GetStatus()
	assert.Equal(t, 2, status.TotalWorkers)
	assert.True(t, status.Healthy)
	assert.True(t, pool.Health().IsHealthy())

	require.NoError(t, pool.Shutdown(context.Background()))
	assert.False(t, pool.Health().IsHealthy())
	assert.Equal(t, 2, pool.Health().GetStatus().StoppedWorkers)
}

func TestHealthMonitorDisabled(t *testing.T) {
	recorder := &statusRecorder{}
	pool := NewPool(1, zaptest.NewLogger(t), recorder, 0)
	require.NoError(t, pool.Start())

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, pool.Shutdown(context.Background()))
	assert.Zero(t, recorder.count())
}
