package workers

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// StatusRecorder receives worker pool status from the health monitor
type StatusRecorder interface {
	RecordWorkerPoolStatus(idle, busy, stopped int)
}

// Pool manages a pool of worker goroutines
type Pool struct {
	size     int
	logger   *zap.Logger
	recorder StatusRecorder
	health   *HealthMonitor
	queue    *taskQueue

	mu      sync.Mutex
	started bool
	workers []*worker
	wg      sync.WaitGroup
}

// worker represents a single worker goroutine
type worker struct {
	id        string
	pool      *Pool
	status    WorkerStatus
	mu        sync.RWMutex
	lastTask  time.Time
	processed atomic.Uint64
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusBusy    WorkerStatus = "busy"
	WorkerStatusStopped WorkerStatus = "stopped"
)

// NewPool creates a new worker pool. A nil recorder disables status metrics
// and a non-positive healthCheckInterval disables the health monitor.
func NewPool(
	size int,
	logger *zap.Logger,
	recorder StatusRecorder,
	healthCheckInterval time.Duration,
) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}

	pool := &Pool{
		size:     size,
		logger:   logger,
		recorder: recorder,
		queue:    newTaskQueue(),
	}

	pool.health = NewHealthMonitor(pool, healthCheckInterval, logger)

	return pool
}

// Start starts the worker pool
func (p *Pool) Start() error {
	if p.size < 1 {
		return fmt.Errorf("worker pool size must be at least 1, got %d", p.size)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("worker pool already started")
	}
	p.started = true

	p.logger.Info("starting worker pool", zap.Int("size", p.size))

	p.workers = make([]*worker, p.size)
	for i := 0; i < p.size; i++ {
		w := &worker{
			id:       fmt.Sprintf("worker-%d", i),
			pool:     p,
			status:   WorkerStatusIdle,
			lastTask: time.Now(),
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run()
	}

	p.health.Start()

	p.logger.Info("worker pool started", zap.Int("workers", p.size))
	return nil
}

// Execute queues a task for the next idle worker. Tasks submitted after
// Shutdown are dropped.
func (p *Pool) Execute(task func()) {
	if !p.queue.push(task) {
		p.logger.Debug("worker pool is shut down, dropping task")
	}
}

// Shutdown stops accepting tasks and waits for queued tasks to finish
func (p *Pool) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down worker pool", zap.Int("pending", p.queue.len()))

	p.health.Stop()
	p.queue.close()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker pool shutdown timeout: %w", ctx.Err())
	}
}

// Size returns the number of workers
func (p *Pool) Size() int {
	return p.size
}

// Pending returns the number of queued tasks
func (p *Pool) Pending() int {
	return p.queue.len()
}

// GetStatus returns the status of all workers
func (p *Pool) GetStatus() map[string]WorkerStatus {
	p.mu.Lock()
	workers := p.workers
	p.mu.Unlock()

	status := make(map[string]WorkerStatus, len(workers))
	for _, w := range workers {
		w.mu.RLock()
		status[w.id] = w.status
		w.mu.RUnlock()
	}
	return status
}

// run is the main worker loop
func (w *worker) run() {
	defer w.pool.wg.Done()

	w.pool.logger.Debug("worker started", zap.String("worker_id", w.id))

	for {
		task, ok := w.pool.queue.pop()
		if !ok {
			break
		}
		w.execute(task)
	}

	w.setStatus(WorkerStatusStopped)
	w.pool.logger.Debug("worker stopped",
		zap.String("worker_id", w.id),
		zap.Uint64("processed", w.processed.Load()))
}

// execute runs a single task, marking the worker busy while it runs
func (w *worker) execute(task func()) {
	w.mu.Lock()
	w.status = WorkerStatusBusy
	w.lastTask = time.Now()
	w.mu.Unlock()

	defer w.setStatus(WorkerStatusIdle)

	runTask(w.pool.logger.With(zap.String("worker_id", w.id)), task)
	w.processed.Add(1)
}

func (w *worker) setStatus(status WorkerStatus) {
	w.mu.Lock()
	w.status = status
	w.mu.Unlock()
}

// runTask runs task and logs instead of crashing if it panics
func runTask(logger *zap.Logger, task func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	task()
}
