package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrLoopStarted is returned when a loop is run more than once
var ErrLoopStarted = errors.New("loop already started")

// Loop runs tasks one at a time, in submission order, on a single goroutine
type Loop struct {
	name   string
	logger *zap.Logger
	queue  *taskQueue

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

// NewLoop creates a loop. Tasks submitted before it runs are queued.
func NewLoop(name string, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loop{
		name:   name,
		logger: logger.With(zap.String("loop", name)),
		queue:  newTaskQueue(),
		done:   make(chan struct{}),
	}
}

// Execute queues a task. Tasks submitted after the loop stops are dropped.
func (l *Loop) Execute(task func()) {
	if !l.queue.push(task) {
		l.logger.Debug("loop is stopped, dropping task")
	}
}

// Run processes tasks on the calling goroutine until ctx is cancelled or
// Shutdown is called. Tasks already queued when it stops are still run.
// A loop can only run once.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.claim(); err != nil {
		return err
	}
	l.run(ctx)
	return nil
}

// Start runs the loop on a dedicated goroutine
func (l *Loop) Start() error {
	if err := l.claim(); err != nil {
		return err
	}
	go l.run(context.Background())
	return nil
}

// claim marks the loop as started
func (l *Loop) claim() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return fmt.Errorf("%s: %w", l.name, ErrLoopStarted)
	}
	l.started = true
	return nil
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)

	stop := context.AfterFunc(ctx, l.queue.close)
	defer stop()

	l.logger.Debug("loop started")

	for {
		task, ok := l.queue.pop()
		if !ok {
			break
		}
		runTask(l.logger, task)
	}

	l.logger.Debug("loop stopped")
}

// Shutdown stops accepting tasks and waits for the queued ones to run
func (l *Loop) Shutdown(ctx context.Context) error {
	l.queue.close()

	l.mu.Lock()
	started := l.started
	l.mu.Unlock()

	if !started {
		return nil
	}

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s loop shutdown timeout: %w", l.name, ctx.Err())
	}
}

// Pending returns the number of queued tasks
func (l *Loop) Pending() int {
	return l.queue.len()
}
