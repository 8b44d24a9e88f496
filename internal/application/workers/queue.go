package workers

import "sync"

// taskQueue is an unbounded FIFO of tasks shared by the goroutines draining it
type taskQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tasks  []func()
	closed bool
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push enqueues a task, returning false once the queue is closed
func (q *taskQueue) push(task func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, task)
	q.cond.Signal()
	return true
}

// pop blocks until a task is available. After close it keeps returning
// queued tasks and reports false once the queue is drained.
func (q *taskQueue) pop() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.tasks) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.tasks) == 0 {
		return nil, false
	}

	task := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return task, true
}

// close stops accepting tasks and wakes every waiting goroutine
func (q *taskQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}

// len returns the number of queued tasks
func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.tasks)
}
