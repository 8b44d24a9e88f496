package bus

import "context"

// Executor runs delivery tasks on a thread mode's execution context.
// Execute must not block waiting for the task to complete, except for
// executors that run the task inline.
type Executor interface {
	Execute(task func())
}

// ExecutorFunc adapts a function to the Executor interface
type ExecutorFunc func(task func())

// Execute calls f(task)
func (f ExecutorFunc) Execute(task func()) {
	f(task)
}

// Immediate runs each task inline on the calling goroutine. It is the
// default Current executor and makes every mode synchronous in tests.
var Immediate Executor = ExecutorFunc(func(task func()) {
	task()
})

// shutdowner is implemented by executors the bus starts and must stop
type shutdowner interface {
	Shutdown(ctx context.Context) error
}
