// Package workers implements the execution contexts behind the bus thread modes.
//
// Pool runs tasks on a fixed number of goroutines and backs the Background
// thread mode:
//   - Tasks are queued in an unbounded FIFO so Execute never blocks
//   - Each worker reports idle/busy/stopped status
//   - A health monitor logs pool status and records it as metrics
//
// Loop runs tasks one at a time on a single goroutine and backs the Main
// thread mode. The application may donate its own main goroutine with Run.
package workers
