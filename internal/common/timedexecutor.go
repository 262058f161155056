package common

import (
	"context"
	"sync"
	"time"
)

// Give the timed executor a task and a timeout.
// Call the execute function from time to time.
// If the function gets called when the timeout has been reached
// and the previous run is over, the provided task will execute.
// If not, the call will do nothing
type TimedExecutor struct {
	mu        sync.Mutex
	stopwatch Stopwatch
	running   bool
	task      func(context.Context)
}

// Create a timed executor provided a timeout and a task
func NewTimedExecutor(timeout time.Duration, task func(context.Context)) *TimedExecutor {
	return &TimedExecutor{stopwatch: NewStopwatch(timeout), task: task}
}

// Execute the task if the timeout has been reached and no other
// execution is in progress, else do nothing. Reports whether the task ran
func (te *TimedExecutor) Execute(ctx context.Context) bool {
	te.mu.Lock()
	if te.running {
		te.mu.Unlock()
		return false
	}
	if stopped, _ := te.stopwatch.Stopped(); !stopped {
		te.mu.Unlock()
		return false
	}
	te.running = true
	te.stopwatch.Start()
	te.mu.Unlock()

	defer func() {
		te.mu.Lock()
		te.running = false
		te.mu.Unlock()
	}()
	te.task(ctx)
	return true
}

// Running reports whether an execution is in progress
func (te *TimedExecutor) Running() bool {
	te.mu.Lock()
	defer te.mu.Unlock()
	return te.running
}
