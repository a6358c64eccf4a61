package core

import (
	"log/slog"
	"sync"
)

// TaskRunner runs detached background tasks with isolated error handling.
// A task's failure or panic can never affect the function that spawned it.
type TaskRunner struct {
	log *slog.Logger
	wg  sync.WaitGroup
}

// NewTaskRunner returns a runner that logs task failures.
func NewTaskRunner(log *slog.Logger) *TaskRunner {
	return &TaskRunner{log: log}
}

// Go spawns fn on its own goroutine. Errors and panics are logged under
// the task name and otherwise swallowed.
func (r *TaskRunner) Go(name string, fn func() error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error("background task panicked", "task", name, "panic", rec)
			}
		}()
		if err := fn(); err != nil {
			r.log.Warn("background task failed", "task", name, "error", err)
		}
	}()
}

// Wait blocks until all spawned tasks have settled. Used by tests and
// shutdown.
func (r *TaskRunner) Wait() {
	r.wg.Wait()
}
