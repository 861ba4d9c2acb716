package utils

import (
	"sync"
)

// WorkerPool runs submitted tasks on a fixed number of goroutines.
type WorkerPool struct {
	jobs     chan func()
	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
	shutdown sync.Once
}

// NewWorkerPool starts workers goroutines. At least one is always started.
func NewWorkerPool(workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	pool := &WorkerPool{jobs: make(chan func(), workers)}

	pool.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go pool.worker()
	}
	return pool
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()
	for task := range wp.jobs {
		task()
	}
}

// Submit queues task. It returns false, without running the task, once the
// pool has been shut down.
func (wp *WorkerPool) Submit(task func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.closed {
		return false
	}
	wp.jobs <- task
	return true
}

// Shutdown waits for queued tasks to finish and stops the workers. Calling
// it more than once is harmless.
func (wp *WorkerPool) Shutdown() {
	wp.shutdown.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.jobs)
		wp.mu.Unlock()
		wp.wg.Wait()
	})
}
