package mapper

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// ErrPoolClosed is returned when submitting to a closed worker pool.
var ErrPoolClosed = errors.New("worker pool is closed")

// workerPool runs a fixed set of goroutines draining one task channel.
// A scan can cover millions of positions; reusing workers avoids
// spawning one goroutine per pixel. Closing the pool closes the
// channel, so queued tasks always run to completion and a position is
// never left half-indexed.
type workerPool struct {
	tasks chan func()
	done  sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// newWorkerPool starts a pool with n workers. Values below 1 fall back
// to GOMAXPROCS; indexation is CPU-bound.
func newWorkerPool(n int) *workerPool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}

	wp := &workerPool{
		tasks: make(chan func(), n*2),
	}

	wp.done.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wp.done.Done()
			for task := range wp.tasks {
				task()
			}
		}()
	}

	return wp
}

// submit enqueues a task, blocking for backpressure when the queue is
// full. It returns ErrPoolClosed after close, or the context error if
// ctx ends first.
func (wp *workerPool) submit(ctx context.Context, task func()) error {
	// The read lock holds off close while a send is in flight, so the
	// channel is never closed under a sender.
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return ErrPoolClosed
	}

	select {
	case wp.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close stops accepting tasks and waits for queued work to finish.
// Idempotent.
func (wp *workerPool) close() {
	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return
	}
	wp.closed = true
	close(wp.tasks)
	wp.mu.Unlock()

	wp.done.Wait()
}
