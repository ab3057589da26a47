// Package memory provides the bounded in-process queue feeding the crawl
// workers.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/qwzhou89/foodcrawler/internal/crawl"
)

// ErrClosed is returned by Dequeue once the queue is closed and drained.
var ErrClosed = errors.New("queue closed")

// Queue is a bounded in-memory task queue with context-aware operations.
type Queue struct {
	ch      chan crawl.Task
	closeMu sync.Mutex
	closed  bool
}

// New constructs a queue with the provided capacity.
func New(capacity int) *Queue {
	return &Queue{
		ch: make(chan crawl.Task, capacity),
	}
}

// Enqueue pushes a task into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, task crawl.Task) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- task:
		return nil
	}
}

// Dequeue pops the next task, respecting context cancellation. After Close,
// remaining tasks are still drained before ErrClosed is returned.
func (q *Queue) Dequeue(ctx context.Context) (crawl.Task, error) {
	select {
	case <-ctx.Done():
		return crawl.Task{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case task, ok := <-q.ch:
		if !ok {
			return crawl.Task{}, ErrClosed
		}
		return task, nil
	}
}

// Close closes the underlying channel for shutdown.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
