package queue

import (
	"sync"
	"time"
)

// Item is a unit of work waiting for its next attempt.
type Item[T any] struct {
	Value      T
	RetryAt    time.Time
	RetryCount int
}

// Queue is a mutex-guarded retry queue ordered by insertion.
type Queue[T any] struct {
	items []*Item[T]
	limit int
	mu    sync.Mutex
}

// New creates a queue holding at most limit items; the oldest item is
// dropped when a new one would exceed it. limit <= 0 means unbounded.
func New[T any](limit int) *Queue[T] {
	return &Queue[T]{limit: limit}
}

// Enqueue adds item and reports whether an older item was dropped.
func (q *Queue[T]) Enqueue(item *Item[T]) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	if q.limit > 0 && len(q.items) > q.limit {
		q.items = q.items[1:]
		return true
	}
	return false
}

// DequeueDue removes and returns every item whose RetryAt is not after now.
func (q *Queue[T]) DequeueDue(now time.Time) []*Item[T] {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*Item[T]
	kept := q.items[:0]
	for _, item := range q.items {
		if item.RetryAt.After(now) {
			kept = append(kept, item)
			continue
		}
		due = append(due, item)
	}
	q.items = kept
	return due
}

func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
