package engine

import (
	"context"
	"sync"
)

// Queue runs posted functions one at a time, in the order they were
// posted, on the goroutine that calls Run
type Queue struct {
	work chan func()
	done chan struct{}
	once sync.Once
}

func NewQueue(size int) *Queue {
	return &Queue{
		work: make(chan func(), size),
		done: make(chan struct{}),
	}
}

// Post schedules f. It blocks while the queue is full and reports false
// once the queue has stopped.
func (q *Queue) Post(f func()) bool {
	select {
	case <-q.done:
		return false
	default:
	}
	select {
	case q.work <- f:
		return true
	case <-q.done:
		return false
	}
}

// TryPost schedules f unless the queue is full or stopped
func (q *Queue) TryPost(f func()) bool {
	select {
	case <-q.done:
		return false
	default:
	}
	select {
	case q.work <- f:
		return true
	default:
		return false
	}
}

// Do runs f on the queue and waits for it to finish. It must not be called
// from a function that is itself running on the queue.
func (q *Queue) Do(f func()) bool {
	finished := make(chan struct{})
	if !q.Post(func() {
		defer close(finished)
		f()
	}) {
		return false
	}
	select {
	case <-finished:
		return true
	case <-q.done:
		return false
	}
}

// Run processes work until ctx is cancelled. Work still queued at that
// point is discarded.
func (q *Queue) Run(ctx context.Context) {
	defer q.once.Do(func() { close(q.done) })
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-q.work:
			f()
		}
	}
}

// Stopped is closed when Run returns
func (q *Queue) Stopped() <-chan struct{} {
	return q.done
}
