package control

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/lunixbochs/emucore/go/models"
)

type task struct {
	fn   func()
	done chan struct{}
}

// taskQueue runs submitted funcs one at a time on its own goroutine.
// The backlog is unbounded, so Enqueue never blocks on a busy worker.
type taskQueue struct {
	name string
	log  models.Logger

	mu      sync.Mutex
	pending []*task
	closed  bool

	wake     chan struct{}
	finished chan struct{}
}

func newTaskQueue(name string, log models.Logger) *taskQueue {
	q := &taskQueue{
		name:     name,
		log:      log,
		wake:     make(chan struct{}, 1),
		finished: make(chan struct{}),
	}
	go q.loop()
	return q
}

func (q *taskQueue) loop() {
	defer close(q.finished)
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			<-q.wake
			continue
		}
		t := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()
		q.run(t)
	}
}

func (q *taskQueue) run(t *task) {
	defer close(t.done)
	defer func() {
		if r := recover(); r != nil {
			q.log.Errorf(q.name, "task panicked: %v", r)
		}
	}()
	t.fn()
}

func (q *taskQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Enqueue schedules fn and returns a channel closed once fn has returned.
func (q *taskQueue) Enqueue(fn func()) (<-chan struct{}, error) {
	t := &task{fn: fn, done: make(chan struct{})}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrDestroyed
	}
	q.pending = append(q.pending, t)
	q.mu.Unlock()
	q.signal()
	return t.done, nil
}

// Submit runs fn on the queue and blocks until it returns.
func (q *taskQueue) Submit(fn func()) error {
	done, err := q.Enqueue(fn)
	if err != nil {
		return err
	}
	<-done
	return nil
}

// Shutdown rejects new tasks, lets the backlog drain and waits up to timeout for the worker to exit.
func (q *taskQueue) Shutdown(timeout time.Duration) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-q.finished:
		return nil
	case <-timer.C:
		return errors.Errorf("%s queue did not terminate within %v", q.name, timeout)
	}
}
