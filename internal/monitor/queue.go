package monitor

import (
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Post after Close.
var ErrQueueClosed = errors.New("delivery queue closed")

// ErrQueueFull is returned by Post when the buffer is full.
var ErrQueueFull = errors.New("delivery queue full")

// Queue runs delivery tasks one at a time on a single goroutine. Subscribers
// only ever observe values from this goroutine.
type Queue struct {
	ch   chan func()
	done chan struct{}
	wg   sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool
	parked  []func()
}

// NewQueue creates a queue with a fixed buffer.
func NewQueue(buffer int) *Queue {
	if buffer <= 0 {
		buffer = 32
	}
	return &Queue{
		ch:   make(chan func(), buffer),
		done: make(chan struct{}),
	}
}

// Start begins the worker goroutine. Safe to call multiple times.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	q.wg.Add(1)
	go q.run()
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			// drain what was already accepted
			for {
				select {
				case fn := <-q.ch:
					fn()
					q.runParked()
				default:
					q.runParked()
					return
				}
			}
		case fn := <-q.ch:
			fn()
			q.runParked()
		}
	}
}

func (q *Queue) runParked() {
	q.mu.Lock()
	parked := q.parked
	q.parked = nil
	q.mu.Unlock()
	for _, fn := range parked {
		fn()
	}
}

// Post schedules fn without blocking. Tasks run in the order they were
// posted.
func (q *Queue) Post(fn func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- fn:
		return nil
	default:
		return ErrQueueFull
	}
}

// PostOrPark is Post for tasks that must not be lost. When the buffer is
// full, fn is parked and runs as soon as the task in progress completes.
// Callers must bound how many tasks they park.
func (q *Queue) PostOrPark(fn func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- fn:
	default:
		q.parked = append(q.parked, fn)
	}
	return nil
}

// Sync posts fn and waits until it has run. It must not be called from the
// queue goroutine.
func (q *Queue) Sync(fn func()) error {
	ran := make(chan struct{})
	if err := q.Post(func() {
		defer close(ran)
		fn()
	}); err != nil {
		return err
	}
	<-ran
	return nil
}

// Close stops the worker after running already-posted tasks.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()
	q.wg.Wait()
}
