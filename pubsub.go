package nova

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// PubSubQueue fans events out to subscribers without letting a slow
// consumer stall the publisher. Each subscriber drains its own buffered
// channel on its own goroutine; when a buffer fills, delivery falls back
// to a one-off goroutine so no event is dropped.
type PubSubQueue[T any] interface {
	On(callback func(event T)) (cleanup func())
	Broadcast(event T)
	Wait(timeout time.Duration) error
	Close()
}

type subscriber[T any] struct {
	events   chan T
	callback func(event T)
}

type queue[T any] struct {
	subscribers map[int]*subscriber[T]
	nextID      int
	inflight    sync.WaitGroup
	mu          sync.Mutex
	closed      bool
}

func NewQueue[T any]() PubSubQueue[T] {
	return &queue[T]{subscribers: make(map[int]*subscriber[T])}
}

// On registers a callback for every subsequent Broadcast. The returned
// cleanup detaches it; events already queued still get delivered.
func (q *queue[T]) On(callback func(event T)) (cleanup func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return func() {}
	}

	id := q.nextID
	q.nextID++

	sub := &subscriber[T]{
		events:   make(chan T, 100),
		callback: callback,
	}
	q.subscribers[id] = sub

	go func() {
		for event := range sub.events {
			sub.callback(event)
			q.inflight.Done()
		}
	}()

	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if s, ok := q.subscribers[id]; ok {
			delete(q.subscribers, id)
			close(s.events)
		}
	}
}

func (q *queue[T]) Broadcast(event T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	for _, sub := range q.subscribers {
		q.inflight.Add(1)
		select {
		case sub.events <- event:
		default:
			// Buffer full: deliver out of band rather than block or drop.
			go func(s *subscriber[T]) {
				s.callback(event)
				q.inflight.Done()
			}(sub)
		}
	}
}

// Wait blocks until every event broadcast so far has been delivered, or
// the timeout passes.
func (q *queue[T]) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		q.inflight.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return errors.New("timeout waiting for events to be delivered")
	}
}

func (q *queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true

	for _, sub := range q.subscribers {
		close(sub.events)
	}
	q.subscribers = make(map[int]*subscriber[T])
}
