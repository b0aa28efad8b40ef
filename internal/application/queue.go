package application

import (
	"sync"
	"time"

	"github.com/Thnoxs/localy-v1/internal/domain"
)

// queue is an unbounded FIFO. push never blocks; signal fires at least once after
// every push so a consumer can drain.
type queue[T any] struct {
	mu     sync.Mutex
	items  []T
	signal chan struct{}
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{signal: make(chan struct{}, 1)}
}

func (q *queue[T]) push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *queue[T]) drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// outbox delivers outbound messages in order over an unbuffered channel without
// ever blocking the producer. At close, queued messages are still handed over
// while the receiver keeps reading.
type outbox struct {
	q         *queue[domain.Outbound]
	ch        chan domain.Outbound
	closed    chan struct{}
	closeOnce sync.Once
}

// flushTimeout bounds how long close waits for a receiver that stopped reading.
const flushTimeout = 200 * time.Millisecond

func newOutbox() *outbox {
	o := &outbox{
		q:      newQueue[domain.Outbound](),
		ch:     make(chan domain.Outbound),
		closed: make(chan struct{}),
	}
	go o.forward()
	return o
}

func (o *outbox) push(msg domain.Outbound) {
	o.q.push(msg)
}

func (o *outbox) close() {
	o.closeOnce.Do(func() { close(o.closed) })
}

func (o *outbox) forward() {
	defer close(o.ch)

	var pending []domain.Outbound
	for {
		if len(pending) == 0 {
			select {
			case <-o.q.signal:
				pending = o.q.drain()
			case <-o.closed:
				o.flush(o.q.drain())
				return
			}
			continue
		}

		select {
		case o.ch <- pending[0]:
			pending = pending[1:]
		case <-o.closed:
			o.flush(append(pending, o.q.drain()...))
			return
		}
	}
}

func (o *outbox) flush(msgs []domain.Outbound) {
	for _, msg := range msgs {
		select {
		case o.ch <- msg:
		case <-time.After(flushTimeout):
			return
		}
	}
}
