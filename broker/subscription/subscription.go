// Package subscription provides a bounded, ordered message queue for one reader.
package subscription

import (
	"errors"
	"sync"
)

// Below is the Error message for the subscription.
var (
	ErrQueueFull = errors.New("subscription queue is full")
	ErrClosed    = errors.New("subscription is closed")
)

// Subscription is a queue owned by a single reader.
type Subscription struct {
	mu     sync.RWMutex
	closed bool
	queue  chan any
}

// New creates a subscription that holds up to size pending messages.
func New(size int) *Subscription {
	if size < 1 {
		size = 1
	}
	return &Subscription{
		queue: make(chan any, size),
	}
}

// Send enqueues the message without blocking.
func (s *Subscription) Send(message any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	select {
	case s.queue <- message:
		return nil
	default:
		return ErrQueueFull
	}
}

// Receive returns the queue. It is closed when the subscription closes.
func (s *Subscription) Receive() <-chan any {
	return s.queue
}

// Close closes the queue. Calling it more than once is a no-op.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.queue)
}
