// Package channel provides the implementation of message channels.
package channel

import (
	"errors"
	"sync"

	"github.com/ashwaniclecvdoc/vc-backend-scale/broker/subscription"
)

// Channel represents a message channel that can have multiple subscribers.
type Channel struct {
	mu   sync.RWMutex
	subs []*subscription.Subscription
}

// New creates and initializes a new Channel instance.
func New() *Channel {
	return &Channel{
		subs: make([]*subscription.Subscription, 0),
	}
}

// SendAll sends a message to every subscription in order. A full or closed
// subscription does not stop delivery to the others.
func (c *Channel) SendAll(message any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []error
	for _, sub := range c.subs {
		if err := sub.Send(message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AddSubscription adds a new Subscription Channel.
func (c *Channel) AddSubscription(sub *subscription.Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.subs = append(c.subs, sub)
}

// RemoveSubscription removes and closes a Subscription. It reports whether
// the channel has no subscriptions left.
func (c *Channel) RemoveSubscription(sub *subscription.Subscription) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			sub.Close()
			break
		}
	}
	return len(c.subs) == 0
}

// Len returns the number of subscriptions.
func (c *Channel) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}
