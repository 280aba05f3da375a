// Package broker routes outbound messages to the connection of each peer.
package broker

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ashwaniclecvdoc/vc-backend-scale/broker/channel"
	"github.com/ashwaniclecvdoc/vc-backend-scale/broker/subscription"
)

// DefaultQueueSize is the number of pending messages kept per subscription.
const DefaultQueueSize = 64

// ErrTopicNotFound is returned when a topic has no subscribers.
var ErrTopicNotFound = errors.New("topic not found")

// Config defines the configuration for the broker.
type Config struct {
	QueueSize int `mapstructure:"queue_size"`
}

type broker struct {
	mu       sync.RWMutex
	config   Config
	channels map[Topic]*channel.Channel
}

// New creates a broker.
func New(config Config) Broker {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	return &broker{
		config:   config,
		channels: make(map[Topic]*channel.Channel),
	}
}

// Publish sends the message to every subscription of the topic.
func (b *broker) Publish(topic Topic, message any) error {
	b.mu.RLock()
	ch, ok := b.channels[topic]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", topic, ErrTopicNotFound)
	}
	if err := ch.SendAll(message); err != nil {
		return fmt.Errorf("%s: %w", topic, err)
	}
	return nil
}

// Subscribe adds a subscription to the topic, creating the topic if needed.
func (b *broker) Subscribe(topic Topic) *subscription.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.channels[topic]
	if !ok {
		ch = channel.New()
		b.channels[topic] = ch
	}
	sub := subscription.New(b.config.QueueSize)
	ch.AddSubscription(sub)
	return sub
}

// Unsubscribe closes the subscription and drops the topic once it is empty.
func (b *broker) Unsubscribe(topic Topic, sub *subscription.Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.channels[topic]
	if !ok {
		return
	}
	if ch.RemoveSubscription(sub) {
		delete(b.channels, topic)
	}
}
