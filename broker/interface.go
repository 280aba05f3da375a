package broker

import "github.com/ashwaniclecvdoc/vc-backend-scale/broker/subscription"

// Topic addresses the subscribers of one peer.
type Topic string

// Publisher delivers messages to the subscribers of a topic.
type Publisher interface {
	Publish(topic Topic, message any) error
}

// Broker fans messages out to the subscriptions of each topic.
type Broker interface {
	Publisher
	Subscribe(topic Topic) *subscription.Subscription
	Unsubscribe(topic Topic, sub *subscription.Subscription)
}
