// Package notify is a small in-process fan-out broker. Sequencers publish
// state changes on a per-engine topic; UI layers subscribe with a token so
// their own commands do not echo back to them.
package notify

import "sync"

// Per-subscriber buffer. Delivery is non-blocking: a subscriber that stops
// draining loses events, it never stalls the publisher.
const subscriberBuffer = 16

type subscriber struct {
	token string
	ch    chan any
}

// Broker routes published events to every subscriber of a topic.
type Broker struct {
	mu     sync.Mutex
	topics map[string][]subscriber
}

func NewBroker() *Broker {
	return &Broker{topics: make(map[string][]subscriber)}
}

// Subscribe registers token on topic and returns its event channel.
// Subscribing the same token twice replaces the previous subscription.
func (b *Broker) Subscribe(topic, token string) <-chan any {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.removeLocked(topic, token)
	ch := make(chan any, subscriberBuffer)
	b.topics[topic] = append(b.topics[topic], subscriber{token: token, ch: ch})
	return ch
}

// Unsubscribe removes token from topic and closes its channel.
func (b *Broker) Unsubscribe(topic, token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(topic, token)
}

// Publish delivers event to every subscriber of topic except the one whose
// token equals origin. Pass an empty origin to reach everyone.
//
// Delivery happens under the lock: sends are non-blocking so holding it is
// cheap, and it keeps an Unsubscribe from closing a channel mid-publish.
func (b *Broker) Publish(topic, origin string, event any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.topics[topic] {
		if origin != "" && sub.token == origin {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
}

func (b *Broker) removeLocked(topic, token string) {
	subs := b.topics[topic]
	for i, sub := range subs {
		if sub.token == token {
			close(sub.ch)
			b.topics[topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}
