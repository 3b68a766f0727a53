package notify

import (
	"sync"
	"testing"
)

func collect(ch <-chan any) []any {
	var out []any
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := NewBroker()
	a := b.Subscribe("topic", "a")
	c := b.Subscribe("topic", "c")

	b.Publish("topic", "", "hello")
	if got := collect(a); len(got) != 1 || got[0] != "hello" {
		t.Fatalf("a: got %v", got)
	}
	if got := collect(c); len(got) != 1 {
		t.Fatalf("c: got %v", got)
	}
}

func TestOriginIsSkipped(t *testing.T) {
	b := NewBroker()
	a := b.Subscribe("topic", "a")
	c := b.Subscribe("topic", "c")

	b.Publish("topic", "a", "update")
	if got := collect(a); len(got) != 0 {
		t.Fatalf("origin must not receive its own event, got %v", got)
	}
	if got := collect(c); len(got) != 1 {
		t.Fatalf("c: got %v", got)
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	b := NewBroker()
	a := b.Subscribe("one", "a")
	b.Publish("two", "", "stray")
	if got := collect(a); len(got) != 0 {
		t.Fatalf("event leaked across topics: %v", got)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("topic", "a")
	b.Unsubscribe("topic", "a")
	if _, open := <-ch; open {
		t.Fatal("unsubscribed channel must be closed")
	}
	// Publishing afterwards must not panic.
	b.Publish("topic", "", "late")
}

func TestSlowSubscriberNeverBlocksPublisher(t *testing.T) {
	b := NewBroker()
	b.Subscribe("topic", "slow") // never drained
	for i := 0; i < subscriberBuffer*4; i++ {
		b.Publish("topic", "", i)
	}
	// Reaching here without deadlock is the assertion.
}

func TestPublishRacingUnsubscribe(t *testing.T) {
	// A publish overlapping an unsubscribe or resubscribe must never hit a
	// closed channel.
	b := NewBroker()
	done := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; ; n++ {
				select {
				case <-done:
					return
				default:
					b.Publish("topic", "", n)
				}
			}
		}()
	}

	for i := 0; i < 500; i++ {
		ch := b.Subscribe("topic", "churn")
		go func() { // drain a little so some sends land
			for range ch {
			}
		}()
		b.Unsubscribe("topic", "churn")
	}

	close(done)
	wg.Wait()
}

func TestResubscribeReplaces(t *testing.T) {
	b := NewBroker()
	old := b.Subscribe("topic", "a")
	fresh := b.Subscribe("topic", "a")

	if _, open := <-old; open {
		t.Fatal("stale subscription must be closed on resubscribe")
	}
	b.Publish("topic", "", "x")
	if got := collect(fresh); len(got) != 1 {
		t.Fatalf("fresh subscription should receive, got %v", got)
	}
}
