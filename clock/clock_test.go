package clock

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dinocosta/seqex/midiio"
)

// counter counts received messages; fails after failAfter if set.
type counter struct {
	ticks     atomic.Int64
	transport atomic.Int64
	failAfter int64
}

func (c *counter) Receive(t midiio.Transport) error {
	if t == midiio.Tick {
		n := c.ticks.Add(1)
		if c.failAfter > 0 && n >= c.failAfter {
			return errors.New("sink closed")
		}
		return nil
	}
	c.transport.Add(1)
	return nil
}

func TestStartRejectsInvalidTempo(t *testing.T) {
	if _, err := Start(0); !errors.Is(err, ErrInvalidTempo) {
		t.Fatalf("want ErrInvalidTempo for 0, got %v", err)
	}
	if _, err := Start(-10); !errors.Is(err, ErrInvalidTempo) {
		t.Fatalf("want ErrInvalidTempo for -10, got %v", err)
	}
}

func TestSetBPMValidation(t *testing.T) {
	c, err := Start(120)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	if err := c.SetBPM(0); !errors.Is(err, ErrInvalidTempo) {
		t.Fatalf("want ErrInvalidTempo, got %v", err)
	}
	if got := c.BPM(); got != 120 {
		t.Fatalf("rejected tempo must not stick, got %d", got)
	}
	if err := c.SetBPM(140); err != nil {
		t.Fatal(err)
	}
	if got := c.BPM(); got != 140 {
		t.Fatalf("want 140, got %d", got)
	}
}

func TestTicksFlowToSubscribers(t *testing.T) {
	// 2500 bpm * 24 ppqn = 1ms per pulse; generous margins keep this
	// stable on slow CI boxes.
	c, err := Start(2500)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	sub := &counter{}
	c.Subscribe(sub)

	time.Sleep(100 * time.Millisecond)
	if got := sub.ticks.Load(); got < 10 {
		t.Fatalf("expected a steady pulse stream, got %d ticks", got)
	}

	c.Unsubscribe(sub)
	settled := sub.ticks.Load()
	time.Sleep(50 * time.Millisecond)
	// A tick already in flight may still land; afterwards the count must
	// not keep growing.
	if got := sub.ticks.Load(); got > settled+1 {
		t.Fatalf("unsubscribed sink kept receiving: %d -> %d", settled, got)
	}
}

func TestFailingSubscriberIsDropped(t *testing.T) {
	c, err := Start(2500)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	bad := &counter{failAfter: 1}
	good := &counter{}
	c.Subscribe(bad)
	c.Subscribe(good)

	time.Sleep(100 * time.Millisecond)
	if got := bad.ticks.Load(); got != 1 {
		t.Fatalf("failing sink should be dropped after its first error, got %d ticks", got)
	}
	if got := good.ticks.Load(); got < 10 {
		t.Fatalf("remaining sinks must keep ticking, got %d", got)
	}
}

func TestStopHaltsTicks(t *testing.T) {
	c, err := Start(2500)
	if err != nil {
		t.Fatal(err)
	}
	sub := &counter{}
	c.Subscribe(sub)

	time.Sleep(50 * time.Millisecond)
	c.Stop()
	c.Stop() // idempotent
	settled := sub.ticks.Load()
	time.Sleep(50 * time.Millisecond)
	if got := sub.ticks.Load(); got > settled+1 {
		t.Fatalf("clock kept ticking after Stop: %d -> %d", settled, got)
	}
}

func TestSendBroadcastsTransport(t *testing.T) {
	c, err := Start(60)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	sub := &counter{}
	c.Subscribe(sub)

	c.Send(midiio.Start)
	c.Send(midiio.Stop)
	if got := sub.transport.Load(); got != 2 {
		t.Fatalf("want 2 transport messages, got %d", got)
	}
}

func TestSubscribeTwiceIsNoop(t *testing.T) {
	c, err := Start(60)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	sub := &counter{}
	c.Subscribe(sub)
	c.Subscribe(sub)

	c.Send(midiio.Continue)
	if got := sub.transport.Load(); got != 1 {
		t.Fatalf("duplicate subscription must not double-deliver, got %d", got)
	}
}
