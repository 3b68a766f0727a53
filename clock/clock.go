// Package clock generates the MIDI pulse stream. A Clock emits one tick per
// 1/24 quarter note to every subscriber and, when acting as transport
// master, fans Start/Continue/Stop out the same way.
package clock

import (
	"errors"
	"sync"
	"time"

	"github.com/dinocosta/seqex/debug"
	"github.com/dinocosta/seqex/midiio"
)

// PPQN is the MIDI clock resolution: 24 pulses per quarter note.
const PPQN = 24

// ErrInvalidTempo is returned for tempo values that are not positive.
var ErrInvalidTempo = errors.New("invalid tempo: bpm must be positive")

// Subscriber receives every transport message the clock emits, ticks
// included. A Subscriber that returns an error is dropped from the set.
type Subscriber interface {
	Receive(midiio.Transport) error
}

// Clock is the pulse generator. Its schedule runs on a single goroutine;
// tempo changes apply when the next tick is armed, already-armed ticks are
// never rescheduled.
type Clock struct {
	mu       sync.Mutex
	bpm      int
	subs     []Subscriber
	stopChan chan struct{}
	stopOnce sync.Once
}

// Start creates a clock and begins the schedule. The first tick fires one
// full interval after Start returns, never at t=0.
func Start(bpm int) (*Clock, error) {
	if bpm <= 0 {
		return nil, ErrInvalidTempo
	}
	c := &Clock{
		bpm:      bpm,
		stopChan: make(chan struct{}),
	}
	go c.run()
	return c, nil
}

// SetBPM updates the tempo. The new interval takes effect when the next
// tick is armed.
func (c *Clock) SetBPM(bpm int) error {
	if bpm <= 0 {
		return ErrInvalidTempo
	}
	c.mu.Lock()
	c.bpm = bpm
	c.mu.Unlock()
	return nil
}

// BPM returns the current tempo.
func (c *Clock) BPM() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bpm
}

// Subscribe adds s to the tick fan-out. Subscribing twice is a no-op.
func (c *Clock) Subscribe(s Subscriber) {
	if s == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.subs {
		if existing == s {
			return
		}
	}
	c.subs = append(c.subs, s)
}

// Unsubscribe removes s from the tick fan-out.
func (c *Clock) Unsubscribe(s Subscriber) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.subs {
		if existing == s {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			return
		}
	}
}

// Send broadcasts a transport message to all subscribers. Used when this
// clock is the transport master; ticks keep flowing independently.
func (c *Clock) Send(t midiio.Transport) {
	c.broadcast(t)
}

// Stop tears the clock down. No tick is emitted after Stop returns.
func (c *Clock) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
}

func (c *Clock) interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	// 60e6 µs per minute / (bpm * 24) pulses per minute
	return time.Minute / time.Duration(c.bpm*PPQN)
}

func (c *Clock) run() {
	timer := time.NewTimer(c.interval())
	defer timer.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-timer.C:
			// Rearm before fan-out so subscriber latency does not
			// accumulate into drift. The cost is that drift correction
			// restarts from "now", bounding error to one tick's jitter.
			timer.Reset(c.interval())
			c.broadcast(midiio.Tick)
		}
	}
}

func (c *Clock) broadcast(t midiio.Transport) {
	c.mu.Lock()
	subs := make([]Subscriber, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	if t == midiio.Tick {
		// One line per quarter note, not one per pulse.
		debug.LogEvery(PPQN, "clock", "tick fanout to %d subscribers", len(subs))
	}

	var dead []Subscriber
	for _, s := range subs {
		if err := s.Receive(t); err != nil {
			debug.Log("clock", "dropping subscriber: %v", err)
			dead = append(dead, s)
		}
	}
	for _, s := range dead {
		c.Unsubscribe(s)
	}
}

// SinkSubscriber forwards transport messages as raw bytes to a MIDI output,
// so downstream hardware can follow this clock.
type SinkSubscriber struct {
	send midiio.SendFunc
}

func NewSinkSubscriber(send midiio.SendFunc) *SinkSubscriber {
	return &SinkSubscriber{send: send}
}

func (s *SinkSubscriber) Receive(t midiio.Transport) error {
	return s.send(t.Message())
}
