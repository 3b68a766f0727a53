package sequencer

import (
	"errors"
	"fmt"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/dinocosta/seqex/clock"
	"github.com/dinocosta/seqex/debug"
	"github.com/dinocosta/seqex/midiio"
	"github.com/dinocosta/seqex/notify"
)

// ErrInvalidTempo mirrors the clock's validation error so callers only need
// this package.
var ErrInvalidTempo = clock.ErrInvalidTempo

// ErrNoClock is returned by tempo operations when the engine is not
// attached to a clock (e.g. while following an external master).
var ErrNoClock = errors.New("no clock attached")

// Sequencer is the pulse-driven playback engine. It owns a sequence, a
// playhead, and the set of currently-sounding notes, and converts transport
// messages into Note On/Off traffic on its MIDI channel.
//
// Commands and transport messages serialize on one mutex, so state moves
// one message at a time. The engine never sleeps: it only reacts to pulses
// and commands, and the handlers are expected to finish well inside one
// pulse interval.
type Sequencer struct {
	mu     sync.Mutex
	send   midiio.SendFunc
	clk    *clock.Clock
	broker *notify.Broker
	topic  string

	seq        Sequence
	step       int
	noteLength NoteLength
	channel    uint8
	playing    bool
	sounding   []Note
	pulses     int
}

var _ midiio.Receiver = (*Sequencer)(nil)
var _ clock.Subscriber = (*Sequencer)(nil)

// New builds a sequencer that emits through send and, when clk is non-nil,
// subscribes to it for pulses. The broker may be nil when nobody observes
// state changes (tests, headless use).
func New(send midiio.SendFunc, clk *clock.Clock, broker *notify.Broker) *Sequencer {
	s := &Sequencer{
		send:       send,
		clk:        clk,
		broker:     broker,
		noteLength: Quarter,
	}
	s.topic = fmt.Sprintf("sequencer:%p", s)
	if clk != nil {
		clk.Subscribe(s)
	}
	return s
}

// Topic identifies this engine on the notify broker.
func (s *Sequencer) Topic() string {
	return s.topic
}

// Receive is the uniform transport entry point: the internal clock and an
// external clock master both deliver here. It always returns nil, so a
// sequencer is never dropped from a clock's subscriber set; send failures
// are isolated per message instead.
func (s *Sequencer) Receive(t midiio.Transport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch t {
	case midiio.Tick:
		s.tickLocked()
	case midiio.Start:
		s.startLocked()
	case midiio.Continue:
		s.continueLocked()
	case midiio.Stop:
		s.stopLocked()
	}
	return nil
}

// tickLocked counts a pulse and advances the playhead on divisor
// boundaries. Ticks while stopped are dropped, not queued.
func (s *Sequencer) tickLocked() {
	if !s.playing {
		return
	}
	s.pulses++
	if s.pulses >= s.noteLength.Divisor() {
		s.advanceLocked()
	}
}

// advanceLocked performs one step advance: previous notes off, current
// notes on, playhead forward with wraparound. The sounding set is always
// flushed before anything new is turned on, so re-triggering the same key
// retriggers cleanly.
func (s *Sequencer) advanceLocked() {
	played := s.step

	s.flushSoundingLocked()
	s.pulses = 0

	if len(s.seq) == 0 {
		return
	}

	step := s.seq[s.step]
	for _, n := range step {
		s.emit(gomidi.NoteOn(s.channel, n.Key, n.Velocity))
	}
	s.sounding = append(s.sounding[:0], step...)
	s.step = (s.step + 1) % len(s.seq)

	s.publish(Event{Kind: EventStep, Step: played}, "")
}

func (s *Sequencer) startLocked() {
	s.flushSoundingLocked()
	s.step = 0
	s.pulses = 0
	s.playing = true
	s.publish(Event{Kind: EventStart}, "")
}

func (s *Sequencer) continueLocked() {
	s.playing = true
	s.publish(Event{Kind: EventContinue}, "")
}

func (s *Sequencer) stopLocked() {
	if s.playing {
		s.playing = false
		s.allNotesOffLocked()
		s.publish(Event{Kind: EventStop}, "")
		return
	}
	// Stop while already stopped rewinds to the start, the way hardware
	// transports treat a double stop.
	s.step = 0
	s.pulses = 0
	s.publish(Event{Kind: EventStop}, "")
}

// Play resumes playback from the current position. Unlike a Start message
// it resets nothing and publishes nothing.
func (s *Sequencer) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
}

// Start behaves like receiving a MIDI Start byte: rewind, then play.
func (s *Sequencer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startLocked()
}

// Continue behaves like receiving a MIDI Continue byte.
func (s *Sequencer) Continue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.continueLocked()
}

// Stop behaves like receiving a MIDI Stop byte: silence everything, keep
// the position; a second Stop rewinds.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// UpdateSequence replaces the sequence. If the playhead falls outside the
// new sequence it is clamped back to 0; a shorter sequence never errors.
// The origin token is excluded from the change broadcast.
func (s *Sequencer) UpdateSequence(seq Sequence, origin string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq = seq.Clone()
	if s.step >= len(s.seq) {
		s.step = 0
	}
	s.publish(Event{Kind: EventSequence, Sequence: s.seq.Clone()}, origin)
}

// UpdateBPM forwards the tempo change to the clock this engine is
// subscribed to; the engine has no tempo of its own.
func (s *Sequencer) UpdateBPM(bpm int, origin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clk == nil {
		return ErrNoClock
	}
	if err := s.clk.SetBPM(bpm); err != nil {
		return err
	}
	s.publish(Event{Kind: EventBPM, BPM: bpm}, origin)
	return nil
}

// UpdateNoteLength changes the pulse divisor used from the next tick on.
func (s *Sequencer) UpdateNoteLength(nl NoteLength, origin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !nl.Valid() {
		return ErrInvalidNoteLength
	}
	s.noteLength = nl
	s.publish(Event{Kind: EventNoteLength, NoteLength: nl}, origin)
	return nil
}

// UpdateChannel moves all future Note On/Off traffic to channel. Values
// outside [0,15] are ignored, matching hardware-style leniency. Sounding
// notes are turned off on the old channel first so nothing sticks there.
func (s *Sequencer) UpdateChannel(channel uint8, origin string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if channel > 15 {
		debug.Log("seq", "ignoring out-of-range channel %d", channel)
		return
	}
	if channel == s.channel {
		return
	}
	s.flushSoundingLocked()
	s.channel = channel
	s.publish(Event{Kind: EventChannel, Channel: channel}, origin)
}

// UpdateClock moves this engine to a different pulse source. The old clock
// is unsubscribed first so no duplicate ticks arrive; no notes retrigger.
func (s *Sequencer) UpdateClock(clk *clock.Clock) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clk == clk {
		return
	}
	if s.clk != nil {
		s.clk.Unsubscribe(s)
	}
	s.clk = clk
	if clk != nil {
		clk.Subscribe(s)
	}
}

// IsPlaying reports whether the engine currently advances on ticks.
func (s *Sequencer) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// BPM proxies the current tempo from the attached clock.
func (s *Sequencer) BPM() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clk == nil {
		return 0, ErrNoClock
	}
	return s.clk.BPM(), nil
}

// Sequence returns a copy of the current sequence.
func (s *Sequencer) Sequence() Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq.Clone()
}

// Step returns the current playhead position.
func (s *Sequencer) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// CurrentNoteLength returns the active subdivision.
func (s *Sequencer) CurrentNoteLength() NoteLength {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.noteLength
}

// Channel returns the MIDI channel in use.
func (s *Sequencer) Channel() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

// flushSoundingLocked turns off exactly the notes we believe are sounding.
func (s *Sequencer) flushSoundingLocked() {
	for _, n := range s.sounding {
		s.emit(gomidi.NoteOff(s.channel, n.Key))
	}
	s.sounding = s.sounding[:0]
}

// allNotesOffLocked is the stop sweep: tracked notes first, then a
// defensive Note Off for every key 0-127 in case the tracked set diverged
// from what the device is actually holding.
func (s *Sequencer) allNotesOffLocked() {
	s.flushSoundingLocked()
	for key := 0; key < 128; key++ {
		s.emit(gomidi.NoteOff(s.channel, uint8(key)))
	}
}

// emit sends one message. Sink failures are logged and isolated; they never
// abort the rest of a step's traffic.
func (s *Sequencer) emit(msg gomidi.Message) {
	if s.send == nil {
		return
	}
	if err := s.send(msg); err != nil {
		debug.Log("seq", "send failed: %v", err)
	}
}

func (s *Sequencer) publish(ev Event, origin string) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(s.topic, origin, ev)
}
