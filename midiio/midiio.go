// Package midiio is the boundary to the MIDI driver layer. It opens ports,
// decodes real-time transport bytes into the Transport type, and hands out
// send functions for opened outputs. Everything above this package works
// with decoded values, never raw status bytes.
package midiio

import (
	"fmt"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// Transport is a decoded MIDI real-time message. Raw bytes are matched
// exactly once, in DecodeTransport; the rest of the system switches on
// these values.
type Transport uint8

const (
	Tick Transport = iota
	Start
	Continue
	Stop
)

// Wire-level real-time status bytes.
const (
	rawTick     = 0xF8
	rawStart    = 0xFA
	rawContinue = 0xFB
	rawStop     = 0xFC
)

// DecodeTransport maps a raw status byte to a Transport. The second return
// is false for anything that is not a transport message (note data, active
// sense, sysex, ...).
func DecodeTransport(b byte) (Transport, bool) {
	switch b {
	case rawTick:
		return Tick, true
	case rawStart:
		return Start, true
	case rawContinue:
		return Continue, true
	case rawStop:
		return Stop, true
	}
	return 0, false
}

// Message returns the wire message for this transport value.
func (t Transport) Message() midi.Message {
	switch t {
	case Start:
		return midi.Start()
	case Continue:
		return midi.Continue()
	case Stop:
		return midi.Stop()
	default:
		return midi.TimingClock()
	}
}

func (t Transport) String() string {
	switch t {
	case Tick:
		return "tick"
	case Start:
		return "start"
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	}
	return "unknown"
}

// Receiver consumes decoded transport messages. Both the internal clock and
// an external clock master deliver through this interface, so a sequencer
// cannot tell the sources apart.
type Receiver interface {
	Receive(Transport) error
}

// SendFunc transmits one MIDI message to an opened output port.
type SendFunc func(msg midi.Message) error

var (
	sendersMu sync.Mutex
	senders   = map[string]SendFunc{}
)

// Sender opens the output port whose name contains portName and returns a
// send function for it. Opened ports are cached per name, so two callers
// asking for the same port share one connection.
func Sender(portName string) (SendFunc, error) {
	sendersMu.Lock()
	defer sendersMu.Unlock()

	if send, ok := senders[portName]; ok {
		return send, nil
	}

	out, err := findOutPort(portName)
	if err != nil {
		return nil, err
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("open output %q: %w", out.String(), err)
	}
	senders[portName] = SendFunc(send)
	return senders[portName], nil
}

// ListenTransport opens the input port whose name contains portName and
// forwards every transport message it produces to r. The returned function
// stops listening.
func ListenTransport(portName string, r Receiver) (func(), error) {
	in, err := findInPort(portName)
	if err != nil {
		return nil, err
	}
	// UseTimeCode: rtmidi lumps the 0xF8 clock byte in with time code and
	// filters both by default.
	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		if len(msg) == 0 {
			return
		}
		t, ok := DecodeTransport(msg[0])
		if !ok {
			return
		}
		r.Receive(t)
	}, midi.UseTimeCode())
	if err != nil {
		return nil, fmt.Errorf("open input %q: %w", in.String(), err)
	}
	return stop, nil
}

// OutPortNames lists the names of all available output ports.
func OutPortNames() []string {
	outs := midi.GetOutPorts()
	names := make([]string, len(outs))
	for i, out := range outs {
		names[i] = out.String()
	}
	return names
}

// InPortNames lists the names of all available input ports.
func InPortNames() []string {
	ins := midi.GetInPorts()
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names
}

func findOutPort(name string) (drivers.Out, error) {
	for _, port := range midi.GetOutPorts() {
		if strings.Contains(strings.ToLower(port.String()), strings.ToLower(name)) {
			return port, nil
		}
	}
	return nil, fmt.Errorf("no output port matching %q", name)
}

func findInPort(name string) (drivers.In, error) {
	for _, port := range midi.GetInPorts() {
		if strings.Contains(strings.ToLower(port.String()), strings.ToLower(name)) {
			return port, nil
		}
	}
	return nil, fmt.Errorf("no input port matching %q", name)
}

// Close releases the MIDI driver and every cached sender.
func Close() {
	sendersMu.Lock()
	senders = map[string]SendFunc{}
	sendersMu.Unlock()
	midi.CloseDriver()
}
